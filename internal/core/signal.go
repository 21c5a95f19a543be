package core

import (
	"os"
	"os/signal"
	"syscall"
)

// WaitForSignal blocks until SIGINT or SIGTERM, logging which one woke it
// so an operator can tell an intentional stop from an orchestrator-issued
// one in the log file.
func WaitForSignal(logger *Logger, processName string) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("%s received %s, shutting down", processName, sig)
}
