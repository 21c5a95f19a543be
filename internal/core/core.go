// Package core provides the process-wide substrate (logging, paths,
// command registration) shared by the brain and container binaries.
package core

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version is the build-time release string for the brain/container
// binaries, substituted into webgui templates as the app version.
const Version = "1.0.0"

// Core is the shared context threaded through a process's cobra commands.
type Core struct {
	Logger *Logger
	Paths  PathConfig
	IsJSON bool
}

// NewCore builds a Core with a logger for the given category.
func NewCore(category string, jsonMode bool) (*Core, error) {
	paths, err := InitPaths()
	if err != nil {
		return nil, fmt.Errorf("init paths: %w", err)
	}

	logger, err := InitLogger(&paths, category, jsonMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	return &Core{Logger: logger, Paths: paths, IsJSON: jsonMode}, nil
}

// NewCoreSilent is NewCore with console echo turned off: log lines go to
// the log file only.
func NewCoreSilent(category string) (*Core, error) {
	c, err := NewCore(category, false)
	if err != nil {
		return nil, err
	}
	c.Logger.SetSilentMode(true)
	return c, nil
}

func (c *Core) SetJSONMode(enabled bool) {
	c.IsJSON = enabled
	c.Logger.SetJSONMode(enabled)
}

func (c *Core) Close() error {
	return c.Logger.Close()
}

// CommandFactory builds a cobra command bound to a Core.
type CommandFactory func(*Core) *cobra.Command

var commandRegistry []CommandFactory

// RegisterCommand adds a command factory invoked once the Core exists.
// Command packages call this from an init() func (teacher pattern), so a
// binary assembles its CLI surface purely from blank imports.
func RegisterCommand(factory CommandFactory) {
	commandRegistry = append(commandRegistry, factory)
}

// BuildCommands instantiates every registered command factory and attaches
// it to root.
func BuildCommands(c *Core, root *cobra.Command) {
	for _, factory := range commandRegistry {
		root.AddCommand(factory(c))
	}
}

// DiscardWriter returns io.Discard, a writer that drops everything.
func DiscardWriter() io.Writer { return io.Discard }
