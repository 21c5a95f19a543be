// Command brain runs the Brain coordinator process (spec §2 C4/C5):
// the registry of known Containers, the command/data dispatcher, and the
// say/ask pipeline skills plug into.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"karen/internal/brain"
	"karen/internal/config"
	"karen/internal/core"
	"karen/internal/intent"
)

func main() {
	var configPath string
	var jsonMode bool

	root := &cobra.Command{
		Use:   "brain",
		Short: "Run the Brain coordinator",
		Long:  "Brain is the central coordinator of the synthetic-assistant control plane: it tracks registered Containers, dispatches commands, and drives the skill loop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, jsonMode)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the brain config JSON file")
	root.PersistentFlags().BoolVar(&jsonMode, "json", false, "emit machine-readable JSON logs")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, jsonMode bool) error {
	c, err := core.NewCore("brain", jsonMode)
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer c.Close()

	bcfg := config.BrainConfig{TCPPort: 8080, Hostname: "0.0.0.0"}
	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, c.Logger)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		defer watcher.Close()
		bcfg = watcher.Current().Brain
	}

	b := brain.New(brain.Config{
		Hostname:   bcfg.Hostname,
		Port:       bcfg.TCPPort,
		CertFile:   bcfg.SSL.CertFile,
		KeyFile:    bcfg.SSL.KeyFile,
		WebRoot:    c.Paths.Config + "/webgui",
		StatePath:  c.Paths.State + "/registry-snapshot.json",
		AppName:    "Karen",
		AppVersion: core.Version,
	}, intent.NewKeywordParser(), c.Logger)

	if err := b.Start(); err != nil {
		return fmt.Errorf("start brain: %w", err)
	}

	core.WaitForSignal(c.Logger, "brain")
	return b.Stop()
}
