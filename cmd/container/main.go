// Command container runs a Container host process (spec §2 C3): it owns
// a set of Devices, exposes their RPC surface, and registers with a
// Brain. The real capture/synthesis/classification collaborators (STT,
// TTS, face recognition) are external per spec §1; this binary wires
// logging stand-ins for them so the control plane is exercisable without
// those dependencies.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"karen/internal/config"
	"karen/internal/container"
	"karen/internal/core"
	"karen/internal/device"
	"karen/internal/listener"
	"karen/internal/speaker"
	"karen/internal/watcher"
)

func main() {
	var configPath string
	var jsonMode bool

	root := &cobra.Command{
		Use:   "container",
		Short: "Run a device Container",
		Long:  "Container hosts listener/speaker/watcher devices on one network endpoint and registers them with a Brain.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, jsonMode)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the container config JSON file")
	root.PersistentFlags().BoolVar(&jsonMode, "json", false, "emit machine-readable JSON logs")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, jsonMode bool) error {
	c, err := core.NewCore("container", jsonMode)
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer c.Close()

	ccfg := config.ContainerConfig{TCPPort: 8081, Hostname: "0.0.0.0"}
	if configPath != "" {
		doc, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ccfg = doc.Container
	}

	ct := container.New(ccfg.Hostname, ccfg.TCPPort, ccfg.BrainURL, ccfg.SSL.CertFile == "", ccfg.SSL.CertFile, ccfg.SSL.KeyFile, c.Logger)

	for i, dc := range ccfg.Devices {
		id := fmt.Sprintf("%s-%d", dc.Type, i)
		dev, err := buildDevice(dc, ct, c.Logger)
		if err != nil {
			c.Logger.Warning("skipping device %s: %v", id, err)
			continue
		}
		if err := ct.AddDevice(id, dc.Type, dev, dc.FriendlyName, dc.AutoStart, false); err != nil {
			c.Logger.Warning("failed to add device %s: %v", id, err)
		}
	}

	if err := ct.Start(ccfg.BrainURL != "", true); err != nil {
		return fmt.Errorf("start container: %w", err)
	}

	core.WaitForSignal(c.Logger, "container")
	return ct.Stop()
}

// buildDevice wires a device.Device for a configured type. listener/speaker/
// watcher get logging stand-ins for their external collaborators; unknown
// types are rejected rather than silently ignored.
func buildDevice(dc config.DeviceConfig, ct *container.Container, logger *core.Logger) (device.Device, error) {
	switch dc.Type {
	case "listener":
		l := listener.New(&loggingCaptureSink{logger: logger}, func(text string) {
			if err := ct.CallbackHandler("AUDIO_INPUT", text); err != nil {
				logger.Warning("forwarding AUDIO_INPUT failed: %v", err)
			}
		})
		return l, nil
	case "speaker":
		return speaker.New(&loggingSynthesizer{logger: logger}), nil
	case "watcher":
		return watcher.New(&loggingClassifier{logger: logger}), nil
	default:
		return nil, fmt.Errorf("unrecognized device type %q", dc.Type)
	}
}

type loggingCaptureSink struct{ logger *core.Logger }

func (s *loggingCaptureSink) Start() error {
	s.logger.Info("capture sink started (no STT backend configured)")
	return nil
}
func (s *loggingCaptureSink) Stop() error {
	s.logger.Info("capture sink stopped")
	return nil
}

type loggingSynthesizer struct{ logger *core.Logger }

func (s *loggingSynthesizer) Say(text string) error {
	s.logger.Info("SAY (no TTS backend configured): %s", text)
	return nil
}

type loggingClassifier struct{ logger *core.Logger }

func (c *loggingClassifier) Start() error {
	c.logger.Info("face classifier started (no CV backend configured)")
	return nil
}
func (c *loggingClassifier) Stop() error {
	c.logger.Info("face classifier stopped")
	return nil
}
