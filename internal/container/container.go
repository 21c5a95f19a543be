// Package container implements the Container host process (spec §4.3, C3):
// it owns Devices, exposes their RPC surface over transport.Server, and
// registers itself with the Brain.
package container

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"karen/internal/core"
	"karen/internal/device"
	"karen/internal/registry"
	"karen/internal/transport"
	"karen/internal/wireclient"
)

// AudioOutToggle is implemented by listener-type devices so the Container
// can pause/resume capture around a SAY pipeline (spec §4.3 AUDIO_OUT_*).
type AudioOutToggle interface {
	SetAudioOut(on bool)
}

// Container hosts a set of Devices on one network endpoint.
type Container struct {
	mu      sync.Mutex
	devices map[string][]*device.Descriptor

	server   *transport.Server
	router   *transport.Router
	wire     *wireclient.Client
	logger   *core.Logger
	handlers map[string]transport.Handler

	brainURL string
	useHTTP  bool
	hostname string
	port     int
}

// New builds a Container bound to hostname:port, registering with brainURL
// when Start is told to auto-register.
func New(hostname string, port int, brainURL string, useHTTP bool, certFile, keyFile string, logger *core.Logger) *Container {
	c := &Container{
		devices:  make(map[string][]*device.Descriptor),
		wire:     wireclient.New(wireclient.DefaultTimeout, true),
		logger:   logger,
		brainURL: brainURL,
		useHTTP:  useHTTP,
		hostname: hostname,
		port:     port,
	}

	c.handlers = map[string]transport.Handler{
		"KILL":              c.handleKill,
		"START_LISTENER":    c.handleStartStopListener,
		"STOP_LISTENER":     c.handleStartStopListener,
		"AUDIO_OUT_START":   c.handleAudioOut,
		"AUDIO_OUT_END":     c.handleAudioOut,
		"SAY":               c.handleSay,
	}

	c.router = transport.NewRouter()
	c.router.Handle("/control", c.handleControl)
	c.router.Handle("/status", c.handleStatus)
	c.router.NotFound(func(ctx *transport.Context) {
		ctx.SendJSONStatus(true, "Invalid request", nil, http.StatusNotFound)
	})

	c.server = transport.NewServer(hostname, port, certFile, keyFile, c.router)
	return c
}

// URL is this Container's externally reachable base URL.
func (c *Container) URL() string { return c.server.URL() }

// AddDevice stores a descriptor; per spec §4.3, if autoStart and the
// device accepts "start" and is not already running, it is started; if
// the Container itself is already running, it immediately re-registers
// with the Brain so the new device is reflected upstream.
func (c *Container) AddDevice(id, deviceType string, dev device.Device, friendlyName string, autoStart, isPanel bool) error {
	desc := device.NewDescriptor(id, deviceType, dev, friendlyName, isPanel)

	c.mu.Lock()
	c.devices[deviceType] = append(c.devices[deviceType], desc)
	wasRunning := c.server.IsRunning()
	c.mu.Unlock()

	if autoStart && desc.AcceptsAction("start") && !dev.IsRunning() {
		if err := dev.Start(true); err != nil {
			return fmt.Errorf("start device %s: %w", id, err)
		}
	}

	if wasRunning {
		return c.RegisterWithBrain()
	}
	return nil
}

// summarizeDevices builds the devices payload for /register (spec §6.2):
// each device type that has been added carries its count and friendly
// names. Types with no added device are not listed, so no entry ever has
// a zero count.
func (c *Container) summarizeDevices() map[string]registry.DeviceSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]registry.DeviceSummary, len(c.devices))
	for t, descs := range c.devices {
		names := make([]string, 0, len(descs))
		for _, d := range descs {
			names = append(names, d.FriendlyName)
		}
		out[t] = registry.DeviceSummary{Count: len(descs), Names: names}
	}
	return out
}

// RegisterWithBrain POSTs this Container's port/scheme/devices to
// {brain_url}/register (spec §4.3).
func (c *Container) RegisterWithBrain() error {
	if c.brainURL == "" {
		return nil
	}
	payload := map[string]any{
		"port":    c.port,
		"useHttp": c.useHTTP,
		"url":     c.URL(),
		"devices": c.summarizeDevices(),
	}
	env, err := c.wire.PostJSON(strings.TrimRight(c.brainURL, "/")+"/register", payload)
	if err != nil {
		c.logger.Error("Registration FAILED: %v", err)
		return err
	}
	if env.Error {
		c.logger.Error("Registration FAILED: %s", env.Message)
		return fmt.Errorf("registration rejected: %s", env.Message)
	}
	c.logger.Info("Registration COMPLETE")
	return nil
}

// CallbackHandler is the forwarding channel devices use to push recognized
// events to the Brain at /data (spec §4.3).
func (c *Container) CallbackHandler(dataType string, data string) error {
	if c.brainURL == "" {
		return fmt.Errorf("no brain URL configured")
	}
	payload := map[string]any{"type": dataType, "data": data}
	env, err := c.wire.PostJSON(strings.TrimRight(c.brainURL, "/")+"/data", payload)
	if err != nil {
		return err
	}
	if env.Error {
		return fmt.Errorf("brain rejected data: %s", env.Message)
	}
	return nil
}

// Start opens the listening socket, optionally registers with the Brain,
// and optionally auto-starts every device (spec §4.3).
func (c *Container) Start(autoRegister, autoStartDevices bool) error {
	go func() {
		if err := c.server.Start(); err != nil {
			c.logger.Error("Container transport stopped: %v", err)
		}
	}()

	if autoRegister {
		_ = c.RegisterWithBrain()
	}

	if autoStartDevices {
		c.mu.Lock()
		all := make([]*device.Descriptor, 0)
		for _, descs := range c.devices {
			all = append(all, descs...)
		}
		c.mu.Unlock()

		for _, d := range all {
			if !d.Device.IsRunning() {
				_ = d.Device.Start(true)
			}
		}
	}

	c.logger.Info("Started @ %s", c.URL())
	return nil
}

// Stop broadcasts stop to every contained device (idempotent), then closes
// the socket (spec §4.3, §4.8 shutdown sequence shared with Brain).
func (c *Container) Stop() error {
	c.mu.Lock()
	all := make([]*device.Descriptor, 0)
	for _, descs := range c.devices {
		all = append(all, descs...)
	}
	c.mu.Unlock()

	for _, d := range all {
		_ = d.Device.Stop()
	}

	err := c.server.Stop()
	c.logger.Info("Stopped @ %s", c.URL())
	return err
}

func (c *Container) devicesOfType(t string) []*device.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*device.Descriptor, len(c.devices[t]))
	copy(out, c.devices[t])
	return out
}

// handleControl dispatches /control requests (spec §4.3 "Command dispatch").
func (c *Container) handleControl(ctx *transport.Context) {
	cmdRaw, _ := ctx.Payload["command"].(string)
	cmd := strings.ToUpper(strings.TrimSpace(cmdRaw))

	h, ok := c.handlers[cmd]
	if !ok {
		ctx.SendJSON(true, "Invalid command.", nil)
		return
	}
	h(ctx)
}

// handleStatus implements /status and /status/devices (spec §4.1, §4.3).
func (c *Container) handleStatus(ctx *transport.Context) {
	if strings.HasPrefix(ctx.Path, "/status/devices") {
		cmd, _ := ctx.Payload["command"].(string)
		if strings.ToLower(cmd) != "get-all-current" {
			ctx.SendJSONStatus(true, "Invalid command.", nil, http.StatusInternalServerError)
			return
		}
		ctx.SendJSON(false, "Device list completed.", c.summarizeDevices())
		return
	}
	ctx.SendJSON(false, "Device is active.", nil)
}

// handleKill: ack then stop this Container only (never relayed), spec §4.3.
func (c *Container) handleKill(ctx *transport.Context) {
	ctx.SendJSON(false, "Device container is shutting down", nil)
	go c.Stop()
}

func (c *Container) handleStartStopListener(ctx *transport.Context) {
	cmdRaw, _ := ctx.Payload["command"].(string)
	cmd := strings.ToUpper(cmdRaw)

	for _, d := range c.devicesOfType("listener") {
		if cmd == "START_LISTENER" {
			_ = d.Device.Start(true)
		} else {
			_ = d.Device.Stop()
		}
	}
	ctx.SendJSON(false, "Command completed.", nil)
}

func (c *Container) handleAudioOut(ctx *transport.Context) {
	cmdRaw, _ := ctx.Payload["command"].(string)
	cmd := strings.ToUpper(cmdRaw)

	on := cmd == "AUDIO_OUT_START"
	for _, d := range c.devicesOfType("listener") {
		if toggle, ok := d.Device.(AudioOutToggle); ok {
			toggle.SetAudioOut(on)
		}
	}

	if on {
		ctx.SendJSON(false, "Pausing Listener during speech utterence.", nil)
	} else {
		ctx.SendJSON(false, "Engaging Listener after speech utterence.", nil)
	}
}

func (c *Container) handleSay(ctx *transport.Context) {
	data, ok := ctx.Payload["data"].(string)
	if !ok || data == "" {
		ctx.SendJSON(true, "Invalid payload for SAY command detected.", nil)
		return
	}

	for _, d := range c.devicesOfType("speaker") {
		if sayer, ok := d.Device.(device.Sayer); ok {
			if err := sayer.Say(data); err != nil {
				ctx.SendJSON(true, "Say command failed.", nil)
				return
			}
			ctx.SendJSON(false, "Say command completed.", nil)
			return
		}
	}
	ctx.SendJSON(true, "Speaker not available.", nil)
}
