// Package brain implements the Brain coordinator (spec §4.4/§4.5, C4/C5):
// the Container registry, the command/data dispatcher, the say pipeline,
// and the skill-manager wiring. It is the single process that every
// Container registers with and every recognized utterance flows through.
package brain

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"karen/internal/ask"
	"karen/internal/core"
	"karen/internal/databuf"
	"karen/internal/health"
	"karen/internal/intent"
	"karen/internal/registry"
	"karen/internal/skill"
	"karen/internal/transport"
	"karen/internal/webgui"
	"karen/internal/wireclient"
)

const defaultAskTimeout = 10 * time.Second

// Brain wires together the registry, data buffer, ask continuation, and
// skill manager behind the HTTP transport's /register, /control, /data,
// /status and /webgui surfaces.
type Brain struct {
	Registry *registry.Registry
	buffer   *databuf.Buffer
	pending  *ask.Continuation
	skills   *skill.Manager
	prober   *health.Prober

	wire   *wireclient.Client
	server *transport.Server
	router *transport.Router
	webgui *webgui.Server
	hub    *webgui.Hub
	logger *core.Logger

	appName    string
	appVersion string

	mu              sync.Mutex
	controlHandlers map[string]transport.Handler
	dataHandlers    map[string]transport.Handler

	statePath string
}

// Config bundles the construction parameters a CLI layer gathers from
// flags/config files (spec §6.4).
type Config struct {
	Hostname   string
	Port       int
	CertFile   string
	KeyFile    string
	WebRoot    string
	StatePath  string
	AppName    string
	AppVersion string
}

// New builds a Brain ready to Start. parser is the external intent
// collaborator (spec §6.5); skills are loaded via LoadSkills before Start.
func New(cfg Config, parser intent.Parser, logger *core.Logger) *Brain {
	b := &Brain{
		Registry:   registry.New(),
		buffer:     databuf.New(),
		pending:    &ask.Continuation{},
		wire:       wireclient.New(wireclient.DefaultTimeout, true),
		logger:     logger,
		appName:    cfg.AppName,
		appVersion: cfg.AppVersion,
		statePath:  cfg.StatePath,
	}
	b.skills = skill.New(parser, b)
	b.prober = health.New(b.Registry, b.wire, logger)
	b.hub = webgui.NewHub()
	b.webgui = webgui.New(cfg.WebRoot, b.templateVars)

	b.controlHandlers = map[string]transport.Handler{
		"KILL":           b.handleKill,
		"KILL_ALL":       b.handleKillAll,
		"START_LISTENER": b.handleStartStopListener,
		"STOP_LISTENER":  b.handleStartStopListener,
	}
	b.dataHandlers = map[string]transport.Handler{
		"AUDIO_INPUT": b.handleAudioInput,
		"SAY":         b.handleSayData,
	}

	b.router = transport.NewRouter()
	b.router.Handle("/register", b.handleRegister)
	b.router.Handle("/control", b.handleControl)
	b.router.Handle("/data", b.handleData)
	b.router.Handle("/status", b.handleStatus)
	b.router.HandleFile("/webgui/events", func(ctx *transport.Context) {
		b.hub.ServeWS(ctx.Writer, ctx.Request)
	})
	b.router.Handle("/webgui", b.webgui.Handle)
	b.router.HandleFile("/favicon.ico", b.webgui.Favicon)
	b.router.NotFound(func(ctx *transport.Context) {
		ctx.SendJSONStatus(true, "Not found.", nil, http.StatusNotFound)
	})

	b.server = transport.NewServer(cfg.Hostname, cfg.Port, cfg.CertFile, cfg.KeyFile, b.router)
	return b
}

// LoadSkills installs the given skills (spec §4.6 "initialize lifecycle").
func (b *Brain) LoadSkills(skills ...skill.Skill) error {
	return b.skills.LoadSkills(skills...)
}

// URL is the Brain's externally reachable base URL.
func (b *Brain) URL() string { return b.server.URL() }

// Start restores any persisted registry snapshot, opens the listening
// socket, and launches the health prober (spec §4.7, §4.8).
func (b *Brain) Start() error {
	b.restoreState()

	go func() {
		if err := b.server.Start(); err != nil {
			b.logger.Error("Brain transport stopped: %v", err)
		}
	}()
	b.prober.Start()

	b.logger.Info("Brain started @ %s", b.URL())
	return nil
}

// Stop implements the shutdown sequence of spec §4.8: join the prober,
// stop accepting, persist a state snapshot, and stop every loaded Skill.
// The prober and Server stops are idempotent; each further call writes
// the snapshot again, repeats the Skill fan-out and logs another line.
func (b *Brain) Stop() error {
	b.prober.Stop()
	err := b.server.Stop()
	b.persistState()
	_ = b.skills.Stop()
	b.logger.Info("Brain stopped @ %s", b.URL())
	return err
}

func (b *Brain) templateVars() webgui.TemplateVars {
	b.mu.Lock()
	defer b.mu.Unlock()

	cmds := make([]webgui.CommandInfo, 0, len(b.controlHandlers))
	for name := range b.controlHandlers {
		cmds = append(cmds, webgui.CommandInfo{Type: name, FriendlyName: name})
	}
	data := make([]webgui.CommandInfo, 0, len(b.dataHandlers))
	for name := range b.dataHandlers {
		data = append(data, webgui.CommandInfo{Type: name, FriendlyName: name})
	}
	return webgui.TemplateVars{AppName: b.appName, AppVersion: b.appVersion, Commands: cmds, DataCommands: data}
}

// --- skill.BrainCallback ---

// Say implements skill.BrainCallback: drive the say pipeline directly.
func (b *Brain) Say(text string) error {
	return b.say(text)
}

// Ask implements skill.BrainCallback: say text, then install a pending
// continuation (spec §4.6 "ask").
func (b *Brain) Ask(text string, cb func(string), timeoutSeconds int) error {
	if err := b.say(text); err != nil {
		return err
	}
	timeout := defaultAskTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	b.pending.Install(cb, timeout, time.Now())
	return nil
}

// --- /register ---

// handleRegister implements spec §4.4 with the §9 redesign fix applied:
// the Container's explicit "url" field is preferred; only when absent is
// the URL reconstructed from the peer address and the declared port, so
// older peers that never send "url" still interoperate (spec §8 scenario 1).
func (b *Brain) handleRegister(ctx *transport.Context) {
	url, err := b.resolveContainerURL(ctx)
	if err != nil {
		ctx.SendJSON(true, err.Error(), nil)
		return
	}

	devices := parseDeviceSummaries(ctx.Payload["devices"])
	b.Registry.Register(url, devices)
	b.hub.Broadcast("registry", b.Registry.Snapshot())
	b.logger.Info("Registered container @ %s", url)
	ctx.SendJSON(false, "Registered successfully", nil)
}

func (b *Brain) resolveContainerURL(ctx *transport.Context) (string, error) {
	if explicit, ok := ctx.Payload["url"].(string); ok && explicit != "" {
		return strings.TrimRight(explicit, "/"), nil
	}

	portVal, ok := ctx.Payload["port"]
	if !ok {
		return "", fmt.Errorf("registration payload missing port")
	}
	port, err := toInt(portVal)
	if err != nil {
		return "", fmt.Errorf("invalid port in registration payload: %w", err)
	}

	useHTTP := true
	if v, ok := ctx.Payload["useHttp"].(bool); ok {
		useHTTP = v
	}
	scheme := "https"
	if useHTTP {
		scheme = "http"
	}

	host, _, err := net.SplitHostPort(ctx.Request.RemoteAddr)
	if err != nil {
		host = ctx.Request.RemoteAddr
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port), nil
}

func parseDeviceSummaries(raw any) map[string]registry.DeviceSummary {
	out := map[string]registry.DeviceSummary{}
	m, ok := raw.(map[string]any)
	if !ok {
		return out
	}
	for deviceType, v := range m {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		summary := registry.DeviceSummary{}
		if c, err := toInt(entry["count"]); err == nil {
			summary.Count = c
		}
		if names, ok := entry["names"].([]any); ok {
			for _, n := range names {
				if s, ok := n.(string); ok {
					summary.Names = append(summary.Names, s)
				}
			}
		}
		out[deviceType] = summary
	}
	return out
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case string:
		return strconv.Atoi(t)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

// --- /control ---

func (b *Brain) handleControl(ctx *transport.Context) {
	cmdRaw, _ := ctx.Payload["command"].(string)
	cmd := strings.ToUpper(strings.TrimSpace(cmdRaw))

	b.mu.Lock()
	h, ok := b.controlHandlers[cmd]
	b.mu.Unlock()

	if !ok {
		b.relayToAll(ctx, cmd)
		return
	}
	h(ctx)
}

func (b *Brain) handleKill(ctx *transport.Context) {
	ctx.SendJSON(false, "Server is shutting down", nil)
	go b.Stop()
}

func (b *Brain) handleKillAll(ctx *transport.Context) {
	ctx.SendJSON(false, "Server is shutting down", nil)
	for _, url := range b.Registry.ActiveURLs(nil) {
		if _, err := b.wire.PostJSON(joinPath(url, "/control"), map[string]any{"command": "KILL"}); err != nil {
			b.logger.Warning("KILL_ALL: unable to reach %s: %v", url, err)
		}
	}
	go b.Stop()
}

func (b *Brain) handleStartStopListener(ctx *transport.Context) {
	cmd, _ := ctx.Payload["command"].(string)
	cmd = strings.ToUpper(cmd)

	for _, url := range b.Registry.ActiveURLs(registry.HasListener) {
		if _, err := b.wire.PostJSON(joinPath(url, "/control"), map[string]any{"command": cmd}); err != nil {
			b.logger.Warning("%s relay to %s failed: %v", cmd, url, err)
		}
	}
	ctx.SendJSON(false, "Command completed.", nil)
}

// relayToAll implements the default /control case (spec §4.5 "other relay
// commands"): fan the command out to every active Container, no ordering
// guarantee, best-effort.
func (b *Brain) relayToAll(ctx *transport.Context, cmd string) {
	for _, url := range b.Registry.ActiveURLs(nil) {
		if _, err := b.wire.PostJSON(joinPath(url, "/control"), map[string]any{"command": cmd}); err != nil {
			b.logger.Warning("relay %s to %s failed: %v", cmd, url, err)
		}
	}
	ctx.SendJSON(false, "Command completed.", nil)
}

// --- /data ---

func (b *Brain) handleData(ctx *transport.Context) {
	typeRaw, _ := ctx.Payload["type"].(string)
	dataType := strings.ToUpper(strings.TrimSpace(typeRaw))

	b.mu.Lock()
	h, ok := b.dataHandlers[dataType]
	b.mu.Unlock()

	if !ok {
		ctx.SendJSON(true, "Invalid data type.", nil)
		return
	}
	h(ctx)
}

// handleAudioInput implements spec §4.5.2: buffer, then either resolve a
// pending ask continuation or dispatch to parseInput — acking first so
// the producing Container is never blocked on downstream work.
func (b *Brain) handleAudioInput(ctx *transport.Context) {
	text, _ := ctx.Payload["data"].(string)
	arrival := time.Now()
	b.buffer.Insert("AUDIO_INPUT", text, arrival)
	b.hub.Broadcast("audio_input", text)

	ctx.SendJSON(false, "Data collected successfully.", nil)
	if f, ok := ctx.Writer.(http.Flusher); ok {
		f.Flush()
	}

	if cb, ok := b.pending.TryConsume(arrival); ok {
		cb(text)
		return
	}
	b.skills.ParseInput(text)
}

func (b *Brain) handleSayData(ctx *transport.Context) {
	text, _ := ctx.Payload["data"].(string)
	if err := b.say(text); err != nil {
		ctx.SendJSON(true, err.Error(), nil)
		return
	}
	ctx.SendJSON(false, "Say command completed.", nil)
}

// say implements the pipeline of spec §4.5.1: mute listeners, speak,
// unmute listeners. Steps (b) and (d) are best-effort.
func (b *Brain) say(text string) error {
	speakerURL, ok := b.Registry.FirstSpeakerURL()
	if !ok {
		return fmt.Errorf("no speaker-holding container is registered")
	}

	listenerURLs := b.Registry.ActiveURLs(registry.HasListener)
	for _, url := range listenerURLs {
		if _, err := b.wire.PostJSON(joinPath(url, "/control"), map[string]any{"command": "AUDIO_OUT_START"}); err != nil {
			b.logger.Warning("AUDIO_OUT_START to %s failed: %v", url, err)
		}
	}

	env, err := b.wire.PostJSON(joinPath(speakerURL, "/control"), map[string]any{"command": "SAY", "data": text})
	sayErr := err
	if err == nil && env.Error {
		sayErr = fmt.Errorf("say rejected by %s: %s", speakerURL, env.Message)
	}

	for _, url := range listenerURLs {
		if _, err := b.wire.PostJSON(joinPath(url, "/control"), map[string]any{"command": "AUDIO_OUT_END"}); err != nil {
			b.logger.Warning("AUDIO_OUT_END to %s failed: %v", url, err)
		}
	}

	b.hub.Broadcast("say", text)
	return sayErr
}

// --- /status ---

func (b *Brain) handleStatus(ctx *transport.Context) {
	if strings.HasPrefix(ctx.Path, "/status/devices") {
		cmd, _ := ctx.Payload["command"].(string)
		if strings.ToLower(cmd) != "get-all-current" {
			ctx.SendJSONStatus(true, "Invalid command.", nil, http.StatusInternalServerError)
			return
		}
		ctx.SendJSON(false, "Registry snapshot completed.", b.Registry.Snapshot())
		return
	}
	ctx.SendJSON(false, "Brain is online.", nil)
}

func joinPath(base, suffix string) string {
	return strings.TrimRight(base, "/") + suffix
}
