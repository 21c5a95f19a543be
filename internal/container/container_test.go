package container

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karen/internal/core"
	"karen/internal/device"
	"karen/internal/transport"
)

func testLogger(t *testing.T) *core.Logger {
	t.Helper()
	paths, err := core.InitPaths()
	require.NoError(t, err)
	logger, err := core.InitLogger(&paths, "container-test", false)
	require.NoError(t, err)
	logger.SetSilentMode(true)
	t.Cleanup(func() { logger.Close() })
	return logger
}

type fakeListenerDevice struct {
	running  bool
	starts   int
	stops    int
	audioOut bool
}

func (d *fakeListenerDevice) Start(useThreads bool) error { d.running = true; d.starts++; return nil }
func (d *fakeListenerDevice) Stop() error                 { d.running = false; d.stops++; return nil }
func (d *fakeListenerDevice) IsRunning() bool             { return d.running }
func (d *fakeListenerDevice) SetAudioOut(on bool)         { d.audioOut = on }

func newTestContainer(t *testing.T) *Container {
	return New("127.0.0.1", 0, "", true, "", "", testLogger(t))
}

func TestStartStopListenerLeavesDevicesStopped(t *testing.T) {
	c := newTestContainer(t)
	fake := &fakeListenerDevice{}
	require.NoError(t, c.AddDevice("mic-1", "listener", fake, "mic", false, false))

	rr := httptest.NewRecorder()
	ctx := newContext(rr, "/control")
	ctx.Payload = map[string]any{"command": "START_LISTENER"}
	c.handleStartStopListener(ctx)
	assert.True(t, fake.running)

	rr2 := httptest.NewRecorder()
	ctx2 := newContext(rr2, "/control")
	ctx2.Payload = map[string]any{"command": "STOP_LISTENER"}
	c.handleStartStopListener(ctx2)
	assert.False(t, fake.running, "R2: STOP_LISTENER after START_LISTENER leaves isRunning=false")
}

func TestHandleAudioOutTogglesListeners(t *testing.T) {
	c := newTestContainer(t)
	fake := &fakeListenerDevice{}
	require.NoError(t, c.AddDevice("mic-1", "listener", fake, "mic", false, false))

	rr := httptest.NewRecorder()
	ctx := newContext(rr, "/control")
	ctx.Payload = map[string]any{"command": "AUDIO_OUT_START"}
	c.handleAudioOut(ctx)
	assert.True(t, fake.audioOut)

	rr2 := httptest.NewRecorder()
	ctx2 := newContext(rr2, "/control")
	ctx2.Payload = map[string]any{"command": "AUDIO_OUT_END"}
	c.handleAudioOut(ctx2)
	assert.False(t, fake.audioOut)
}

func TestHandleControlUnknownCommand(t *testing.T) {
	c := newTestContainer(t)
	rr := httptest.NewRecorder()
	ctx := newContext(rr, "/control")
	ctx.Payload = map[string]any{"command": "NONSENSE"}
	c.handleControl(ctx)

	assert.Contains(t, rr.Body.String(), "Invalid command.")
}

func TestSummarizeDevicesEnumeratesEveryType(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, c.AddDevice("mic-1", "listener", &fakeListenerDevice{}, "mic", false, false))

	summary := c.summarizeDevices()
	require.Contains(t, summary, "listener")
	assert.Equal(t, 1, summary["listener"].Count)
	assert.Equal(t, []string{"mic"}, summary["listener"].Names)
}

var _ device.Device = (*fakeListenerDevice)(nil)

// newContext builds a minimal *transport.Context for direct handler testing,
// bypassing the HTTP router.
func newContext(rr *httptest.ResponseRecorder, path string) *transport.Context {
	return &transport.Context{Writer: rr, Path: path}
}
