package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karen/internal/core"
	"karen/internal/registry"
	"karen/internal/transport"
	"karen/internal/wireclient"
)

func testLogger(t *testing.T) *core.Logger {
	t.Helper()
	paths, err := core.InitPaths()
	require.NoError(t, err)
	logger, err := core.InitLogger(&paths, "health-test", false)
	require.NoError(t, err)
	logger.SetSilentMode(true)
	t.Cleanup(func() { logger.Close() })
	return logger
}

// Scenario 5: demotion requires two consecutive failing probes.
func TestProbeOnceDemotesAfterTwoFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transport.Envelope{Error: true, Message: "degraded"})
	}))
	defer srv.Close()

	reg := registry.New()
	reg.Register(srv.URL, nil)

	p := New(reg, wireclient.New(time.Second, false), testLogger(t))

	p.probeOnce()
	snap := reg.Snapshot()
	require.True(t, snap[0].Active, "one failing probe does not demote")
	assert.Equal(t, 1, snap[0].FailureCount)

	p.probeOnce()
	snap = reg.Snapshot()
	assert.False(t, snap[0].Active, "P6: second consecutive failure demotes")
}

func TestProbeOnceTransportFailureDemotesAfterTwoFailures(t *testing.T) {
	reg := registry.New()
	reg.Register("http://127.0.0.1:1", nil) // nothing listens here

	p := New(reg, wireclient.New(50*time.Millisecond, false), testLogger(t))

	p.probeOnce()
	snap := reg.Snapshot()
	require.True(t, snap[0].Active, "one unreachable probe does not demote")
	assert.Equal(t, 1, snap[0].FailureCount)

	p.probeOnce()
	assert.False(t, reg.Snapshot()[0].Active, "P6: second consecutive failure demotes")
}

func TestProbeOnceSuccessResetsFailureCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transport.Envelope{Error: false})
	}))
	defer srv.Close()

	reg := registry.New()
	reg.Register(srv.URL, nil)

	p := New(reg, wireclient.New(time.Second, false), testLogger(t))
	p.probeOnce()

	snap := reg.Snapshot()
	assert.True(t, snap[0].Active)
	assert.Equal(t, 1, snap[0].FailureCount)
}

func TestStartStopIsIdempotentAndJoins(t *testing.T) {
	reg := registry.New()
	p := New(reg, wireclient.New(time.Second, false), testLogger(t))

	p.Start()
	p.Start() // no-op, must not panic or double-start
	p.Stop()
	p.Stop() // idempotent
}
