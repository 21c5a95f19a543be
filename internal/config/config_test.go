package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karen/internal/core"
)

const sampleConfig = `{
  "brain": {"tcp_port": 8080, "hostname": "0.0.0.0", "ssl": {"cert_file": "", "key_file": ""}, "commands": [], "data": [], "start": true},
  "container": {"tcp_port": 8081, "hostname": "0.0.0.0", "brain_url": "http://localhost:8080", "devices": [{"type": "listener", "friendlyName": "mic", "autoStart": true, "parameters": {}}], "commands": []}
}`

func testLogger(t *testing.T) *core.Logger {
	t.Helper()
	paths, err := core.InitPaths()
	require.NoError(t, err)
	logger, err := core.InitLogger(&paths, "config-test", false)
	require.NoError(t, err)
	logger.SetSilentMode(true)
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestLoadParsesRecognizedShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	doc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, doc.Brain.TCPPort)
	assert.Equal(t, "http://localhost:8080", doc.Container.BrainURL)
	require.Len(t, doc.Container.Devices, 1)
	assert.Equal(t, "listener", doc.Container.Devices[0].Type)
	assert.True(t, doc.Container.Devices[0].AutoStart)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	w, err := NewWatcher(path, testLogger(t))
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, 8080, w.Current().Brain.TCPPort)

	updated := `{"brain":{"tcp_port":9090,"hostname":"0.0.0.0"},"container":{"tcp_port":8081,"hostname":"0.0.0.0"}}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))

	require.Eventually(t, func() bool {
		return w.Current().Brain.TCPPort == 9090
	}, 2*time.Second, 20*time.Millisecond, "config watcher should pick up the on-disk change")
}
