package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitPathsCreatesDirectories(t *testing.T) {
	paths, err := InitPaths()
	require.NoError(t, err)

	for _, dir := range []string{paths.Root, paths.Logs, paths.Config, paths.State} {
		assert.DirExists(t, dir)
	}
}

func TestLoggerWritesToCategoryFile(t *testing.T) {
	paths, err := InitPaths()
	require.NoError(t, err)

	logger, err := InitLogger(&paths, "core-test", false)
	require.NoError(t, err)
	logger.SetSilentMode(true)
	defer logger.Close()

	logger.Info("hello %s", "world")
	require.NoError(t, logger.Flush())

	logPath := filepath.Join(paths.Logs, "karen", "karen_core-test_"+time.Now().Format("20060102")+".log")
	body, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "[INFO] hello world")
}

func TestBuildCommandsAttachesEveryRegisteredFactory(t *testing.T) {
	before := len(commandRegistry)
	RegisterCommand(func(c *Core) *cobra.Command {
		return &cobra.Command{Use: "probe-test"}
	})
	assert.Equal(t, before+1, len(commandRegistry))

	root := &cobra.Command{Use: "root"}
	BuildCommands(&Core{}, root)

	var found bool
	for _, sub := range root.Commands() {
		if sub.Use == "probe-test" {
			found = true
		}
	}
	assert.True(t, found)
}
