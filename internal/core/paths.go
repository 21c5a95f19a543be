package core

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// PathConfig holds the directories Karen uses for logs, config, and state.
type PathConfig struct {
	Root   string
	Logs   string
	Config string
	State  string
}

// InitPaths resolves the OS-appropriate data directory and ensures it exists.
func InitPaths() (PathConfig, error) {
	var root string

	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return PathConfig{}, fmt.Errorf("resolve home dir: %w", err)
			}
			base = filepath.Join(homeDir, "AppData", "Local")
		}
		root = filepath.Join(base, "Karen")

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return PathConfig{}, fmt.Errorf("resolve home dir: %w", err)
		}
		root = filepath.Join(homeDir, "Library", "Application Support", "Karen")

	default:
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return PathConfig{}, fmt.Errorf("resolve home dir: %w", err)
		}
		root = filepath.Join(homeDir, ".local", "share", "karen")
	}

	paths := PathConfig{
		Root:   root,
		Logs:   filepath.Join(root, "logs"),
		Config: filepath.Join(root, "config"),
		State:  filepath.Join(root, "state"),
	}

	for _, dir := range []string{paths.Root, paths.Logs, paths.Config, paths.State} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return PathConfig{}, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	return paths, nil
}
