// Package config loads and hot-reloads the on-disk JSON configuration
// consumed by the Brain and Container binaries (spec §6.4/§6.6). The
// config file format itself is an external collaborator's concern per
// spec §1 — this package only defines the recognized shape and wires a
// filesystem watch so edits take effect without a restart for fields
// that don't require rebinding a listening socket.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"karen/internal/core"
)

// SSL carries an optional certificate/key pair (spec §6.4 "ssl.cert_file, ssl.key_file").
type SSL struct {
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
}

// BrainConfig is the "brain" top-level key of spec §6.4.
type BrainConfig struct {
	TCPPort  int      `json:"tcp_port"`
	Hostname string   `json:"hostname"`
	SSL      SSL      `json:"ssl"`
	Commands []string `json:"commands"`
	Data     []string `json:"data"`
	Start    bool     `json:"start"`
}

// DeviceConfig is one entry of "container.devices" (spec §6.4).
type DeviceConfig struct {
	Type         string         `json:"type"`
	FriendlyName string         `json:"friendlyName"`
	AutoStart    bool           `json:"autoStart"`
	Parameters   map[string]any `json:"parameters"`
}

// ContainerConfig is the "container" top-level key of spec §6.4.
type ContainerConfig struct {
	TCPPort  int            `json:"tcp_port"`
	Hostname string         `json:"hostname"`
	SSL      SSL            `json:"ssl"`
	BrainURL string         `json:"brain_url"`
	Devices  []DeviceConfig `json:"devices"`
	Commands []string       `json:"commands"`
}

// Document is the full recognized config shape (spec §6.4: "{brain, container, settings}").
type Document struct {
	Brain     BrainConfig     `json:"brain"`
	Container ContainerConfig `json:"container"`
	Settings  map[string]any  `json:"settings"`
}

// Load reads and parses path as a Document.
func Load(path string) (Document, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return Document{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return doc, nil
}

// Watcher holds the current Document and reloads it whenever path
// changes on disk, swapping it in atomically behind a mutex.
type Watcher struct {
	mu     sync.RWMutex
	doc    Document
	path   string
	logger *core.Logger
	fsw    *fsnotify.Watcher
	done   chan struct{}
}

// NewWatcher loads path once, then starts watching it for further
// writes. Transport fields (hostname/port/ssl) changing on disk are
// logged but not applied live, since rebinding a listening socket is
// out of scope (SPEC_FULL.md §6.6) — callers wanting those to take
// effect must restart the process.
func NewWatcher(path string, logger *core.Logger) (*Watcher, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch config %s: %w", path, err)
	}

	w := &Watcher{doc: doc, path: path, logger: logger, fsw: fsw, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warning("config watch error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	doc, err := Load(w.path)
	if err != nil {
		w.logger.Warning("config reload failed, keeping previous config: %v", err)
		return
	}

	w.mu.Lock()
	prev := w.doc
	w.doc = doc
	w.mu.Unlock()

	transportChanged := prev.Brain.TCPPort != doc.Brain.TCPPort ||
		prev.Brain.Hostname != doc.Brain.Hostname ||
		prev.Brain.SSL != doc.Brain.SSL ||
		prev.Container.TCPPort != doc.Container.TCPPort ||
		prev.Container.Hostname != doc.Container.Hostname ||
		prev.Container.SSL != doc.Container.SSL
	if transportChanged {
		w.logger.Warning("transport config changed on disk; restart the process for it to take effect")
	}
	w.logger.Info("config reloaded from %s", w.path)
}

// Current returns the most recently loaded Document.
func (w *Watcher) Current() Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.doc
}

// Close stops the filesystem watch.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
