package brain

import (
	"encoding/json"
	"os"

	"github.com/gofrs/flock"

	"karen/internal/registry"
)

// persistState writes a registry snapshot to statePath, guarded by an
// advisory file lock so a second Brain instance sharing the same state
// directory never tears a concurrent writer's file (spec §1 Non-goals
// allows "small JSON state files on the Brain"; this is the only
// persistence the Brain performs).
func (b *Brain) persistState() {
	if b.statePath == "" {
		return
	}

	lock := flock.New(b.statePath + ".lock")
	if err := lock.Lock(); err != nil {
		b.logger.Warning("state persistence: unable to acquire lock: %v", err)
		return
	}
	defer lock.Unlock()

	body, err := json.MarshalIndent(b.Registry.Snapshot(), "", "  ")
	if err != nil {
		b.logger.Warning("state persistence: marshal failed: %v", err)
		return
	}
	if err := os.WriteFile(b.statePath, body, 0644); err != nil {
		b.logger.Warning("state persistence: write failed: %v", err)
		return
	}
	b.logger.Debug("registry snapshot persisted to %s", b.statePath)
}

// restoreState pre-seeds the registry from a previously persisted
// snapshot, if any. A missing or unreadable file is not an error — the
// Brain simply starts with an empty registry, as it would on first run.
func (b *Brain) restoreState() {
	if b.statePath == "" {
		return
	}

	lock := flock.New(b.statePath + ".lock")
	if err := lock.Lock(); err != nil {
		b.logger.Warning("state restore: unable to acquire lock: %v", err)
		return
	}
	defer lock.Unlock()

	body, err := os.ReadFile(b.statePath)
	if err != nil {
		return
	}

	var records []registry.Record
	if err := json.Unmarshal(body, &records); err != nil {
		b.logger.Warning("state restore: malformed snapshot: %v", err)
		return
	}

	b.Registry.Restore(records)
	b.logger.Info("registry snapshot restored from %s (%d containers)", b.statePath, len(records))
}
