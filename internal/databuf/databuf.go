// Package databuf implements the Brain's bounded, time-ordered data
// buffers (spec §3 "Data buffer", invariant P3).
package databuf

import (
	"sync"
	"time"
)

const capacityLimit = 50

// Entry is one recorded data point, newest entries are kept at index 0.
type Entry struct {
	Data any
	Time time.Time
}

// Buffer is a mutex-guarded, capacity-bounded ring of Entry values keyed
// by data type (e.g. "AUDIO_INPUT") on the owning Brain.
type Buffer struct {
	mu   sync.Mutex
	data map[string][]Entry
}

// New constructs an empty Buffer set.
func New() *Buffer {
	return &Buffer{data: make(map[string][]Entry)}
}

// Insert prepends data under the given type and trims the slice to the
// capacity limit unconditionally, regardless of how many inserts happened
// since the last trim (fixes the source's single-pop-per-insert bug, see
// spec §9 redesign flags).
func (b *Buffer) Insert(dataType string, data any, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := append([]Entry{{Data: data, Time: at}}, b.data[dataType]...)
	if len(entries) > capacityLimit {
		entries = entries[:capacityLimit]
	}
	b.data[dataType] = entries
}

// Snapshot returns a copy of the entries for dataType, most-recent first.
func (b *Buffer) Snapshot(dataType string) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.data[dataType]
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// Len reports how many entries are currently stored for dataType.
func (b *Buffer) Len(dataType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data[dataType])
}
