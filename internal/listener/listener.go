// Package listener implements the Listener device: a capture loop that
// pushes recognized utterances to a callback, pausable via the isAudioOut
// flag while the Brain is speaking (spec §4.3 AUDIO_OUT_START/END,
// §5 shared-resource discipline).
package listener

import (
	"sync"
	"sync/atomic"
)

// CaptureSink is the external STT collaborator (spec §6.5): it hands each
// recognized utterance to the Listener via Feed, which forwards it to the
// Callback unless paused.
type CaptureSink interface {
	Start() error
	Stop() error
}

// Callback receives a recognized utterance string.
type Callback func(text string)

// Listener is a Device whose capture task is stubbed behind CaptureSink —
// real audio capture/VAD/STT is an external collaborator out of scope for
// the control plane (spec §1).
type Listener struct {
	sink     CaptureSink
	onText   Callback
	running  atomic.Bool
	isAudioOut atomic.Bool

	mu sync.Mutex
}

// New builds a Listener around a capture sink and the callback invoked for
// every recognized utterance (normally Container.callbackHandler).
func New(sink CaptureSink, onText Callback) *Listener {
	return &Listener{sink: sink, onText: onText}
}

// Start is idempotent: calling it on an already-running Listener is a no-op.
func (l *Listener) Start(useThreads bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return nil
	}
	if l.sink != nil {
		if err := l.sink.Start(); err != nil {
			return err
		}
	}
	l.running.Store(true)
	return nil
}

// Stop is safe to call on an already-stopped Listener.
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running.Load() {
		return nil
	}
	if l.sink != nil {
		if err := l.sink.Stop(); err != nil {
			return err
		}
	}
	l.running.Store(false)
	return nil
}

func (l *Listener) IsRunning() bool { return l.running.Load() }

// SetAudioOut toggles whether captured frames should be ignored while the
// Brain drives a SAY pipeline (spec §4.3 AUDIO_OUT_START/END). Single bool,
// atomic read/write is sufficient per spec §5.
func (l *Listener) SetAudioOut(on bool) { l.isAudioOut.Store(on) }

func (l *Listener) IsAudioOut() bool { return l.isAudioOut.Load() }

// Feed is called by the capture sink (or a test) with a recognized
// utterance. It is dropped while isAudioOut is set.
func (l *Listener) Feed(text string) {
	if l.isAudioOut.Load() {
		return
	}
	if l.onText != nil {
		l.onText(text)
	}
}
