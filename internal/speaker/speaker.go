// Package speaker implements the Speaker device: a thin Device wrapper
// around the external TTS collaborator's Say method (spec §6.5).
package speaker

import "sync/atomic"

// Synthesizer is the external TTS collaborator.
type Synthesizer interface {
	Say(text string) error
}

// Speaker is a Device that forwards SAY payloads to a Synthesizer.
type Speaker struct {
	synth   Synthesizer
	running atomic.Bool
}

func New(synth Synthesizer) *Speaker {
	return &Speaker{synth: synth}
}

func (s *Speaker) Start(useThreads bool) error {
	s.running.Store(true)
	return nil
}

func (s *Speaker) Stop() error {
	s.running.Store(false)
	return nil
}

func (s *Speaker) IsRunning() bool { return s.running.Load() }

// Say implements device.Sayer.
func (s *Speaker) Say(text string) error {
	if s.synth == nil {
		return nil
	}
	return s.synth.Say(text)
}
