package skill

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karen/internal/intent"
)

type fakeBrain struct {
	said []string
	err  error
}

func (f *fakeBrain) Say(text string) error {
	f.said = append(f.said, text)
	return f.err
}
func (f *fakeBrain) Ask(text string, cb func(string), timeoutSeconds int) error { return nil }

type fakeParser struct {
	result intent.Result
	err    error
}

func (p *fakeParser) LoadFile(name, path string) error { return nil }
func (p *fakeParser) Train() error                      { return nil }
func (p *fakeParser) CalcIntent(text string) (intent.Result, error) {
	return p.result, p.err
}

func TestParseInputLowConfidenceFallsBack(t *testing.T) {
	brain := &fakeBrain{}
	parser := &fakeParser{result: intent.Result{Name: "greeting", Confidence: 0.2}}
	m := New(parser, brain)

	result := m.ParseInput("thanks a lot")
	assert.False(t, result.Error)
	assert.Equal(t, []string{"You're welcome."}, brain.said)
}

func TestParseInputDispatchesToBoundCallback(t *testing.T) {
	brain := &fakeBrain{}
	parser := &fakeParser{result: intent.Result{Name: "greeting", Confidence: 0.9}}
	m := New(parser, brain)

	require.NoError(t, m.RegisterIntentFile("greeting", func(r intent.Result) Result {
		return ok("hi")
	}))

	result := m.ParseInput("hello")
	assert.False(t, result.Error)
	assert.Equal(t, "Skill completed successfully.", result.Message)
}

func TestParseInputCallbackErrorFallsBack(t *testing.T) {
	brain := &fakeBrain{}
	parser := &fakeParser{result: intent.Result{Name: "greeting", Confidence: 0.9}}
	m := New(parser, brain)

	require.NoError(t, m.RegisterIntentFile("greeting", func(r intent.Result) Result {
		return fail("nope")
	}))

	result := m.ParseInput("how are you")
	assert.False(t, result.Error)
	assert.Equal(t, []string{"I am online and functioning properly."}, brain.said)
}

func TestParseInputUnboundIntentFallsBack(t *testing.T) {
	brain := &fakeBrain{}
	parser := &fakeParser{result: intent.Result{Name: "unregistered", Confidence: 0.95}}
	m := New(parser, brain)

	result := m.ParseInput("who are you")
	assert.False(t, result.Error)
	assert.Equal(t, []string{"I am a synthetic human. You may call me Karen."}, brain.said)
}

func TestParseInputParserErrorReturnsProcessingError(t *testing.T) {
	brain := &fakeBrain{}
	parser := &fakeParser{err: errors.New("boom")}
	m := New(parser, brain)

	result := m.ParseInput("anything")
	assert.True(t, result.Error)
	assert.Equal(t, "Error occurred in processing.", result.Message)
}

func TestFallbackNoTriggerMatches(t *testing.T) {
	brain := &fakeBrain{}
	parser := &fakeParser{result: intent.Result{Confidence: 0}}
	m := New(parser, brain)

	result := m.ParseInput("what time is it")
	assert.True(t, result.Error)
	assert.Equal(t, "Intent not understood.", result.Message)
}

func TestFallbackLengthGuardedTriggers(t *testing.T) {
	brain := &fakeBrain{}
	parser := &fakeParser{result: intent.Result{Confidence: 0}}
	m := New(parser, brain)

	result := m.ParseInput("are you real or is this a much longer sentence")
	assert.True(t, result.Error, "trigger requires length <= 15")
}
