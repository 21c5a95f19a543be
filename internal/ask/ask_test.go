package ask

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryConsumeBeforeDeadlineSucceeds(t *testing.T) {
	c := &Continuation{}
	now := time.Now()

	var got string
	c.Install(func(text string) { got = text }, 10*time.Second, now)

	cb, ok := c.TryConsume(now.Add(5 * time.Second))
	require.True(t, ok)
	cb("Boo")
	assert.Equal(t, "Boo", got)
}

func TestTryConsumeIsCompareAndClear(t *testing.T) {
	c := &Continuation{}
	now := time.Now()
	c.Install(func(string) {}, 10*time.Second, now)

	_, ok := c.TryConsume(now.Add(time.Second))
	require.True(t, ok)

	_, ok = c.TryConsume(now.Add(2 * time.Second))
	assert.False(t, ok, "P4: a continuation is consumed at most once")
}

func TestTryConsumeAfterDeadlineFails(t *testing.T) {
	c := &Continuation{}
	now := time.Now()
	c.Install(func(string) {}, 10*time.Second, now)

	_, ok := c.TryConsume(now.Add(11 * time.Second))
	assert.False(t, ok, "late arrivals fall through to normal processing")
}

func TestInstallReplacesPriorPending(t *testing.T) {
	c := &Continuation{}
	now := time.Now()

	c.Install(func(string) {}, 10*time.Second, now)
	c.Install(func(string) {}, 10*time.Second, now)

	_, ok := c.TryConsume(now.Add(time.Second))
	require.True(t, ok)
	_, ok = c.TryConsume(now.Add(2 * time.Second))
	assert.False(t, ok, "only the latest Install is ever consumable")
}

func TestTryConsumeWithNothingPending(t *testing.T) {
	c := &Continuation{}
	_, ok := c.TryConsume(time.Now())
	assert.False(t, ok)
}
