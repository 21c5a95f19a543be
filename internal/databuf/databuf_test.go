package databuf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertOrdersNewestFirst(t *testing.T) {
	b := New()
	base := time.Now()

	b.Insert("AUDIO_INPUT", "first", base)
	b.Insert("AUDIO_INPUT", "second", base.Add(time.Second))

	snap := b.Snapshot("AUDIO_INPUT")
	require.Len(t, snap, 2)
	assert.Equal(t, "second", snap[0].Data)
	assert.Equal(t, "first", snap[1].Data)
}

func TestInsertEnforcesCapacityUnconditionally(t *testing.T) {
	b := New()
	base := time.Now()

	for i := 0; i < 75; i++ {
		b.Insert("AUDIO_INPUT", i, base.Add(time.Duration(i)*time.Second))
	}

	assert.Equal(t, 50, b.Len("AUDIO_INPUT"), "P3: buffer never exceeds 50 entries")

	snap := b.Snapshot("AUDIO_INPUT")
	for i := 1; i < len(snap); i++ {
		assert.False(t, snap[i].Time.After(snap[i-1].Time), "P3: entries are in non-increasing time order")
	}
	assert.Equal(t, 74, snap[0].Data, "most recently inserted entry survives the trim")
}

func TestSeparateDataTypesAreIndependent(t *testing.T) {
	b := New()
	b.Insert("AUDIO_INPUT", "x", time.Now())

	assert.Equal(t, 0, b.Len("SAY"))
	assert.Equal(t, 1, b.Len("AUDIO_INPUT"))
}
