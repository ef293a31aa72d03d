package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIgnoreSet_ConsumeOnce(t *testing.T) {
	s := NewIgnoreSet("test")

	s.Mark("x.png")
	assert.True(t, s.Consume("x.png"))
	assert.False(t, s.Consume("x.png"), "a mark suppresses exactly one event")
	assert.Equal(t, 0, s.Len())
}

func TestIgnoreSet_ConsumeUnmarked(t *testing.T) {
	s := NewIgnoreSet("test")
	assert.False(t, s.Consume("never-marked.png"))
	assert.False(t, s.Consume(""))
}

func TestIgnoreSet_MarkIdempotent(t *testing.T) {
	s := NewIgnoreSet("test")

	s.Mark("a.png")
	s.Mark("a.png")
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Consume("a.png"))
	assert.False(t, s.Consume("a.png"), "marking twice still yields one suppression")
}

func TestIgnoreSet_Normalizes(t *testing.T) {
	s := NewIgnoreSet("test")

	s.Mark(`Assets\Sprites\a.png`)
	assert.True(t, s.Contains("Assets/Sprites/a.png"))
	assert.True(t, s.Consume("Assets/Sprites/a.png"))
}

func TestIgnoreSet_Clear(t *testing.T) {
	s := NewIgnoreSet("test")
	s.Mark("a.png")
	s.Mark("b.png")

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Consume("a.png"))
	assert.False(t, s.Consume("b.png"))
}

func TestIgnoreSet_NoExpiry(t *testing.T) {
	s := NewIgnoreSet("test")
	s.Mark("stale.png")

	// Unrelated consumes never touch the stale mark.
	for i := 0; i < 100; i++ {
		s.Consume("other.png")
	}
	assert.True(t, s.Contains("stale.png"))
}
