package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_PublishToAll(t *testing.T) {
	b := NewEventBus()
	c1 := b.Subscribe()
	c2 := b.Subscribe()
	assert.Equal(t, 2, b.Len())

	b.Publish(HistoryEvent{Type: EventClear})

	assert.Equal(t, EventClear, (<-c1).Type)
	assert.Equal(t, EventClear, (<-c2).Type)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	b := NewEventBus()
	ch := b.Subscribe()

	b.Unsubscribe(ch)
	b.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Len())
	b.Publish(HistoryEvent{Type: EventAdd})
}

func TestEventBus_SlowSubscriberSkipped(t *testing.T) {
	b := NewEventBus()
	ch := b.Subscribe()

	for i := 0; i < 100; i++ {
		b.Publish(HistoryEvent{Type: EventAdd})
	}

	assert.Equal(t, cap(ch), len(ch), "buffer filled, extra events dropped without blocking")
}
