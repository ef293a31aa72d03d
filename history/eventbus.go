package history

import (
	gosync "sync"
)

// EventBus broadcasts HistoryEvents to every subscriber (UI list views,
// websocket clients).
type EventBus struct {
	mu      gosync.RWMutex
	clients map[chan HistoryEvent]struct{}
}

// NewEventBus creates a new EventBus.
func NewEventBus() *EventBus {
	return &EventBus{
		clients: make(map[chan HistoryEvent]struct{}),
	}
}

// Subscribe registers a new client and returns its event channel.
func (b *EventBus) Subscribe() chan HistoryEvent {
	ch := make(chan HistoryEvent, 16)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client and closes its channel. Unknown channels are
// ignored.
func (b *EventBus) Unsubscribe(ch chan HistoryEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; !ok {
		return
	}
	delete(b.clients, ch)
	close(ch)
}

// Publish sends an event to all subscribers. Slow subscribers are skipped.
func (b *EventBus) Publish(event HistoryEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- event:
		default:
			sub("eventbus").Debug("slow subscriber, event dropped", "type", event.Type)
		}
	}
}

// Len returns the number of subscribers.
func (b *EventBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
