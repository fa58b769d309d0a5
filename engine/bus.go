package engine

import "sync"

type EventType int

type Event struct {
	Type    EventType
	Payload any
}

// EventBus is a synchronous in-process pub/sub fan-out. Handlers run on the
// emitter's goroutine, so they must not block.
type EventBus struct {
	mu   sync.RWMutex
	subs map[EventType][]func(Event)
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[EventType][]func(Event))}
}

// SubscribeTypes registers fn for each of the given event types.
func (b *EventBus) SubscribeTypes(fn func(Event), types ...EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range types {
		b.subs[t] = append(b.subs[t], fn)
	}
}

// Emit delivers evt to every subscriber of its type, in subscription order.
func (b *EventBus) Emit(evt Event) {
	b.mu.RLock()
	handlers := b.subs[evt.Type]
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(evt)
	}
}
