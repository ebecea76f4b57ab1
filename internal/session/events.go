package session

import (
	"sync"
	"time"
)

// EventType names a session event pushed to subscribed clients.
type EventType string

const (
	EventCombatStarted EventType = "combat_started"
	EventCardsDealt    EventType = "cards_dealt"
	EventTurnAdvanced  EventType = "turn_advanced"
	EventActorHeld     EventType = "actor_held"
	EventInterrupt     EventType = "interrupt"
	EventRoundEnded    EventType = "round_ended"
	EventDeckReset     EventType = "deck_reset"
	EventCardRecalled  EventType = "card_recalled"
)

// Event is one session occurrence for the live feed.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Payload   any       `json:"payload,omitempty"`
	At        time.Time `json:"at"`
}

// EventBus fans session events out to subscribers. Slow subscribers drop
// events rather than stalling the publisher.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function.
func (b *EventBus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber with room in its buffer.
func (b *EventBus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close drops all subscribers.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
