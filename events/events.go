package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypePlayerUpdate   EventType = "player_update"
	EventTypeTrackStart     EventType = "track_start"
	EventTypeTrackEnd       EventType = "track_end"
	EventTypePlayerInactive EventType = "player_inactive"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// PlayerUpdateEvent represents a periodic state report from the audio node.
// Subscribers must not trust the payload beyond the guild ID: the reconciler
// recomputes everything from current session state.
type PlayerUpdateEvent struct {
	GuildID   int64
	Connected bool
	Position  int64 // milliseconds into the current track
}

func (e PlayerUpdateEvent) Type() EventType {
	return EventTypePlayerUpdate
}

// TrackStartEvent represents the node starting playback of a track
type TrackStartEvent struct {
	GuildID  int64
	TrackURI string
}

func (e TrackStartEvent) Type() EventType {
	return EventTypeTrackStart
}

// TrackEndEvent represents the node finishing, skipping or failing a track
type TrackEndEvent struct {
	GuildID  int64
	TrackURI string
	Reason   string
	// MayStartNext is false for replaced/stopped tracks where the node
	// expects no follow-up
	MayStartNext bool
}

func (e TrackEndEvent) Type() EventType {
	return EventTypeTrackEnd
}

// PlayerInactiveEvent represents the node's idle-timeout firing for a guild
// session that has had nothing queued or playing for the configured threshold
type PlayerInactiveEvent struct {
	GuildID int64
}

func (e PlayerInactiveEvent) Type() EventType {
	return EventTypePlayerInactive
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Call handlers asynchronously to avoid blocking the node's event socket
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}
