package platform

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
)

// AuthEvent is published whenever a client's auth state changes. SessionKey
// identifies the browser session that owns the client.
type AuthEvent struct {
	Type       EventType `json:"type"`
	SessionKey string    `json:"session_key"`
	User       *User     `json:"user,omitempty"`
	At         time.Time `json:"at"`
}

// EventBus fans auth events out to subscribers.
type EventBus interface {
	Publish(ctx context.Context, evt AuthEvent) error
	Subscribe(handler func(AuthEvent)) (unsubscribe func())
	Close() error
}

// handlerSet is the subscriber bookkeeping shared by the bus implementations.
type handlerSet struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(AuthEvent)
}

func (h *handlerSet) add(fn func(AuthEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handlers == nil {
		h.handlers = make(map[int]func(AuthEvent))
	}
	id := h.nextID
	h.nextID++
	h.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}

func (h *handlerSet) dispatch(evt AuthEvent) {
	h.mu.RLock()
	fns := make([]func(AuthEvent), 0, len(h.handlers))
	for _, fn := range h.handlers {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}

// MemoryBus delivers events synchronously inside Publish.
type MemoryBus struct {
	handlers handlerSet
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Publish(_ context.Context, evt AuthEvent) error {
	b.handlers.dispatch(evt)
	return nil
}

func (b *MemoryBus) Subscribe(handler func(AuthEvent)) func() {
	return b.handlers.add(handler)
}

func (b *MemoryBus) Close() error {
	return nil
}
