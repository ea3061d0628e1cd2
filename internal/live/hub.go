// Package live pushes session views to connected WebSocket clients.
package live

import (
	"log/slog"
	"sync"

	"github.com/p-n-ai/pai-study/internal/render"
)

// bufferSize is how many undelivered views a subscriber may hold before the
// oldest is dropped. Clients only need the latest view.
const bufferSize = 4

type subscriber struct {
	ch chan render.View
}

// offer queues v, dropping the oldest queued view when the buffer is full.
func (s *subscriber) offer(v render.View) {
	select {
	case s.ch <- v:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- v:
	default:
	}
}

// Hub fans session views out to subscribers.
type Hub struct {
	subs map[string]map[*subscriber]struct{}
	mu   sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribe registers for a session's views. The returned channel is closed
// when cancel is called or the session is closed.
func (h *Hub) Subscribe(sessionID string) (<-chan render.View, func()) {
	sub := &subscriber{ch: make(chan render.View, bufferSize)}

	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	slog.Debug("live subscriber registered", "session_id", sessionID)

	var once sync.Once
	cancel := func() {
		once.Do(func() { h.remove(sessionID, sub) })
	}
	return sub.ch, cancel
}

// Publish delivers a view to every subscriber of the session without blocking.
func (h *Hub) Publish(sessionID string, view render.View) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[sessionID] {
		sub.offer(view)
	}
}

// Subscribers returns the number of subscribers of a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// Close disconnects every subscriber of a session.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	set := h.subs[sessionID]
	delete(h.subs, sessionID)
	h.mu.Unlock()

	for sub := range set {
		close(sub.ch)
	}
}

func (h *Hub) remove(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sessionID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sessionID)
	}
}
