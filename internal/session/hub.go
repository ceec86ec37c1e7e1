package session

import (
	"context"
	"sync"
)

// Hub hands out one Manager per user id, creating and initializing it on
// first use. The gateway's session endpoints go through the hub so two
// requests for the same user always hit the same in-memory session.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Manager
	factory  func(userID string) *Manager
}

// NewHub builds a hub around a Manager factory.
func NewHub(factory func(userID string) *Manager) *Hub {
	return &Hub{
		sessions: make(map[string]*Manager),
		factory:  factory,
	}
}

// Get returns the session for a user, creating and initializing it when it
// does not exist yet.
func (h *Hub) Get(ctx context.Context, userID string) *Manager {
	h.mu.Lock()
	mgr, ok := h.sessions[userID]
	if !ok {
		mgr = h.factory(userID)
		h.sessions[userID] = mgr
	}
	h.mu.Unlock()

	if !ok {
		mgr.Init(ctx)
	}
	return mgr
}

// Remove tears down a user's session, draining its in-flight work.
func (h *Hub) Remove(userID string) {
	h.mu.Lock()
	mgr, ok := h.sessions[userID]
	delete(h.sessions, userID)
	h.mu.Unlock()

	if ok {
		mgr.Close()
	}
}

// Shutdown closes every live session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	managers := make([]*Manager, 0, len(h.sessions))
	for _, mgr := range h.sessions {
		managers = append(managers, mgr)
	}
	h.sessions = make(map[string]*Manager)
	h.mu.Unlock()

	for _, mgr := range managers {
		mgr.Close()
	}
}
