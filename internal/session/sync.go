package session

import (
	"context"
	"time"
)

// The sync engine is a trailing-edge debounce over the persistence
// collaborator: every qualifying mutation re-arms a single timer instead of
// queuing pushes, so a burst of N mutations produces exactly one write
// reflecting the state after the Nth. Pushes carry only the non-incognito
// snapshot and are suppressed while privacy mode is on or before the
// initial load has finished. Failures are logged and left to the next
// cycle; the remote store is best effort, local state is the truth.

// scheduleSyncLocked re-arms the debounce timer. Callers hold m.mu.
func (m *Manager) scheduleSyncLocked() {
	if !m.initialized || m.store.PrivacyMode() {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, m.flush)
}

// stopTimerLocked cancels a pending push. Callers hold m.mu.
func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// flush pushes the current persist-eligible snapshot to the remote store.
// The snapshot is taken under the lock; the network calls are not.
func (m *Manager) flush() {
	m.mu.Lock()
	if !m.initialized || m.store.PrivacyMode() {
		m.mu.Unlock()
		return
	}
	convs, activeID := m.store.Snapshot()
	userID := m.userID
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()

	if err := m.storage.SaveConversations(ctx, userID, convs); err != nil {
		m.log.Warn("conversation sync failed, will retry on next change", "user_id", userID, "error", err)
		return
	}
	if activeID != "" {
		if err := m.storage.SaveActiveID(ctx, userID, activeID); err != nil {
			m.log.Warn("active id sync failed", "user_id", userID, "error", err)
		}
	}
}
