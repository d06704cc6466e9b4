package whatsapp

import (
	"sync"
	"time"
)

const defaultSessionTTL = 24 * time.Hour

// SessionManager remembers which inbound messages each sender already had
// processed, so a redelivered webhook does not record the same sale twice.
type SessionManager struct {
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]map[string]time.Time
	mu       sync.Mutex
}

// NewSessionManager creates a new session manager.
func NewSessionManager(ttl time.Duration) *SessionManager {
	return &SessionManager{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]map[string]time.Time),
	}
}

// Begin marks messageID as in progress for sender. It reports false when the
// message was already seen within the TTL.
func (sm *SessionManager) Begin(sender, messageID string) bool {
	if messageID == "" {
		return true
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	seen := sm.sessions[sender]
	if seen == nil {
		seen = make(map[string]time.Time)
		sm.sessions[sender] = seen
	}
	for id, at := range seen {
		if now.Sub(at) > sm.ttl {
			delete(seen, id)
		}
	}
	if _, ok := seen[messageID]; ok {
		return false
	}
	seen[messageID] = now
	return true
}

// Forget drops messageID so a later delivery is processed again.
func (sm *SessionManager) Forget(sender, messageID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if seen, ok := sm.sessions[sender]; ok {
		delete(seen, messageID)
		if len(seen) == 0 {
			delete(sm.sessions, sender)
		}
	}
}
