package chat

import (
	"log/slog"
	"sync"
	"time"
)

// Store is a thread-safe, in-memory mapping from platform user ID to
// conversation transcript. Sessions live for the process lifetime; there is
// no persistence. The store hands out copies so callers can never mutate a
// stored transcript in place — updates go through [Store.Replace].
//
// When MaxSessions is set, the store evicts the least-recently-used session
// once the bound is exceeded. Eviction is an explicit memory bound, not a
// conversation TTL.
type Store struct {
	directive   string
	maxSessions int

	mu       sync.RWMutex
	sessions map[string]*session
}

// session pairs a transcript with its last-access time for LRU eviction.
type session struct {
	transcript Transcript
	lastAccess time.Time
}

// StoreConfig configures a [Store].
type StoreConfig struct {
	// Directive is the fixed system instruction seeded as turn 0 of every
	// new transcript.
	Directive string

	// MaxSessions bounds the number of concurrently retained sessions.
	// Zero means unbounded.
	MaxSessions int
}

// NewStore returns an initialised [Store].
func NewStore(cfg StoreConfig) *Store {
	return &Store{
		directive:   cfg.Directive,
		maxSessions: cfg.MaxSessions,
		sessions:    make(map[string]*session),
	}
}

// GetOrCreate returns a copy of the transcript for userID, creating a new
// session seeded with the system directive on first contact.
func (s *Store) GetOrCreate(userID string) Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{
			transcript: Transcript{{Role: RoleSystem, Content: s.directive}},
		}
		s.sessions[userID] = sess
		s.evictLocked(userID)
	}
	sess.lastAccess = time.Now()
	return Clone(sess.transcript)
}

// Replace overwrites the stored transcript for userID. A session is created
// if none exists, so Replace after Clear behaves like a fresh write.
func (s *Store) Replace(userID string, t Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{}
		s.sessions[userID] = sess
		s.evictLocked(userID)
	}
	sess.transcript = Clone(t)
	sess.lastAccess = time.Now()
}

// Clear removes the session for userID entirely. A later GetOrCreate
// re-seeds from scratch, indistinguishable from a never-seen user.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Count returns the number of active sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// evictLocked removes least-recently-used sessions until the store fits
// within maxSessions. The session identified by keep is never evicted.
// Must be called with s.mu held.
func (s *Store) evictLocked(keep string) {
	if s.maxSessions <= 0 {
		return
	}
	for len(s.sessions) > s.maxSessions {
		oldestID := ""
		var oldest time.Time
		for id, sess := range s.sessions {
			if id == keep {
				continue
			}
			if oldestID == "" || sess.lastAccess.Before(oldest) {
				oldestID = id
				oldest = sess.lastAccess
			}
		}
		if oldestID == "" {
			return
		}
		delete(s.sessions, oldestID)
		slog.Debug("session evicted", "user_id", oldestID, "last_access", oldest)
	}
}
