package checkout

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when REDIS_URL is not set and
// by tests. Semantics match RedisStore except nothing expires.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]map[string]string)}
}

func (s *MemoryStore) Write(ctx context.Context, sid, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		sess = make(map[string]string)
		s.sessions[sid] = sess
	}
	sess[key] = value
	return nil
}

func (s *MemoryStore) Read(ctx context.Context, sid, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return "", ErrAbsent
	}
	val, ok := sess[key]
	if !ok {
		return "", ErrAbsent
	}
	return val, nil
}

func (s *MemoryStore) ClearTransient(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return nil
	}

	lastTxn := sess[KeyTxnID]
	for _, key := range transientKeys {
		delete(sess, key)
	}

	sess[KeyLastRechargeTime] = time.Now().UTC().Format(time.RFC3339)
	if lastTxn != "" {
		sess[KeyLastTransactionID] = lastTxn
	}
	return nil
}

func (s *MemoryStore) ClearAll(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}
