package session

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/repoinsight/internal/model"
)

// MemoryStore is a process-local session store for tests and single-node
// runs. The redis backend is the deployment default.
type MemoryStore struct {
	mu       sync.RWMutex
	logs     map[string][]model.SessionMessage
	lastSeen map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:     make(map[string][]model.SessionMessage),
		lastSeen: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Exists(ctx context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lastSeen[userID]
	return ok, nil
}

func (s *MemoryStore) Create(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lastSeen[userID]; !ok {
		s.lastSeen[userID] = time.Now()
	}
	return nil
}

func (s *MemoryStore) Append(ctx context.Context, userID string, msg model.SessionMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[userID] = append(s.logs[userID], msg)
	s.lastSeen[userID] = time.Now()
	return nil
}

func (s *MemoryStore) History(ctx context.Context, userID string) ([]model.SessionMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.logs[userID]
	out := make([]model.SessionMessage, len(log))
	copy(out, log)
	return out, nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, userID)
	delete(s.lastSeen, userID)
	return nil
}

func (s *MemoryStore) IdleSessions(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var idle []string
	for userID, seen := range s.lastSeen {
		if seen.Before(cutoff) {
			idle = append(idle, userID)
		}
	}
	return idle, nil
}
