// Package checkpoint provides durable thread persistence: an in-memory store
// for tests and single-process runs, and a SQLite store for restarts.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// MemoryStore keeps threads in a map guarded by a mutex. Threads are stored
// and returned as deep copies so callers can never mutate persisted state in
// place.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*domain.Thread
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string]*domain.Thread)}
}

func (s *MemoryStore) Get(_ context.Context, threadID string) (*domain.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[threadID]
	if !ok {
		return nil, nil
	}
	return copyThread(t)
}

func (s *MemoryStore) Put(_ context.Context, thread *domain.Thread) error {
	if thread == nil || thread.ID == "" {
		return fmt.Errorf("checkpoint put: thread id is required")
	}
	stored, err := copyThread(thread)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.threads[thread.ID] = stored
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// copyThread deep-copies through JSON. Thread state is small and already
// JSON-serializable for the SQLite backend, so this keeps both stores on one
// copy semantic.
func copyThread(t *domain.Thread) (*domain.Thread, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("checkpoint copy: %w", err)
	}
	var out domain.Thread
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("checkpoint copy: %w", err)
	}
	return &out, nil
}
