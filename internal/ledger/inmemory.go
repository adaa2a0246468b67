package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process stat store for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	stats []TurnStat
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) RecordTurn(_ context.Context, stat TurnStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stat.ID == "" {
		stat.ID = uuid.NewString()
	}
	if stat.CreatedAt.IsZero() {
		stat.CreatedAt = time.Now().UTC()
	}
	s.stats = append(s.stats, stat)
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]TurnStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.stats) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(s.stats) {
		limit = len(s.stats)
	}
	out := make([]TurnStat, 0, limit)
	for i := len(s.stats) - 1; i >= len(s.stats)-limit; i-- {
		out = append(out, s.stats[i])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
