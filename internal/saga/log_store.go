package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/example/ledger-saga/internal/infrastructure/store"
)

// LogStore persists saga logs for audit and recovery.
type LogStore interface {
	Save(ctx context.Context, log *Log) error
	Update(ctx context.Context, log *Log) error
	Get(ctx context.Context, sagaID string) (*Log, error)

	// ListUnfinished returns sagas in a non-terminal status, i.e. the ones
	// a crashed process left behind.
	ListUnfinished(ctx context.Context) ([]*Log, error)
}

// MemoryLogStore keeps saga logs in memory. Logs are stored as JSON copies
// so callers can keep mutating their own Log value between updates.
type MemoryLogStore struct {
	mu   sync.RWMutex
	logs map[string][]byte
}

func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{logs: make(map[string][]byte)}
}

func (s *MemoryLogStore) Save(ctx context.Context, log *Log) error {
	return s.put(log)
}

func (s *MemoryLogStore) Update(ctx context.Context, log *Log) error {
	s.mu.RLock()
	_, ok := s.logs[log.SagaID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("saga log %s: %w", log.SagaID, store.ErrNotFound)
	}
	return s.put(log)
}

func (s *MemoryLogStore) put(log *Log) error {
	raw, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal saga log: %w", err)
	}
	s.mu.Lock()
	s.logs[log.SagaID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryLogStore) Get(ctx context.Context, sagaID string) (*Log, error) {
	s.mu.RLock()
	raw, ok := s.logs[sagaID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("saga log %s: %w", sagaID, store.ErrNotFound)
	}
	var log Log
	if err := json.Unmarshal(raw, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (s *MemoryLogStore) ListUnfinished(ctx context.Context) ([]*Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Log
	for _, raw := range s.logs {
		var log Log
		if err := json.Unmarshal(raw, &log); err != nil {
			return nil, err
		}
		if !log.Status.IsTerminal() {
			out = append(out, &log)
		}
	}
	return out, nil
}
