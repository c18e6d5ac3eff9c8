package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/ledger-saga/internal/infrastructure/kafka"
)

// MemoryEventStore keeps events in memory. Used in tests and demos; the
// uniqueness constraint on (aggregateID, version) is enforced under a lock.
type MemoryEventStore struct {
	mu        sync.RWMutex
	events    map[string][]Event // aggregateID -> events, version ascending
	snapshots map[string]*Snapshot
	producer  *kafka.Producer
}

func NewMemoryEventStore(producer *kafka.Producer) *MemoryEventStore {
	return &MemoryEventStore{
		events:    make(map[string][]Event),
		snapshots: make(map[string]*Snapshot),
		producer:  producer,
	}
}

func (es *MemoryEventStore) Append(ctx context.Context, event Event) error {
	es.mu.Lock()
	for _, existing := range es.events[event.AggregateID] {
		if existing.Version == event.Version {
			es.mu.Unlock()
			return &ConflictError{AggregateID: event.AggregateID, Version: event.Version}
		}
	}
	es.events[event.AggregateID] = append(es.events[event.AggregateID], event)
	sort.SliceStable(es.events[event.AggregateID], func(i, j int) bool {
		return es.events[event.AggregateID][i].Version < es.events[event.AggregateID][j].Version
	})
	es.mu.Unlock()

	if es.producer != nil {
		if err := es.producer.Publish(ctx, event.AggregateID, event); err != nil {
			return err
		}
	}
	return nil
}

// AppendAll appends sequentially; earlier events stay committed if a later
// one conflicts.
func (es *MemoryEventStore) AppendAll(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := es.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (es *MemoryEventStore) LoadEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	out := make([]Event, len(es.events[aggregateID]))
	copy(out, es.events[aggregateID])
	return out, nil
}

func (es *MemoryEventStore) LoadEventsAfterVersion(ctx context.Context, aggregateID string, version int64) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	var out []Event
	for _, event := range es.events[aggregateID] {
		if event.Version > version {
			out = append(out, event)
		}
	}
	return out, nil
}

func (es *MemoryEventStore) LoadAllEvents(ctx context.Context, aggregateType string) ([]Event, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	var out []Event
	for _, events := range es.events {
		for _, event := range events {
			if event.AggregateType == aggregateType {
				out = append(out, event)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].Version < out[j].Version
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func (es *MemoryEventStore) EnsureIndexes(ctx context.Context) error { return nil }

func (es *MemoryEventStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	es.mu.Lock()
	defer es.mu.Unlock()
	current, ok := es.snapshots[snapshot.AggregateID]
	if !ok || snapshot.Version > current.Version {
		es.snapshots[snapshot.AggregateID] = snapshot
	}
	return nil
}

func (es *MemoryEventStore) LatestSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.snapshots[aggregateID], nil
}
