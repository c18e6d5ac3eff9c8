package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/example/ledger-saga/internal/infrastructure/store"
)

// MockEventStore is an in-memory EventStore for testing with call tracking
// and injectable failures.
type MockEventStore struct {
	mu        sync.RWMutex
	events    map[string][]store.Event
	snapshots map[string]*store.Snapshot

	// For tracking calls in tests
	AppendCalls    []store.Event
	AppendErr      error
	AppendCallback func(ctx context.Context, event store.Event) error
}

// NewMockEventStore creates a new MockEventStore
func NewMockEventStore() *MockEventStore {
	return &MockEventStore{
		events:      make(map[string][]store.Event),
		snapshots:   make(map[string]*store.Snapshot),
		AppendCalls: make([]store.Event, 0),
	}
}

// Append stores an event in memory, enforcing the (aggregateID, version)
// uniqueness the real stores enforce.
func (m *MockEventStore) Append(ctx context.Context, event store.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AppendCalls = append(m.AppendCalls, event)

	if m.AppendCallback != nil {
		return m.AppendCallback(ctx, event)
	}
	if m.AppendErr != nil {
		return m.AppendErr
	}

	for _, existing := range m.events[event.AggregateID] {
		if existing.Version == event.Version {
			return &store.ConflictError{AggregateID: event.AggregateID, Version: event.Version}
		}
	}
	m.events[event.AggregateID] = append(m.events[event.AggregateID], event)
	return nil
}

// AppendAll appends sequentially; a mid-batch failure leaves the earlier
// events committed, matching the real stores.
func (m *MockEventStore) AppendAll(ctx context.Context, events []store.Event) error {
	for _, event := range events {
		if err := m.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockEventStore) LoadEvents(ctx context.Context, aggregateID string) ([]store.Event, error) {
	return m.LoadEventsAfterVersion(ctx, aggregateID, 0)
}

func (m *MockEventStore) LoadEventsAfterVersion(ctx context.Context, aggregateID string, version int64) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []store.Event
	for _, event := range m.events[aggregateID] {
		if event.Version > version {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (m *MockEventStore) LoadAllEvents(ctx context.Context, aggregateType string) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []store.Event
	for _, events := range m.events {
		for _, event := range events {
			if event.AggregateType == aggregateType {
				out = append(out, event)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].Version < out[j].Version
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func (m *MockEventStore) EnsureIndexes(ctx context.Context) error { return nil }

func (m *MockEventStore) SaveSnapshot(ctx context.Context, snapshot *store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.AggregateID] = snapshot
	return nil
}

func (m *MockEventStore) LatestSnapshot(ctx context.Context, aggregateID string) (*store.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshots[aggregateID], nil
}

// SetEvents sets events directly for testing
func (m *MockEventStore) SetEvents(aggregateID string, events []store.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[aggregateID] = events
}

// Reset clears all events and recorded calls
func (m *MockEventStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make(map[string][]store.Event)
	m.snapshots = make(map[string]*store.Snapshot)
	m.AppendCalls = make([]store.Event, 0)
	m.AppendErr = nil
	m.AppendCallback = nil
}
