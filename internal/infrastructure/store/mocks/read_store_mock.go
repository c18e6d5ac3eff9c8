package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/example/ledger-saga/internal/infrastructure/store"
)

// MockReadStore is an in-memory ReadStore for testing with call tracking
// and injectable failures.
type MockReadStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte // collection -> id -> document

	// For tracking calls in tests
	PutCalls    []PutCall
	DeleteCalls []DeleteCall
	PutErr      error
	GetErr      error
}

// PutCall records parameters passed to Put
type PutCall struct {
	Collection string
	ID         string
	Doc        any
}

// DeleteCall records parameters passed to Delete
type DeleteCall struct {
	Collection string
	ID         string
}

// NewMockReadStore creates a new MockReadStore
func NewMockReadStore() *MockReadStore {
	return &MockReadStore{
		data:        make(map[string]map[string][]byte),
		PutCalls:    make([]PutCall, 0),
		DeleteCalls: make([]DeleteCall, 0),
	}
}

func (m *MockReadStore) Put(ctx context.Context, collection, id string, doc any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCalls = append(m.PutCalls, PutCall{Collection: collection, ID: id, Doc: doc})
	if m.PutErr != nil {
		return m.PutErr
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if m.data[collection] == nil {
		m.data[collection] = make(map[string][]byte)
	}
	m.data[collection][id] = raw
	return nil
}

func (m *MockReadStore) Get(ctx context.Context, collection, id string, out any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return m.GetErr
	}
	raw, ok := m.data[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return json.Unmarshal(raw, out)
}

func (m *MockReadStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, DeleteCall{Collection: collection, ID: id})
	if m.data[collection] != nil {
		delete(m.data[collection], id)
	}
	return nil
}

func (m *MockReadStore) Clear(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, collection)
	return nil
}

func (m *MockReadStore) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]json.RawMessage, 0, len(m.data[collection]))
	for _, raw := range m.data[collection] {
		doc := make(json.RawMessage, len(raw))
		copy(doc, raw)
		out = append(out, doc)
	}
	return out, nil
}

// Reset clears all data and recorded calls
func (m *MockReadStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]map[string][]byte)
	m.PutCalls = make([]PutCall, 0)
	m.DeleteCalls = make([]DeleteCall, 0)
	m.PutErr = nil
	m.GetErr = nil
}
