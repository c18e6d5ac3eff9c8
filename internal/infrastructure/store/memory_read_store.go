package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryReadStore is an in-memory ReadStore for tests and demos.
type MemoryReadStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte // collection -> id -> document
}

func NewMemoryReadStore() *MemoryReadStore {
	return &MemoryReadStore{data: make(map[string]map[string][]byte)}
}

func (rs *MemoryReadStore) Put(ctx context.Context, collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s/%s: %w", collection, id, err)
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.data[collection] == nil {
		rs.data[collection] = make(map[string][]byte)
	}
	rs.data[collection][id] = raw
	return nil
}

func (rs *MemoryReadStore) Get(ctx context.Context, collection, id string, out any) error {
	rs.mu.RLock()
	raw, ok := rs.data[collection][id]
	rs.mu.RUnlock()
	if !ok {
		return fmt.Errorf("document %s/%s: %w", collection, id, ErrNotFound)
	}
	return json.Unmarshal(raw, out)
}

func (rs *MemoryReadStore) Delete(ctx context.Context, collection, id string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.data[collection], id)
	return nil
}

func (rs *MemoryReadStore) Clear(ctx context.Context, collection string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.data, collection)
	return nil
}

func (rs *MemoryReadStore) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	var docs []json.RawMessage
	for _, raw := range rs.data[collection] {
		docs = append(docs, json.RawMessage(raw))
	}
	return docs, nil
}
