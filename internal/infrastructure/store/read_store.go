package store

import (
	"context"
	"encoding/json"
)

// ReadStore is the document-store boundary for projected read models.
// Documents are JSON, addressed by (collection, id). Any store with atomic
// single-document upserts satisfies it.
type ReadStore interface {
	// Put upserts a document.
	Put(ctx context.Context, collection, id string, doc any) error

	// Get unmarshals the document into out; ErrNotFound if absent.
	Get(ctx context.Context, collection, id string, out any) error

	Delete(ctx context.Context, collection, id string) error

	// Clear drops every document in the collection. Used by full rebuilds.
	Clear(ctx context.Context, collection string) error

	// List returns the raw documents of a collection, in unspecified order.
	List(ctx context.Context, collection string) ([]json.RawMessage, error)
}
