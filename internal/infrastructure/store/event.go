package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is an immutable domain fact. Versions are 1-based and strictly
// increasing per aggregate; the (AggregateID, Version) pair is unique in
// every store implementation.
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Version       int64           `json:"version"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewEvent builds an event with a fresh ID and the current timestamp.
// The version must be the aggregate's current version + 1.
func NewEvent(aggregateID, aggregateType, eventType string, version int64, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          data,
		Version:       version,
		OccurredAt:    time.Now().UTC(),
	}, nil
}

var (
	// ErrVersionConflict signals a lost optimistic-concurrency race: another
	// writer already appended an event with the same (aggregateID, version).
	ErrVersionConflict = errors.New("event version conflict")

	// ErrNotFound is returned when an aggregate or read document does not exist.
	ErrNotFound = errors.New("not found")
)

// ConflictError carries the identity of the contested event slot.
// It matches ErrVersionConflict under errors.Is.
type ConflictError struct {
	AggregateID string
	Version     int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: aggregate %s already has an event at version %d",
		e.AggregateID, e.Version)
}

func (e *ConflictError) Unwrap() error { return ErrVersionConflict }

// EventStore is the append-only log of domain events.
//
// AppendAll inserts sequentially and is NOT atomic: on a mid-batch failure
// the earlier events stay committed. Callers must tolerate partial
// application and detect it by reloading the stream.
type EventStore interface {
	Append(ctx context.Context, event Event) error
	AppendAll(ctx context.Context, events []Event) error

	// LoadEvents returns all events for one aggregate, ascending by version.
	LoadEvents(ctx context.Context, aggregateID string) ([]Event, error)

	// LoadEventsAfterVersion returns events with version > the given one,
	// ascending by version. Used to catch up after restoring a snapshot.
	LoadEventsAfterVersion(ctx context.Context, aggregateID string, version int64) ([]Event, error)

	// LoadAllEvents returns every event of one aggregate type, ascending by
	// occurrence time. Only used for full projection rebuilds.
	LoadAllEvents(ctx context.Context, aggregateType string) ([]Event, error)

	// EnsureIndexes sets up the uniqueness constraint on
	// (aggregate_id, version). Idempotent; must run before first use.
	EnsureIndexes(ctx context.Context) error

	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
	LatestSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error)
}
