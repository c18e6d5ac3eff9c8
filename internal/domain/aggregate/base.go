package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/ledger-saga/internal/infrastructure/store"
)

// ErrInvariantViolation is the root of every domain-rule rejection. It is
// not retryable; commands that return it leave the aggregate unchanged.
var ErrInvariantViolation = errors.New("invariant violation")

// Aggregate is an event-sourced consistency boundary. State is only ever a
// fold of the aggregate's events; Apply must be deterministic and free of
// side effects.
type Aggregate interface {
	GetID() string
	GetVersion() int64
	Apply(store.Event) error
}

// Recorder buffers events produced by command methods. Extracting the
// buffer and appending it to the store is the only write path.
type Recorder struct {
	pending []store.Event
}

func (r *Recorder) Record(event store.Event) {
	r.pending = append(r.pending, event)
}

func (r *Recorder) UncommittedEvents() []store.Event {
	out := make([]store.Event, len(r.pending))
	copy(out, r.pending)
	return out
}

func (r *Recorder) ClearUncommittedEvents() {
	r.pending = nil
}

// Load reconstructs an aggregate: restore the latest snapshot if one
// exists, then replay the remaining events in version order. The boolean
// reports whether any data was found.
func Load[T Aggregate](ctx context.Context, es store.EventStore, id string, newAggregate func() T) (T, bool, error) {
	agg := newAggregate()

	snapshot, err := es.LatestSnapshot(ctx, id)
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("load snapshot: %w", err)
	}

	var events []store.Event
	if snapshot != nil {
		if err := json.Unmarshal(snapshot.State, agg); err != nil {
			var zero T
			return zero, false, fmt.Errorf("restore snapshot: %w", err)
		}
		events, err = es.LoadEventsAfterVersion(ctx, id, snapshot.Version)
	} else {
		events, err = es.LoadEvents(ctx, id)
	}
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("load events: %w", err)
	}

	hasData := snapshot != nil || len(events) > 0
	for _, event := range events {
		if err := agg.Apply(event); err != nil {
			var zero T
			return zero, false, fmt.Errorf("apply event %s v%d: %w", event.EventType, event.Version, err)
		}
	}
	return agg, hasData, nil
}

// Commit appends the aggregate's uncommitted events and clears the buffer.
// On failure the buffer is kept and the in-memory aggregate must be
// considered stale: reload before retrying.
func Commit(ctx context.Context, es store.EventStore, agg interface {
	UncommittedEvents() []store.Event
	ClearUncommittedEvents()
}) ([]store.Event, error) {
	events := agg.UncommittedEvents()
	if err := es.AppendAll(ctx, events); err != nil {
		return nil, err
	}
	agg.ClearUncommittedEvents()
	return events, nil
}

// MaybeSnapshot stores a snapshot when the aggregate's version crosses the
// threshold.
func MaybeSnapshot(ctx context.Context, es store.EventStore, agg Aggregate, aggregateType string) error {
	version := agg.GetVersion()
	if version == 0 || version%store.SnapshotThreshold != 0 {
		return nil
	}
	state, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("marshal aggregate state: %w", err)
	}
	return es.SaveSnapshot(ctx, &store.Snapshot{
		AggregateID:   agg.GetID(),
		AggregateType: aggregateType,
		Version:       version,
		State:         state,
		CreatedAt:     time.Now().UTC(),
	})
}
