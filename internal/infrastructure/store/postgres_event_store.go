package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/example/ledger-saga/internal/infrastructure/kafka"
)

// PostgresEventStore persists events in PostgreSQL. The unique index on
// (aggregate_id, version) is the sole concurrency gate for aggregates.
type PostgresEventStore struct {
	db       *sql.DB
	producer *kafka.Producer
}

func NewPostgresEventStore(db *sql.DB, producer *kafka.Producer) *PostgresEventStore {
	return &PostgresEventStore{db: db, producer: producer}
}

func (es *PostgresEventStore) Append(ctx context.Context, event Event) error {
	_, err := es.db.ExecContext(ctx,
		`INSERT INTO events (id, aggregate_id, aggregate_type, event_type, data, version, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID,
		event.AggregateID,
		event.AggregateType,
		event.EventType,
		[]byte(event.Data),
		event.Version,
		event.OccurredAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return &ConflictError{AggregateID: event.AggregateID, Version: event.Version}
		}
		return fmt.Errorf("insert event: %w", err)
	}

	if es.producer != nil {
		if err := es.producer.Publish(ctx, event.AggregateID, event); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
	}
	return nil
}

// AppendAll inserts sequentially. A conflict mid-batch leaves the earlier
// inserts committed; the caller detects partial application by reloading.
func (es *PostgresEventStore) AppendAll(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := es.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (es *PostgresEventStore) LoadEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	return es.queryEvents(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, occurred_at
		 FROM events WHERE aggregate_id = $1 ORDER BY version ASC`,
		aggregateID)
}

func (es *PostgresEventStore) LoadEventsAfterVersion(ctx context.Context, aggregateID string, version int64) ([]Event, error) {
	return es.queryEvents(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, occurred_at
		 FROM events WHERE aggregate_id = $1 AND version > $2 ORDER BY version ASC`,
		aggregateID, version)
}

func (es *PostgresEventStore) LoadAllEvents(ctx context.Context, aggregateType string) ([]Event, error) {
	return es.queryEvents(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, occurred_at
		 FROM events WHERE aggregate_type = $1 ORDER BY occurred_at ASC, version ASC`,
		aggregateType)
}

func (es *PostgresEventStore) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := es.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var data []byte
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &data, &e.Version, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Data = data
		events = append(events, e)
	}
	return events, rows.Err()
}

// EnsureIndexes creates the event and snapshot tables and the unique
// compound index. Safe to run on every start.
func (es *PostgresEventStore) EnsureIndexes(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id             TEXT PRIMARY KEY,
			aggregate_id   TEXT        NOT NULL,
			aggregate_type TEXT        NOT NULL,
			event_type     TEXT        NOT NULL,
			data           JSONB       NOT NULL,
			version        BIGINT      NOT NULL,
			occurred_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_events_aggregate_version
			ON events (aggregate_id, version)`,
		`CREATE INDEX IF NOT EXISTS ix_events_type_occurred
			ON events (aggregate_type, occurred_at)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			aggregate_id   TEXT        NOT NULL,
			aggregate_type TEXT        NOT NULL,
			version        BIGINT      NOT NULL,
			state          JSONB       NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (aggregate_id, version)
		)`,
	}
	for _, stmt := range statements {
		if _, err := es.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
	}
	return nil
}

func (es *PostgresEventStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	_, err := es.db.ExecContext(ctx,
		`INSERT INTO snapshots (aggregate_id, aggregate_type, version, state, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (aggregate_id, version) DO NOTHING`,
		snapshot.AggregateID, snapshot.AggregateType, snapshot.Version,
		[]byte(snapshot.State), snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (es *PostgresEventStore) LatestSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error) {
	row := es.db.QueryRowContext(ctx,
		`SELECT aggregate_id, aggregate_type, version, state, created_at
		 FROM snapshots WHERE aggregate_id = $1
		 ORDER BY version DESC LIMIT 1`,
		aggregateID)

	var s Snapshot
	var state []byte
	err := row.Scan(&s.AggregateID, &s.AggregateType, &s.Version, &state, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	s.State = state
	return &s, nil
}

// ConnectPostgres opens a connection pool and verifies it.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}
