package saga

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/ledger-saga/internal/infrastructure/store"
)

// PostgresLogStore persists saga logs as jsonb rows. The status column is
// duplicated out of the document so stuck sagas can be found with an index
// scan.
type PostgresLogStore struct {
	db *sql.DB
}

func NewPostgresLogStore(db *sql.DB) *PostgresLogStore {
	return &PostgresLogStore{db: db}
}

// EnsureSchema creates the saga_logs table. Safe to run on every start.
func (s *PostgresLogStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS saga_logs (
			saga_id    TEXT PRIMARY KEY,
			saga_type  TEXT        NOT NULL,
			status     TEXT        NOT NULL,
			data       JSONB       NOT NULL,
			started_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_saga_logs_status ON saga_logs (status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure saga log schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresLogStore) Save(ctx context.Context, log *Log) error {
	raw, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal saga log: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO saga_logs (saga_id, saga_type, status, data, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		log.SagaID, log.SagaType, string(log.Status), raw, log.StartedAt)
	if err != nil {
		return fmt.Errorf("insert saga log %s: %w", log.SagaID, err)
	}
	return nil
}

func (s *PostgresLogStore) Update(ctx context.Context, log *Log) error {
	raw, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal saga log: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE saga_logs SET status = $2, data = $3 WHERE saga_id = $1`,
		log.SagaID, string(log.Status), raw)
	if err != nil {
		return fmt.Errorf("update saga log %s: %w", log.SagaID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("saga log %s: %w", log.SagaID, store.ErrNotFound)
	}
	return nil
}

func (s *PostgresLogStore) Get(ctx context.Context, sagaID string) (*Log, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM saga_logs WHERE saga_id = $1`, sagaID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("saga log %s: %w", sagaID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get saga log %s: %w", sagaID, err)
	}
	var log Log
	if err := json.Unmarshal(raw, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (s *PostgresLogStore) ListUnfinished(ctx context.Context) ([]*Log, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM saga_logs WHERE status IN ($1, $2, $3)`,
		string(StatusStarted), string(StatusRunning), string(StatusCompensating))
	if err != nil {
		return nil, fmt.Errorf("list unfinished sagas: %w", err)
	}
	defer rows.Close()

	var out []*Log
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var log Log
		if err := json.Unmarshal(raw, &log); err != nil {
			return nil, err
		}
		out = append(out, &log)
	}
	return out, rows.Err()
}
