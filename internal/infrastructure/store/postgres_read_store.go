package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostgresReadStore stores read documents as jsonb rows keyed by
// (collection, id).
type PostgresReadStore struct {
	db *sql.DB
}

func NewPostgresReadStore(db *sql.DB) *PostgresReadStore {
	return &PostgresReadStore{db: db}
}

// EnsureSchema creates the documents table. Safe to run on every start.
func (rs *PostgresReadStore) EnsureSchema(ctx context.Context) error {
	_, err := rs.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS read_documents (
			collection TEXT        NOT NULL,
			id         TEXT        NOT NULL,
			data       JSONB       NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (collection, id)
		)`)
	if err != nil {
		return fmt.Errorf("ensure read schema: %w", err)
	}
	return nil
}

func (rs *PostgresReadStore) Put(ctx context.Context, collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s/%s: %w", collection, id, err)
	}
	_, err = rs.db.ExecContext(ctx,
		`INSERT INTO read_documents (collection, id, data, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (collection, id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		collection, id, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (rs *PostgresReadStore) Get(ctx context.Context, collection, id string, out any) error {
	var raw []byte
	err := rs.db.QueryRowContext(ctx,
		`SELECT data FROM read_documents WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("document %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal(raw, out)
}

func (rs *PostgresReadStore) Delete(ctx context.Context, collection, id string) error {
	_, err := rs.db.ExecContext(ctx,
		`DELETE FROM read_documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (rs *PostgresReadStore) Clear(ctx context.Context, collection string) error {
	_, err := rs.db.ExecContext(ctx,
		`DELETE FROM read_documents WHERE collection = $1`, collection)
	if err != nil {
		return fmt.Errorf("clear collection %s: %w", collection, err)
	}
	return nil
}

func (rs *PostgresReadStore) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	rows, err := rs.db.QueryContext(ctx,
		`SELECT data FROM read_documents WHERE collection = $1`, collection)
	if err != nil {
		return nil, fmt.Errorf("list collection %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, json.RawMessage(raw))
	}
	return docs, rows.Err()
}
