package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bryanwahyu/market-intel/internal/history"
)

// KVBackend stores the history blob in one row of app_state.
type KVBackend struct {
	db  *sql.DB
	key string
}

var _ history.Backend = (*KVBackend)(nil)

func NewKVBackend(db *sql.DB) *KVBackend {
	return &KVBackend{db: db, key: history.StorageKey}
}

func (b *KVBackend) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS app_state (
  state_key   TEXT PRIMARY KEY,
  state_value BLOB NOT NULL,
  updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	_, err := b.db.ExecContext(ctx, q)
	return err
}

func (b *KVBackend) Load(ctx context.Context) ([]byte, error) {
	const q = `SELECT state_value FROM app_state WHERE state_key = ?`
	var v []byte
	err := b.db.QueryRowContext(ctx, q, b.key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (b *KVBackend) Save(ctx context.Context, data []byte) error {
	const q = `
INSERT INTO app_state (state_key, state_value, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(state_key) DO UPDATE SET
  state_value = excluded.state_value,
  updated_at  = excluded.updated_at;`
	_, err := b.db.ExecContext(ctx, q, b.key, data)
	return err
}
