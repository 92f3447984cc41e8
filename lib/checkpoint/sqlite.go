// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/botwire/lib/sqlitepool"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	bot_key       TEXT PRIMARY KEY,
	update_offset INTEGER NOT NULL,
	saved_at      TEXT NOT NULL
);`

// SQLite keeps one row per bot key, so several bots can share a
// database file.
type SQLite struct {
	pool   *sqlitepool.Pool
	key    string
	closed atomic.Bool
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path, key string, logger *slog.Logger) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("checkpoint: sqlite backend requires a path")
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, sqliteSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	return &SQLite{pool: pool, key: key}, nil
}

func (s *SQLite) Load(ctx context.Context) (int64, bool, error) {
	if s.closed.Load() {
		return 0, false, ErrClosed
	}

	var (
		offset int64
		found  bool
	)
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT update_offset FROM checkpoints WHERE bot_key = ?",
			&sqlitex.ExecOptions{
				Args: []any{s.key},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					offset = stmt.ColumnInt64(0)
					found = true
					return nil
				},
			})
	})
	if err != nil {
		return 0, false, fmt.Errorf("checkpoint: sqlite load: %w", err)
	}
	return offset, found, nil
}

func (s *SQLite) Save(ctx context.Context, offset int64) error {
	if s.closed.Load() {
		return ErrClosed
	}

	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			INSERT INTO checkpoints (bot_key, update_offset, saved_at) VALUES (?, ?, ?)
			ON CONFLICT (bot_key) DO UPDATE SET
				update_offset = excluded.update_offset,
				saved_at = excluded.saved_at`,
			&sqlitex.ExecOptions{
				Args: []any{s.key, offset, time.Now().UTC().Format(time.RFC3339Nano)},
			})
	})
	if err != nil {
		return fmt.Errorf("checkpoint: sqlite save: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.pool.Close()
}
