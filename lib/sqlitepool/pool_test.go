// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/botwire/lib/sqlitepool"
)

func openTestPool(t *testing.T, onConnect func(*sqlite.Conn) error) *sqlitepool.Pool {
	t.Helper()
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      filepath.Join(t.TempDir(), "test.db"),
		OnConnect: onConnect,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestWALMode(t *testing.T) {
	pool := openTestPool(t, nil)

	var journalMode string
	err := pool.With(context.Background(), func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "PRAGMA journal_mode", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				journalMode = stmt.ColumnText(0)
				return nil
			},
		})
	})
	if err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want wal", journalMode)
	}
}

func TestOnConnectCreatesSchema(t *testing.T) {
	pool := openTestPool(t, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, `CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v INTEGER NOT NULL);`, nil)
	})
	ctx := context.Background()

	err := pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "INSERT INTO kv (k, v) VALUES (?, ?)", &sqlitex.ExecOptions{
			Args: []any{"offset", 42},
		})
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	var value int64
	err = pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT v FROM kv WHERE k = ?", &sqlitex.ExecOptions{
			Args: []any{"offset"},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value = stmt.ColumnInt64(0)
				return nil
			},
		})
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if value != 42 {
		t.Errorf("value = %d, want 42", value)
	}
}

func TestOnConnectErrorSurfaces(t *testing.T) {
	pool := openTestPool(t, func(conn *sqlite.Conn) error {
		return errors.New("schema refused")
	})

	if _, err := pool.Take(context.Background()); err == nil {
		t.Fatal("expected Take to surface the OnConnect error")
	}
}

func TestWithPropagatesError(t *testing.T) {
	pool := openTestPool(t, nil)
	sentinel := errors.New("boom")

	err := pool.With(context.Background(), func(conn *sqlite.Conn) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("With() = %v, want sentinel", err)
	}
}
