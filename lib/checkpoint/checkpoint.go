// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package checkpoint persists the update offset between runs so a
// restarted bot resumes where it stopped instead of replaying or
// skipping the server's queue.
//
// A [Store] holds one offset under a bot key. Backends:
//
//   - memory -- process lifetime only
//   - file -- one CBOR record, replaced atomically by rename
//   - sqlite -- a row per bot key in a local database
//   - redis -- a CBOR value per bot key, for bots without local disk
//   - badger -- a CBOR value per bot key in an embedded KV store
//
// [Open] selects a backend by name.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/bureau-foundation/botwire/lib/codec"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// DefaultKey is used when Config.Key is empty.
const DefaultKey = "default"

// ErrClosed is returned by Load and Save after Close.
var ErrClosed = errors.New("checkpoint: store closed")

// Store saves and restores one offset. Implementations are safe for
// concurrent use.
type Store interface {
	// Load returns the saved offset. The bool is false when nothing
	// has been saved yet.
	Load(ctx context.Context) (int64, bool, error)

	// Save records offset, replacing any earlier value.
	Save(ctx context.Context, offset int64) error

	// Close releases the backend. Idempotent.
	Close() error
}

// Record is the serialized form used by the file, redis and badger
// backends.
type Record struct {
	Key     string    `cbor:"key"`
	Offset  int64     `cbor:"offset"`
	SavedAt time.Time `cbor:"saved_at"`
}

func encodeRecord(key string, offset int64) ([]byte, error) {
	data, err := codec.Marshal(Record{Key: key, Offset: offset, SavedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: encoding record: %w", err)
	}
	return data, nil
}

func decodeRecord(key string, data []byte) (int64, error) {
	var record Record
	if err := codec.Unmarshal(data, &record); err != nil {
		return 0, fmt.Errorf("checkpoint: decoding record: %w", err)
	}
	if record.Key != key {
		return 0, fmt.Errorf("checkpoint: record belongs to bot %q, not %q", record.Key, key)
	}
	return record.Offset, nil
}

// Config selects and configures a backend.
type Config struct {
	// Backend is one of the Backend* names.
	Backend string

	// Path is the file (file, sqlite) or directory (badger). An empty
	// badger path opens an in-memory database.
	Path string

	// Key names the bot within a shared store.
	Key string

	// RedisAddr is host:port for the redis backend.
	RedisAddr string

	// Fs is the filesystem for the file backend. Defaults to the OS.
	Fs afero.Fs

	// Logger receives open messages. Defaults to slog.Default().
	Logger *slog.Logger
}

// Open creates the configured store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case BackendMemory:
		store = NewMemory()
	case BackendFile:
		fs := cfg.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		store, err = NewFile(fs, cfg.Path, key)
	case BackendSQLite:
		store, err = NewSQLite(cfg.Path, key, logger)
	case BackendRedis:
		store, err = NewRedis(ctx, cfg.RedisAddr, key)
	case BackendBadger:
		store, err = NewBadger(cfg.Path, key)
	default:
		return nil, fmt.Errorf("checkpoint: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("checkpoint store opened",
		"backend", cfg.Backend,
		"path", cfg.Path,
		"key", key,
	)
	return store, nil
}
