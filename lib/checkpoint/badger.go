// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "checkpoint/"

// Badger keeps the record in an embedded badger database.
type Badger struct {
	db     *badger.DB
	key    []byte
	bot    string
	closed atomic.Bool
}

// NewBadger opens the database in directory path, or an in-memory
// database when path is empty.
func NewBadger(path, key string) (*Badger, error) {
	var options badger.Options
	if path == "" {
		options = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, fmt.Errorf("checkpoint: creating badger directory: %w", err)
		}
		options = badger.DefaultOptions(path).WithSyncWrites(true)
	}
	options = options.WithLogger(nil)

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: opening badger at %q: %w", path, err)
	}
	return &Badger{db: db, key: []byte(badgerKeyPrefix + key), bot: key}, nil
}

func (b *Badger) Load(context.Context) (int64, bool, error) {
	if b.closed.Load() {
		return 0, false, ErrClosed
	}

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("checkpoint: badger get: %w", err)
	}

	offset, err := decodeRecord(b.bot, data)
	if err != nil {
		return 0, false, err
	}
	return offset, true, nil
}

func (b *Badger) Save(_ context.Context, offset int64) error {
	if b.closed.Load() {
		return ErrClosed
	}

	data, err := encodeRecord(b.bot, offset)
	if err != nil {
		return err
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key, data)
	})
	if err != nil {
		return fmt.Errorf("checkpoint: badger set: %w", err)
	}
	return nil
}

func (b *Badger) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}
