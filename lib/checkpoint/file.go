// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// File keeps the offset in a single CBOR file. Save writes a sibling
// temporary file and renames it over the old one, so a crash leaves
// either the old or the new record, never a torn one.
type File struct {
	fs   afero.Fs
	path string
	key  string

	mu     sync.Mutex
	closed bool
}

// NewFile returns a file store at path on fs, creating the parent
// directory if needed.
func NewFile(fs afero.Fs, path, key string) (*File, error) {
	if path == "" {
		return nil, errors.New("checkpoint: file backend requires a path")
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("checkpoint: creating directory for %s: %w", path, err)
	}
	return &File{fs: fs, path: path, key: key}, nil
}

func (f *File) Load(context.Context) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, false, ErrClosed
	}

	data, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("checkpoint: reading %s: %w", f.path, err)
	}

	offset, err := decodeRecord(f.key, data)
	if err != nil {
		return 0, false, err
	}
	return offset, true, nil
}

func (f *File) Save(_ context.Context, offset int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	data, err := encodeRecord(f.key, offset)
	if err != nil {
		return err
	}

	temporary := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, temporary, data, 0o600); err != nil {
		return fmt.Errorf("checkpoint: writing %s: %w", temporary, err)
	}
	if err := f.fs.Rename(temporary, f.path); err != nil {
		f.fs.Remove(temporary)
		return fmt.Errorf("checkpoint: replacing %s: %w", f.path, err)
	}
	return nil
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
