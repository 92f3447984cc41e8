// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrEmpty is returned when a buffer would hold no data.
var ErrEmpty = errors.New("secret: empty value")

// Buffer is protected storage for one secret value. The zero value is
// not usable; construct with [FromBytes] or [FromString]. Safe for
// concurrent readers.
type Buffer struct {
	mu     sync.RWMutex
	region []byte
	size   int
	closed bool
}

// FromBytes moves source into a new protected Buffer and zeroes
// source. Returns ErrEmpty if source has no bytes.
func FromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, ErrEmpty
	}
	region, err := allocate(len(source))
	if err != nil {
		Zero(source)
		return nil, err
	}
	copy(region, source)
	Zero(source)
	return &Buffer{region: region, size: len(source)}, nil
}

// FromString copies value into a new protected Buffer. The string
// itself stays on the heap; prefer FromBytes when the caller owns a
// mutable slice.
func FromString(value string) (*Buffer, error) {
	return FromBytes([]byte(value))
}

// FromTrimmed is FromBytes after stripping surrounding whitespace, for
// values read from files or terminals that end in a newline. The whole
// of source is zeroed either way.
func FromTrimmed(source []byte) (*Buffer, error) {
	trimmed := bytes.TrimSpace(source)
	if len(trimmed) == 0 {
		Zero(source)
		return nil, ErrEmpty
	}
	buffer, err := FromBytes(trimmed)
	Zero(source)
	return buffer, err
}

func allocate(size int) ([]byte, error) {
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Mlock(region); err != nil {
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: mlock: %w", err)
	}
	// MADV_DONTDUMP is best effort; some kernels and sandboxes reject it
	// and the region is still locked against swap.
	_ = unix.Madvise(region, unix.MADV_DONTDUMP)
	return region, nil
}

// String returns a heap copy of the secret. Use only where an API
// demands a string, such as building a request URL. Panics after Close.
func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return string(b.region[:b.size])
}

// Bytes returns the protected bytes without copying. The slice is
// invalid after Close. Panics after Close.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.region[:b.size]
}

// Len returns the secret's length in bytes.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Close zeroes and releases the region. Idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	Zero(b.region)

	var errs []error
	if err := unix.Munlock(b.region); err != nil {
		errs = append(errs, fmt.Errorf("secret: munlock: %w", err))
	}
	if err := unix.Munmap(b.region); err != nil {
		errs = append(errs, fmt.Errorf("secret: munmap: %w", err))
	}
	b.region = nil
	return errors.Join(errs...)
}

// Zero overwrites data with zero bytes.
func Zero(data []byte) {
	for index := range data {
		data[index] = 0
	}
}
