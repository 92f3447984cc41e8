// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides a small SQLite connection pool on top of
// zombiezen.com/go/sqlite for botwire's local state.
//
// Every connection is prepared with the same pragmas: WAL journaling
// so a reader never waits on the writer, synchronous=NORMAL, and a
// busy timeout so two processes sharing one database file queue for
// the write lock instead of failing. Callers either [Pool.Take] and
// [Pool.Put] a connection themselves or hand a function to
// [Pool.With].
package sqlitepool
