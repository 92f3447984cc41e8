// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for botwire packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern used when a test waits on a goroutine (a handler invoked by
// the driver, a poll issued against an httptest server). They are the
// only place tests use real wall-clock timeouts, and only as a hang
// guard.
package testutil
