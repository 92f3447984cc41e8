// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds bot credentials in memory that the Go runtime
// never sees.
//
// A [Buffer] is an anonymous mmap region, locked against swap and
// excluded from core dumps. The bot token lives in one for the life of
// a botapi.Client and is only copied onto the heap at the moment a
// request URL is built. [Buffer.Close] zeroes and unmaps the region.
//
// Constructors copy their input and zero the source slice, so a caller
// that reads a token from a file, the environment or the terminal is
// left holding nothing after the hand-off.
package secret
