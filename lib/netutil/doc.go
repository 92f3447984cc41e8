// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP plumbing shared by the bot API client.
//
// Response helpers ([ReadResponse], [ErrorBody]) bound every body read
// at [MaxResponseSize] so a misbehaving server cannot exhaust memory.
// They are for JSON API responses; file downloads stream with io.Copy.
//
// [NewHTTPClient] builds the client used for API calls: a transport that
// negotiates gzip/zstd response compression via klauspost/compress and
// no client-level timeout, because long-poll calls legitimately hold
// the connection open and are bounded by their context instead.
package netutil
