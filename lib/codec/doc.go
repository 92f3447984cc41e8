// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the binary encoding for botwire's persisted state.
//
// Checkpoint records (the last acknowledged update offset and when it
// was written) are stored as CBOR using Core Deterministic Encoding
// (RFC 8949 §4.2): the same record always produces the same bytes, so
// stores can compare before writing and operators can diff dumps.
// Decoding ignores unknown fields so records written by a newer
// version remain readable.
package codec
