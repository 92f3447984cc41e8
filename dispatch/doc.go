// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch runs a bot: it long-polls for updates, filters
// them, and hands each one to an application [Handler].
//
// A [Driver] owns the outer loop the transport leaves to its caller.
// Poll failures are retried with exponential backoff, or after the
// server's retry_after hint when one is given. The offset survives
// restarts through an optional [checkpoint.Store]: it is loaded on
// start, saved after every batch and saved once more on shutdown.
//
// Handlers run on a bounded pool. With Concurrency 1 (the default)
// updates are handled strictly in order; higher values trade per-chat
// ordering for throughput. A handler error or panic is logged and
// counted and never stops the loop.
//
// Delivery is at most once: the offset moves past a batch when the
// batch is received, before its handlers run, so an update whose
// handler was interrupted by a crash is not redelivered.
package dispatch
