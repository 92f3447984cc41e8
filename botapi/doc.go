// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package botapi is a client for Telegram-style bot HTTP APIs.
//
// Every remote call is an [Operation]: a struct naming the remote
// method and declaring its result type by embedding [Returns]. [Send]
// turns an operation into a POST to <base>/bot<token>/<method>, with a
// JSON body or, when the operation implements [MultipartOperation] and
// carries uploads, a multipart/form-data body. The response envelope
// is decoded into the declared result type or classified into one of
// three errors:
//
//   - [*NetworkError] -- the request or the response body read failed
//   - [*DecodeError] -- the body is not a valid envelope, or the result
//     does not match the declared type
//   - [*APIError] -- the server answered with ok=false
//
// The transport never retries. Retry policy belongs to the caller.
//
// [Poller] drives getUpdates long polling and owns the update offset:
// after each non-empty batch the offset moves to the highest update id
// plus one, so no update is delivered twice by successful polls. At
// most one poll is in flight per Poller.
//
// [HandlerContext] pairs the shared [Client] with one [Update] and
// offers [HandlerContext.Reply] for answering in the originating chat.
//
// The bot token lives in a [secret.Buffer] owned by the Client. It
// appears only in request URLs; transport errors have it replaced
// before they are returned.
package botapi
