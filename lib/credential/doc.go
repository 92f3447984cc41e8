// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential resolves the bot token from a configured source
// into a [secret.Buffer]. A source is a short string naming where the
// token lives:
//
//   - env:NAME -- an environment variable
//   - file:PATH -- a plaintext file, trimmed of surrounding whitespace
//   - sealed:PATH -- an age-encrypted file opened with Options.IdentityFile
//   - keyring:SERVICE/USER -- the operating system keyring
//   - prompt -- read from the terminal without echo
//
// The token never passes through a log line or an error message.
package credential
