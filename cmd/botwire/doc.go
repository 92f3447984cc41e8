// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// botwire runs a bot against the Telegram Bot API and provides a few
// operator commands around it.
//
// Subcommands:
//
//	run               long-poll and dispatch updates until interrupted
//	whoami            print the bot account the token belongs to
//	fetch ID DEST     download a file by file id
//	keygen            generate an age keypair for sealed tokens
//	seal              encrypt a token read from stdin to age recipients
//	version           print version information
//
// Configuration comes from --config or BOTWIRE_CONFIG (see lib/config).
// With neither, built-in defaults apply and the token is read from
// BOTWIRE_TOKEN.
package main
