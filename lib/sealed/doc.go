// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed stores bot tokens at rest with age encryption. A
// sealed token file is an age ciphertext, binary or ASCII-armored,
// whose plaintext is the token. Decrypted plaintext and generated
// private keys are returned as [secret.Buffer] values backed by mmap
// memory outside the Go heap.
//
// Key exports:
//
//   - [GenerateKeypair] -- new age x25519 keypair in a secret.Buffer
//   - [Seal] -- encrypt a token to age public key recipients
//   - [Open] / [OpenFile] -- decrypt with identities from an identity file
//   - [LoadIdentities] -- parse an age identity file
package sealed
