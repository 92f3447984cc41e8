// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/bureau-foundation/botwire/lib/secret"
)

// Keypair holds an age x25519 keypair. The public key is safe to
// publish; the private key lives in a secret.Buffer.
//
// The caller must call Close when the keypair is no longer needed.
type Keypair struct {
	// PrivateKey is the secret key in AGE-SECRET-KEY-1... format.
	PrivateKey *secret.Buffer

	// PublicKey is the corresponding recipient in age1... format.
	PublicKey string
}

// Close releases the private key memory. Idempotent.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair generates a new age x25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating age keypair: %w", err)
	}

	// The string form stays on the heap until collected; age only
	// exposes the key that way.
	privateKey, err := secret.FromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting private key: %w", err)
	}

	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Seal encrypts plaintext to one or more age public keys. With armor
// set the result is PEM-style text suitable for checking into a
// configuration repository; otherwise it is the binary age format.
func Seal(plaintext []byte, recipientKeys []string, armored bool) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, errors.New("sealed: at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("sealed: parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	var destination io.Writer = &ciphertext
	var armorWriter io.WriteCloser
	if armored {
		armorWriter = armor.NewWriter(&ciphertext)
		destination = armorWriter
	}

	writer, err := age.Encrypt(destination, recipients...)
	if err != nil {
		return nil, fmt.Errorf("sealed: creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("sealed: writing plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("sealed: finalizing encryption: %w", err)
	}
	if armorWriter != nil {
		if err := armorWriter.Close(); err != nil {
			return nil, fmt.Errorf("sealed: finalizing armor: %w", err)
		}
	}

	return ciphertext.Bytes(), nil
}

// Open decrypts a sealed token with any of the given identities. The
// format (armored or binary) is detected from the content. The
// plaintext is trimmed of surrounding whitespace and moved into a
// secret.Buffer; the caller must Close it.
func Open(ciphertext []byte, identities ...age.Identity) (*secret.Buffer, error) {
	if len(identities) == 0 {
		return nil, errors.New("sealed: at least one identity is required")
	}

	var source io.Reader = bytes.NewReader(ciphertext)
	if bytes.HasPrefix(bytes.TrimSpace(ciphertext), []byte(armor.Header)) {
		source = armor.NewReader(bytes.NewReader(bytes.TrimSpace(ciphertext)))
	}

	reader, err := age.Decrypt(source, identities...)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("sealed: reading decrypted plaintext: %w", err)
	}

	buffer, err := secret.FromTrimmed(plaintext)
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting decrypted plaintext: %w", err)
	}
	return buffer, nil
}

// LoadIdentities parses an age identity file: one AGE-SECRET-KEY-1
// line per identity, blank lines and # comments ignored.
func LoadIdentities(path string) ([]age.Identity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sealed: opening identity file: %w", err)
	}
	defer file.Close()

	identities, err := age.ParseIdentities(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing identity file %s: %w", path, err)
	}
	return identities, nil
}

// OpenFile reads the sealed token at path and decrypts it with the
// identities in identityFile.
func OpenFile(path, identityFile string) (*secret.Buffer, error) {
	identities, err := LoadIdentities(identityFile)
	if err != nil {
		return nil, err
	}

	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading %s: %w", path, err)
	}
	return Open(ciphertext, identities...)
}
