// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/bureau-foundation/botwire/botapi"
	"github.com/bureau-foundation/botwire/lib/config"
	"github.com/bureau-foundation/botwire/lib/credential"
	"github.com/bureau-foundation/botwire/lib/sealed"
)

// runWhoami prints the account the configured token belongs to.
func runWhoami(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	logger := newLogger(cfg.Logging, os.Stderr)
	client, err := newClient(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("getMe: %w", err)
	}
	fmt.Fprintf(stdout, "id:       %d\n", me.ID)
	fmt.Fprintf(stdout, "username: @%s\n", me.Username)
	fmt.Fprintf(stdout, "name:     %s\n", me.FirstName)
	fmt.Fprintf(stdout, "is_bot:   %t\n", me.IsBot)
	return nil
}

// runFetch resolves fileID with getFile and downloads it to dest on
// fs. The file appears at dest only once the download is complete.
func runFetch(ctx context.Context, cfg *config.Config, fs afero.Fs, fileID, dest string, stdout io.Writer) error {
	logger := newLogger(cfg.Logging, os.Stderr)
	client, err := newClient(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	file, err := botapi.Send[botapi.File](ctx, client, botapi.GetFile{FileID: fileID})
	if err != nil {
		return fmt.Errorf("getFile %s: %w", fileID, err)
	}
	if file.FilePath == "" {
		return fmt.Errorf("getFile %s: server returned no file_path", fileID)
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	partial := dest + ".part"
	output, err := fs.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", partial, err)
	}

	download, err := client.DownloadFile(ctx, file.FilePath, output)
	closeErr := output.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		fs.Remove(partial)
		return fmt.Errorf("downloading %s: %w", fileID, err)
	}
	if err := fs.Rename(partial, dest); err != nil {
		fs.Remove(partial)
		return fmt.Errorf("moving download into place: %w", err)
	}

	fmt.Fprintf(stdout, "%s  %d bytes  blake3:%s\n", dest, download.Size, download.DigestHex())
	return nil
}

// runKeygen prints a new age keypair: the public key on stdout, the
// private key on stderr.
func runKeygen(stdout io.Writer, opts options) error {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return fmt.Errorf("generating keypair: %w", err)
	}
	defer keypair.Close()

	if opts.output != "" {
		if err := writeIdentity(afero.NewOsFs(), opts.output, keypair); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(os.Stderr, "# private key, store it as an identity file:\n%s\n", keypair.PrivateKey.String())
	}
	fmt.Fprintf(stdout, "%s\n", keypair.PublicKey)
	return nil
}

// writeIdentity writes the private key to path, readable only by the
// owner.
func writeIdentity(fs afero.Fs, path string, keypair *sealed.Keypair) error {
	file, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	_, err = file.Write(keypair.PrivateKey.Bytes())
	if err == nil {
		_, err = file.Write([]byte("\n"))
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fs.Remove(path)
		return fmt.Errorf("writing identity file: %w", err)
	}
	return nil
}

// runSeal encrypts a token read from stdin for use as a sealed: token
// source.
func runSeal(ctx context.Context, stdin *os.File, stdout io.Writer, opts options) error {
	if len(opts.recipients) == 0 {
		return errors.New("seal requires at least one --recipient")
	}

	token, err := credential.Resolve(ctx, credential.KindPrompt, credential.Options{
		Terminal:     stdin,
		PromptOutput: os.Stderr,
	})
	if err != nil {
		return err
	}
	defer token.Close()

	ciphertext, err := sealed.Seal(token.Bytes(), opts.recipients, opts.armor)
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := afero.WriteFile(afero.NewOsFs(), opts.output, ciphertext, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", opts.output, err)
		}
		return nil
	}
	_, err = stdout.Write(ciphertext)
	return err
}
