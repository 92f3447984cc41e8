// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/bureau-foundation/botwire/lib/sealed"
	"github.com/bureau-foundation/botwire/lib/secret"
)

// Source kinds.
const (
	KindEnv     = "env"
	KindFile    = "file"
	KindSealed  = "sealed"
	KindKeyring = "keyring"
	KindPrompt  = "prompt"
)

// Options carries the inputs some sources need.
type Options struct {
	// IdentityFile is the age identity file for sealed sources.
	IdentityFile string

	// Terminal is where prompt reads from. Defaults to os.Stdin. When
	// it is not a terminal the first line is read as-is, so the token
	// can be piped in.
	Terminal *os.File

	// PromptOutput receives the prompt text. Defaults to os.Stderr.
	PromptOutput io.Writer

	// Logger receives warnings such as a world-readable token file.
	Logger *slog.Logger
}

// Source is a parsed token source.
type Source struct {
	Kind     string
	Argument string
}

func (s Source) String() string {
	if s.Argument == "" {
		return s.Kind
	}
	return s.Kind + ":" + s.Argument
}

// keyringGet is replaced in tests that need keyring failures the mock
// provider cannot produce.
var keyringGet = keyring.Get

// ParseSource splits a source string and checks that its argument is
// well formed.
func ParseSource(source string) (Source, error) {
	if source == KindPrompt {
		return Source{Kind: KindPrompt}, nil
	}

	kind, argument, found := strings.Cut(source, ":")
	if !found || argument == "" {
		return Source{}, fmt.Errorf("credential: malformed token source %q, want kind:argument or prompt", source)
	}

	switch kind {
	case KindEnv, KindFile, KindSealed:
	case KindKeyring:
		service, user, ok := strings.Cut(argument, "/")
		if !ok || service == "" || user == "" {
			return Source{}, fmt.Errorf("credential: keyring source %q must be keyring:SERVICE/USER", source)
		}
	default:
		return Source{}, fmt.Errorf("credential: unknown token source kind %q", kind)
	}
	return Source{Kind: kind, Argument: argument}, nil
}

// Resolve loads the token named by source. The caller owns the
// returned buffer and must Close it.
func Resolve(ctx context.Context, source string, options Options) (*secret.Buffer, error) {
	parsed, err := ParseSource(source)
	if err != nil {
		return nil, err
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch parsed.Kind {
	case KindEnv:
		value := os.Getenv(parsed.Argument)
		if strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("credential: environment variable %s is empty or unset", parsed.Argument)
		}
		return protect(parsed, []byte(value))

	case KindFile:
		info, err := os.Stat(parsed.Argument)
		if err != nil {
			return nil, fmt.Errorf("credential: %w", err)
		}
		if info.Mode().Perm()&0o077 != 0 {
			logger.Warn("token file is readable by other users",
				"path", parsed.Argument,
				"mode", info.Mode().Perm().String(),
			)
		}
		data, err := os.ReadFile(parsed.Argument)
		if err != nil {
			return nil, fmt.Errorf("credential: %w", err)
		}
		return protect(parsed, data)

	case KindSealed:
		if options.IdentityFile == "" {
			return nil, fmt.Errorf("credential: %s needs an identity file", parsed)
		}
		token, err := sealed.OpenFile(parsed.Argument, options.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("credential: %w", err)
		}
		return token, nil

	case KindKeyring:
		return resolveKeyring(ctx, parsed)

	default:
		return resolvePrompt(options)
	}
}

// resolveKeyring looks the token up in the OS keyring. The lookup can
// block on a desktop secret service, so it honors ctx.
func resolveKeyring(ctx context.Context, source Source) (*secret.Buffer, error) {
	service, user, _ := strings.Cut(source.Argument, "/")

	type lookup struct {
		value string
		err   error
	}
	get := keyringGet
	done := make(chan lookup, 1)
	go func() {
		value, err := get(service, user)
		done <- lookup{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("credential: keyring lookup: %w", ctx.Err())
	case result := <-done:
		if errors.Is(result.err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("credential: no keyring entry for service %q user %q: %w", service, user, result.err)
		}
		if result.err != nil {
			return nil, fmt.Errorf("credential: keyring lookup: %w", result.err)
		}
		return protect(source, []byte(result.value))
	}
}

func resolvePrompt(options Options) (*secret.Buffer, error) {
	input := options.Terminal
	if input == nil {
		input = os.Stdin
	}
	output := options.PromptOutput
	if output == nil {
		output = os.Stderr
	}

	fd := int(input.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(input).ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("credential: reading token from input: %w", err)
		}
		return protect(Source{Kind: KindPrompt}, line)
	}

	fmt.Fprint(output, "Bot token: ")
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(output)
	if err != nil {
		return nil, fmt.Errorf("credential: reading token from terminal: %w", err)
	}
	return protect(Source{Kind: KindPrompt}, data)
}

// protect moves data into a secret buffer, naming the source in the
// error when it holds nothing but whitespace.
func protect(source Source, data []byte) (*secret.Buffer, error) {
	buffer, err := secret.FromTrimmed(data)
	if errors.Is(err, secret.ErrEmpty) {
		return nil, fmt.Errorf("credential: %s holds an empty token: %w", source, err)
	}
	if err != nil {
		return nil, fmt.Errorf("credential: protecting token: %w", err)
	}
	return buffer, nil
}
