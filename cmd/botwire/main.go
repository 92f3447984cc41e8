// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/botwire/lib/config"
	"github.com/bureau-foundation/botwire/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options are the command-line flags shared by every subcommand.
type options struct {
	configPath    string
	tokenSource   string
	verbose       bool
	showVersion   bool
	metricsListen string

	// run
	echo bool

	// seal
	recipients []string
	armor      bool
	output     string
}

func run(ctx context.Context, args []string, stdin *os.File, stdout io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("botwire", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to the config file (default: $BOTWIRE_CONFIG)")
	flagSet.StringVar(&opts.tokenSource, "token", "", "token source, e.g. env:NAME, file:PATH, sealed:PATH, keyring:SERVICE/USER, prompt")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	flagSet.StringVar(&opts.metricsListen, "metrics-listen", "", "serve /metrics on this address (run only)")
	flagSet.BoolVar(&opts.echo, "echo", false, "reply to every message with its own text (run only)")
	flagSet.StringSliceVarP(&opts.recipients, "recipient", "r", nil, "age recipient public key (seal only, repeatable)")
	flagSet.BoolVarP(&opts.armor, "armor", "a", false, "write PEM-armored output (seal only)")
	flagSet.StringVarP(&opts.output, "output", "o", "", "write to this file instead of stdout (seal only)")
	flagSet.SetOutput(io.Discard)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(stdout, flagSet)
			return nil
		}
		return err
	}

	if opts.showVersion {
		version.Print(stdout, "botwire")
		return nil
	}

	positional := flagSet.Args()
	if len(positional) == 0 {
		printUsage(stdout, flagSet)
		return errors.New("subcommand required")
	}

	subcommand, rest := positional[0], positional[1:]
	switch subcommand {
	case "version":
		version.Print(stdout, "botwire")
		return nil
	case "help":
		printUsage(stdout, flagSet)
		return nil
	case "keygen":
		return runKeygen(stdout, opts)
	case "seal":
		return runSeal(ctx, stdin, stdout, opts)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	switch subcommand {
	case "run":
		return runBot(ctx, cfg, opts)
	case "whoami":
		return runWhoami(ctx, cfg, stdout)
	case "fetch":
		if len(rest) != 2 {
			return errors.New("usage: botwire fetch FILE_ID DEST")
		}
		return runFetch(ctx, cfg, afero.NewOsFs(), rest[0], rest[1], stdout)
	default:
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

// loadConfig reads the config file and applies the flag overrides.
func loadConfig(opts options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.LoadOrDefault()
	}
	if err != nil {
		return nil, err
	}

	if opts.tokenSource != "" {
		cfg.API.TokenSource = opts.tokenSource
	}
	if opts.metricsListen != "" {
		cfg.Metrics.Listen = opts.metricsListen
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `Usage: botwire [flags] <subcommand> [args]

Subcommands:
  run               Long-poll and dispatch updates until interrupted
  whoami            Print the bot account the token belongs to
  fetch ID DEST     Download a file by file id
  keygen            Generate an age keypair for sealed tokens
  seal              Encrypt a token read from stdin to age recipients
  version           Print version information

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
	flagSet.SetOutput(io.Discard)
}
