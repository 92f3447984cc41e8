// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/bureau-foundation/botwire/lib/config"
)

// newLogger builds the process logger on output. Format "auto" picks
// text on a terminal and JSON otherwise.
func newLogger(cfg config.LoggingConfig, output *os.File) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handlerOptions := &slog.HandlerOptions{Level: level}

	format := cfg.Format
	if format == "auto" {
		format = "json"
		if isatty.IsTerminal(output.Fd()) || isatty.IsCygwinTerminal(output.Fd()) {
			format = "text"
		}
	}

	if format == "text" {
		return slog.New(slog.NewTextHandler(output, handlerOptions))
	}
	return slog.New(slog.NewJSONHandler(output, handlerOptions))
}
