// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for botwire binaries and
// the User-Agent sent with every API request.
//
// Values are injected at build time:
//
//	go build -ldflags "-X github.com/bureau-foundation/botwire/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"io"
	"runtime"
)

// Set via -ldflags.
var (
	GitCommit = "unknown"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Info returns a one-line version string for --version output.
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildTime)
}

// UserAgent is the User-Agent header value for API requests.
func UserAgent() string {
	return "botwire/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}

// Print writes "<program> <info>" to w.
func Print(w io.Writer, program string) {
	fmt.Fprintf(w, "%s %s\n", program, Info())
}
