// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for botwire.
//
// Configuration is loaded from a single file specified by either the
// BOTWIRE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic file search.
//
// Files ending in .yaml or .yml are decoded as YAML. Files ending in
// .json or .jsonc are stripped of comments and trailing commas first
// and then decoded by the same decoder, so both formats share one
// schema. Unknown keys are rejected.
//
// The file may carry environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches.
//
// ${VAR} and ${VAR:-default} patterns are expanded in the token
// source, the identity file and the checkpoint path after loading.
//
// Key exports:
//
//   - [Config] -- API, Polling, Dispatch, Checkpoint, Logging, Metrics
//   - [Default] -- a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Validate] -- reports every problem at once
package config
