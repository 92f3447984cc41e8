// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

// DefaultBaseURL is the public Telegram Bot API.
const DefaultBaseURL = "https://api.telegram.org"

// MethodURL returns base + "/bot" + token + "/" + method. Nothing is
// escaped: tokens and method names are URL-safe by construction.
func MethodURL(base, token, method string) string {
	return base + "/bot" + token + "/" + method
}

// FileURL returns base + "/file/bot" + token + "/" + filePath, the
// download location for a path obtained from getFile.
func FileURL(base, token, filePath string) string {
	return base + "/file/bot" + token + "/" + filePath
}

// redactedToken replaces the token wherever a URL could leak into an
// error or a log line.
const redactedToken = "<token>"
