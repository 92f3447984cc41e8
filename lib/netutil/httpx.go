// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
)

// MaxResponseSize bounds JSON API response reads: 64 MB. A getUpdates
// batch of 100 updates is a few hundred kilobytes at worst.
const MaxResponseSize int64 = 64 << 20

// ReadResponse reads a JSON API response body up to MaxResponseSize
// bytes. Use instead of io.ReadAll for HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ErrorBody reads an error response body for diagnostics. Read errors
// are ignored; a partial body still helps an error message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	return string(data)
}

// HTTPClientOptions tunes the connection pool of NewHTTPClient.
type HTTPClientOptions struct {
	// MaxIdleConnsPerHost caps pooled keep-alive connections to the API
	// host. Zero means 16.
	MaxIdleConnsPerHost int

	// IdleConnTimeout closes pooled connections after this long unused.
	// Zero means 90s.
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake. Zero means 10s.
	TLSHandshakeTimeout time.Duration
}

// NewHTTPClient returns an *http.Client for bot API traffic. Responses
// are transparently decompressed by gzhttp. The client has no overall
// Timeout; every call must carry a context deadline or be a long poll
// bounded by its server-side timeout.
func NewHTTPClient(options HTTPClientOptions) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()

	base.MaxIdleConnsPerHost = 16
	if options.MaxIdleConnsPerHost > 0 {
		base.MaxIdleConnsPerHost = options.MaxIdleConnsPerHost
	}
	base.IdleConnTimeout = 90 * time.Second
	if options.IdleConnTimeout > 0 {
		base.IdleConnTimeout = options.IdleConnTimeout
	}
	base.TLSHandshakeTimeout = 10 * time.Second
	if options.TLSHandshakeTimeout > 0 {
		base.TLSHandshakeTimeout = options.TLSHandshakeTimeout
	}

	return &http.Client{Transport: gzhttp.Transport(base)}
}
