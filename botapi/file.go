// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zeebo/blake3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bureau-foundation/botwire/lib/netutil"
)

// downloadMethod labels file downloads in metrics and traces.
const downloadMethod = "file"

// Download describes content written by DownloadFile.
type Download struct {
	// Size is the number of bytes written.
	Size int64
	// Digest is the BLAKE3-256 hash of the content.
	Digest [32]byte
}

// DigestHex returns Digest as lowercase hex.
func (d Download) DigestHex() string {
	return hex.EncodeToString(d.Digest[:])
}

// DownloadFile streams the file at filePath (as returned by getFile)
// into destination. A non-2xx response yields *APIError, a transport
// or read failure *NetworkError. An error from destination is returned
// wrapped as-is.
func (c *Client) DownloadFile(ctx context.Context, filePath string, destination io.Writer) (Download, error) {
	ctx, span := c.tracer.Start(ctx, "botapi download",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("botapi.file_path", filePath)),
	)
	defer span.End()

	start := time.Now()
	download, statusCode, err := c.download(ctx, filePath, destination)
	c.finish(span, downloadMethod, start, statusCode, err)
	if err == nil {
		span.SetAttributes(attribute.Int64("botapi.file_size", download.Size))
	}
	return download, err
}

func (c *Client) download(ctx context.Context, filePath string, destination io.Writer) (Download, int, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, FileURL(c.baseURL, c.token.String(), filePath), nil)
	if err != nil {
		return Download{}, 0, &NetworkError{Method: downloadMethod, Err: redact(err, FileURL(c.baseURL, redactedToken, filePath))}
	}
	request.Header.Set("User-Agent", c.userAgent)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return Download{}, 0, &NetworkError{Method: downloadMethod, Err: redact(err, FileURL(c.baseURL, redactedToken, filePath))}
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return Download{}, response.StatusCode, downloadError(response)
	}

	hasher := blake3.New()
	sink := &trackedWriter{writer: destination}
	written, err := io.Copy(io.MultiWriter(sink, hasher), response.Body)
	if err != nil {
		if sink.err != nil {
			return Download{}, response.StatusCode, fmt.Errorf("botapi: writing %s: %w", filePath, sink.err)
		}
		return Download{}, response.StatusCode, &NetworkError{Method: downloadMethod, Err: fmt.Errorf("reading file body: %w", err)}
	}

	var download Download
	download.Size = written
	copy(download.Digest[:], hasher.Sum(nil))
	return download, response.StatusCode, nil
}

// downloadError builds an APIError from a failed download. File
// endpoints usually answer with an envelope; when they do not, the
// status text stands in for the description.
func downloadError(response *http.Response) *APIError {
	body := netutil.ErrorBody(response.Body)
	var envelope wireEnvelope
	if json.Unmarshal([]byte(body), &envelope) == nil && len(envelope.Description) > 0 {
		return envelope.apiError(response.StatusCode)
	}
	return &APIError{StatusCode: response.StatusCode, Description: http.StatusText(response.StatusCode)}
}

// trackedWriter remembers the destination's own error so it can be
// told apart from a failed read of the response body.
type trackedWriter struct {
	writer io.Writer
	err    error
}

func (w *trackedWriter) Write(p []byte) (int, error) {
	n, err := w.writer.Write(p)
	if err != nil {
		w.err = err
	}
	return n, err
}
