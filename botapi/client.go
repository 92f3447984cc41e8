// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bureau-foundation/botwire/lib/netutil"
	"github.com/bureau-foundation/botwire/lib/observability"
	"github.com/bureau-foundation/botwire/lib/secret"
	"github.com/bureau-foundation/botwire/lib/version"
)

const tracerName = "github.com/bureau-foundation/botwire/botapi"

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string

	// Token is the bot token. The Client takes ownership and closes
	// it in Close.
	Token *secret.Buffer

	// HTTPClient is used for all requests. If nil, a client from
	// netutil.NewHTTPClient is used. It should not set Timeout: long
	// polls are bounded per request through the context instead.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Metrics records per-call counts and latencies. Nil disables them.
	Metrics *observability.Metrics

	// TracerProvider creates request spans. If nil, the global
	// provider is used.
	TracerProvider trace.TracerProvider
}

// Client sends operations for one bot. It is safe for concurrent use
// and meant to be shared by the poller and every handler.
type Client struct {
	baseURL    string
	token      *secret.Buffer
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
	userAgent  string
}

// NewClient creates a Client. An empty token is rejected.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Token == nil || config.Token.Len() == 0 {
		return nil, errors.New("botapi: token is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("botapi: invalid BaseURL %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("botapi: BaseURL %q must use http or https", baseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = netutil.NewHTTPClient(netutil.HTTPClientOptions{})
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracerProvider := config.TracerProvider
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      config.Token,
		httpClient: httpClient,
		logger:     logger,
		metrics:    config.Metrics,
		tracer:     tracerProvider.Tracer(tracerName, trace.WithInstrumentationVersion(version.Version)),
		userAgent:  version.UserAgent(),
	}, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// CloseIdleConnections drops pooled connections, forcing fresh ones
// after a network disruption.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Close releases the token. The client must not be used afterwards.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return c.token.Close()
}

// Send performs op and decodes its result. Errors are *NetworkError,
// *DecodeError or *APIError, except for a request that cannot be
// encoded at all, which is a plain error naming the method.
func Send[R any](ctx context.Context, client *Client, op Operation[R]) (R, error) {
	var zero R
	method := op.Method()

	body, contentType, err := encodeBody(op)
	if err != nil {
		return zero, fmt.Errorf("botapi: encoding %s request: %w", method, err)
	}

	ctx, span := client.tracer.Start(ctx, "botapi "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("botapi.method", method)),
	)
	defer span.End()

	start := time.Now()
	statusCode, responseBody, err := client.post(ctx, method, contentType, body)
	var result R
	if err == nil {
		result, err = DecodeEnvelope[R](method, statusCode, responseBody)
	}
	client.finish(span, method, start, statusCode, err)

	if err != nil {
		return zero, err
	}
	return result, nil
}

// post issues the request and reads the whole body.
func (c *Client) post(ctx context.Context, method, contentType string, body io.Reader) (int, []byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, MethodURL(c.baseURL, c.token.String(), method), body)
	if err != nil {
		return 0, nil, &NetworkError{Method: method, Err: redact(err, MethodURL(c.baseURL, redactedToken, method))}
	}
	request.Header.Set("Content-Type", contentType)
	request.Header.Set("User-Agent", c.userAgent)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, &NetworkError{Method: method, Err: redact(err, MethodURL(c.baseURL, redactedToken, method))}
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return response.StatusCode, nil, &NetworkError{Method: method, Err: fmt.Errorf("reading response body: %w", err)}
	}
	return response.StatusCode, responseBody, nil
}

// redact swaps the URL inside a *url.Error for safeURL, since the
// original carries the token.
func redact(err error, safeURL string) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	return &url.Error{Op: urlErr.Op, URL: safeURL, Err: urlErr.Err}
}

// finish records the call's outcome on the span, the metrics and the
// debug log.
func (c *Client) finish(span trace.Span, method string, start time.Time, statusCode int, err error) {
	elapsed := time.Since(start)
	result := outcome(err)

	if statusCode != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
	}
	span.SetAttributes(attribute.String("botapi.outcome", result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}

	c.metrics.ObserveRequest(method, result, elapsed)

	c.logger.Debug("bot api call",
		"method", method,
		"status", statusCode,
		"outcome", result,
		"duration", elapsed,
	)
}

// GetMe returns the bot's own user record.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	return Send[User](ctx, c, GetMe{})
}

// DeleteWebhook removes any webhook so getUpdates can be used. With
// dropPending the server also discards queued updates.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	_, err := Send[bool](ctx, c, DeleteWebhook{DropPendingUpdates: dropPending})
	return err
}
