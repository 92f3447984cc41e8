// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bureau-foundation/botwire/lib/secret"
)

const testToken = "123456:TEST-token_value"

// recordedRequest is one call the fake server received.
type recordedRequest struct {
	Method      string
	ContentType string
	UserAgent   string
	Body        []byte
}

// decodedBody parses a JSON request body into a generic map.
func (r recordedRequest) decodedBody(t *testing.T) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(r.Body, &body); err != nil {
		t.Fatalf("request body for %s is not JSON: %v (%s)", r.Method, err, r.Body)
	}
	return body
}

// fakeBotAPI is an httptest server speaking the bot API envelope.
// Unhandled methods answer 404 with a failure envelope.
type fakeBotAPI struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]http.HandlerFunc
}

func newFakeBotAPI(t *testing.T) *fakeBotAPI {
	t.Helper()
	api := &fakeBotAPI{t: t, handlers: make(map[string]http.HandlerFunc)}
	api.server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.server.Close)
	return api
}

func (f *fakeBotAPI) serve(writer http.ResponseWriter, request *http.Request) {
	prefix := "/bot" + testToken + "/"
	if !strings.HasPrefix(request.URL.Path, prefix) {
		f.t.Errorf("unexpected path: %s", request.URL.Path)
		writeFailure(writer, http.StatusUnauthorized, "Unauthorized")
		return
	}
	method := strings.TrimPrefix(request.URL.Path, prefix)

	body, err := io.ReadAll(request.Body)
	if err != nil {
		f.t.Errorf("reading request body: %v", err)
	}
	request.Body = io.NopCloser(bytes.NewReader(body))

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:      method,
		ContentType: request.Header.Get("Content-Type"),
		UserAgent:   request.Header.Get("User-Agent"),
		Body:        body,
	})
	handler := f.handlers[method]
	f.mu.Unlock()

	if handler == nil {
		writeFailure(writer, http.StatusNotFound, "Not Found: method not found")
		return
	}
	handler(writer, request)
}

func (f *fakeBotAPI) handle(method string, handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = handler
}

// requestsFor returns the recorded calls of method in arrival order.
func (f *fakeBotAPI) requestsFor(method string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matching []recordedRequest
	for _, request := range f.requests {
		if request.Method == method {
			matching = append(matching, request)
		}
	}
	return matching
}

func writeEnvelope(writer http.ResponseWriter, status int, envelope Envelope) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(envelope)
}

func writeResult(writer http.ResponseWriter, result any) {
	envelope, err := SuccessEnvelope(result)
	if err != nil {
		http.Error(writer, err.Error(), http.StatusInternalServerError)
		return
	}
	writeEnvelope(writer, http.StatusOK, envelope)
}

func writeFailure(writer http.ResponseWriter, status int, description string) {
	writeEnvelope(writer, status, FailureEnvelope(status, description))
}

// testBuffer creates a secret.Buffer holding value.
func testBuffer(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.FromString(value)
	if err != nil {
		t.Fatalf("creating test buffer: %v", err)
	}
	return buffer
}

// newTestClient returns a Client for baseURL holding testToken. The
// client is closed when the test completes.
func newTestClient(t *testing.T, baseURL string, configure ...func(*ClientConfig)) *Client {
	t.Helper()
	config := ClientConfig{
		BaseURL: baseURL,
		Token:   testBuffer(t, testToken),
		Logger:  slog.New(slog.DiscardHandler),
	}
	for _, apply := range configure {
		apply(&config)
	}
	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// updatesWithIDs builds message updates in the given order.
func updatesWithIDs(ids ...int64) []map[string]any {
	updates := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		updates = append(updates, map[string]any{
			"update_id": id,
			"message": map[string]any{
				"message_id": id * 10,
				"chat":       map[string]any{"id": 42, "type": "private"},
				"date":       1700000000,
				"text":       "hello",
			},
		})
	}
	return updates
}

func updateIDs(updates []Update) []int64 {
	ids := make([]int64, 0, len(updates))
	for _, update := range updates {
		ids = append(ids, update.ID)
	}
	return ids
}
