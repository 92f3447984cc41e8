// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/bureau-foundation/botwire/lib/observability"
	"github.com/bureau-foundation/botwire/lib/version"
)

func TestNewClient(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		client := newTestClient(t, "")
		if client.BaseURL() != DefaultBaseURL {
			t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), DefaultBaseURL)
		}
	})

	t.Run("trailing slash trimmed", func(t *testing.T) {
		client := newTestClient(t, "http://localhost:8081/")
		if client.BaseURL() != "http://localhost:8081" {
			t.Errorf("BaseURL() = %q", client.BaseURL())
		}
	})

	t.Run("missing token", func(t *testing.T) {
		if _, err := NewClient(ClientConfig{BaseURL: "http://localhost"}); err == nil {
			t.Fatal("expected error for missing token")
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		token := testBuffer(t, testToken)
		defer token.Close()
		if _, err := NewClient(ClientConfig{BaseURL: "://invalid", Token: token}); err == nil {
			t.Fatal("expected error for invalid URL")
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		token := testBuffer(t, testToken)
		defer token.Close()
		if _, err := NewClient(ClientConfig{BaseURL: "ftp://example.org", Token: token}); err == nil {
			t.Fatal("expected error for ftp scheme")
		}
	})
}

func TestSend_JSON(t *testing.T) {
	api := newFakeBotAPI(t)
	api.handle("getMe", func(writer http.ResponseWriter, request *http.Request) {
		writeResult(writer, User{ID: 99, IsBot: true, FirstName: "Echo", Username: "echo_bot"})
	})
	client := newTestClient(t, api.server.URL)

	me, err := client.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe: %v", err)
	}
	if me.ID != 99 || me.Username != "echo_bot" {
		t.Errorf("GetMe() = %+v", me)
	}

	requests := api.requestsFor("getMe")
	if len(requests) != 1 {
		t.Fatalf("got %d getMe requests, want 1", len(requests))
	}
	if requests[0].ContentType != "application/json" {
		t.Errorf("Content-Type = %q", requests[0].ContentType)
	}
	if requests[0].UserAgent != version.UserAgent() {
		t.Errorf("User-Agent = %q, want %q", requests[0].UserAgent, version.UserAgent())
	}
}

func TestSend_ParametersEncoded(t *testing.T) {
	api := newFakeBotAPI(t)
	api.handle("sendMessage", func(writer http.ResponseWriter, request *http.Request) {
		writeResult(writer, Message{MessageID: 5, Chat: Chat{ID: 42, Type: "private"}, Text: "hi"})
	})
	client := newTestClient(t, api.server.URL)

	message, err := Send[Message](context.Background(), client, SendMessage{
		ChatID:    42,
		Text:      "hi",
		ParseMode: ParseModeHTML,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if message.MessageID != 5 {
		t.Errorf("MessageID = %d, want 5", message.MessageID)
	}

	body := api.requestsFor("sendMessage")[0].decodedBody(t)
	if body["chat_id"] != float64(42) || body["text"] != "hi" || body["parse_mode"] != "HTML" {
		t.Errorf("request body = %v", body)
	}
	if _, present := body["reply_to_message_id"]; present {
		t.Error("zero reply_to_message_id should be omitted")
	}
}

func TestSend_APIError(t *testing.T) {
	api := newFakeBotAPI(t)
	api.handle("sendMessage", func(writer http.ResponseWriter, request *http.Request) {
		writeFailure(writer, http.StatusBadRequest, "Bad Request: chat not found")
	})
	client := newTestClient(t, api.server.URL)

	_, err := Send[Message](context.Background(), client, SendMessage{ChatID: 1, Text: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Description != "Bad Request: chat not found" {
		t.Errorf("got %+v", apiErr)
	}
}

func TestSend_MalformedBody(t *testing.T) {
	api := newFakeBotAPI(t)
	api.handle("getMe", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		io.WriteString(writer, "<html>502 Bad Gateway</html>")
	})
	client := newTestClient(t, api.server.URL)

	_, err := client.GetMe(context.Background())
	if !IsDecodeError(err) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestSend_NetworkErrorRedactsToken(t *testing.T) {
	api := newFakeBotAPI(t)
	client := newTestClient(t, api.server.URL)
	api.server.Close()

	_, err := client.GetMe(context.Background())
	if !IsNetworkError(err) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if strings.Contains(err.Error(), testToken) {
		t.Errorf("error leaks the token: %v", err)
	}
	if !strings.Contains(err.Error(), redactedToken) {
		t.Errorf("error should name the redacted URL: %v", err)
	}
}

func TestSend_ContextCancelled(t *testing.T) {
	api := newFakeBotAPI(t)
	client := newTestClient(t, api.server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetMe(ctx)
	if !IsNetworkError(err) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected the error to wrap context.Canceled: %v", err)
	}
}

func TestSend_Multipart(t *testing.T) {
	api := newFakeBotAPI(t)
	type received struct {
		chatID, caption, fileName, content string
	}
	got := make(chan received, 1)
	api.handle("sendDocument", func(writer http.ResponseWriter, request *http.Request) {
		mediaType, params, err := mime.ParseMediaType(request.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Errorf("Content-Type = %q", request.Header.Get("Content-Type"))
			writeFailure(writer, http.StatusBadRequest, "expected multipart")
			return
		}
		reader := multipart.NewReader(request.Body, params["boundary"])
		form, err := reader.ReadForm(1 << 20)
		if err != nil {
			t.Errorf("ReadForm: %v", err)
			writeFailure(writer, http.StatusBadRequest, "bad form")
			return
		}
		files := form.File["document"]
		if len(files) != 1 {
			t.Errorf("got %d document parts", len(files))
			writeFailure(writer, http.StatusBadRequest, "no document")
			return
		}
		file, _ := files[0].Open()
		content, _ := io.ReadAll(file)
		file.Close()

		got <- received{
			chatID:   form.Value["chat_id"][0],
			caption:  form.Value["caption"][0],
			fileName: files[0].Filename,
			content:  string(content),
		}
		writeResult(writer, Message{MessageID: 8, Chat: Chat{ID: -100}})
	})
	client := newTestClient(t, api.server.URL)

	_, err := Send[Message](context.Background(), client, SendDocument{
		ChatID:   -100,
		Caption:  "nightly report",
		Document: InputFile{Upload: &Upload{FileName: "report.csv", Content: strings.NewReader("a,b\n1,2\n")}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case form := <-got:
		if form.chatID != "-100" || form.caption != "nightly report" {
			t.Errorf("form values = %+v", form)
		}
		if form.fileName != "report.csv" || form.content != "a,b\n1,2\n" {
			t.Errorf("file part = %q %q", form.fileName, form.content)
		}
	default:
		t.Fatal("server did not receive the form")
	}
}

func TestSend_DocumentByIDUsesJSON(t *testing.T) {
	api := newFakeBotAPI(t)
	api.handle("sendDocument", func(writer http.ResponseWriter, request *http.Request) {
		writeResult(writer, Message{MessageID: 9})
	})
	client := newTestClient(t, api.server.URL)

	_, err := Send[Message](context.Background(), client, SendDocument{ChatID: 1, Document: InputFile{FileID: "BQACAgIAAxk"}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	request := api.requestsFor("sendDocument")[0]
	if request.ContentType != "application/json" {
		t.Errorf("Content-Type = %q, want JSON", request.ContentType)
	}
	if body := request.decodedBody(t); body["document"] != "BQACAgIAAxk" {
		t.Errorf("document = %v", body["document"])
	}
}

func TestSend_EncodingFailureSendsNothing(t *testing.T) {
	api := newFakeBotAPI(t)
	client := newTestClient(t, api.server.URL)

	_, err := Send[Message](context.Background(), client, SendDocument{
		ChatID:   1,
		Document: InputFile{Upload: &Upload{FileName: "empty"}},
	})
	if err == nil {
		t.Fatal("expected error for upload without content")
	}
	if IsNetworkError(err) || IsDecodeError(err) || IsAPIError(err, 0) {
		t.Errorf("encoding failure misclassified: %v", err)
	}
	if len(api.requestsFor("sendDocument")) != 0 {
		t.Error("request sent despite encoding failure")
	}
}

func TestSend_TracesAndCounts(t *testing.T) {
	api := newFakeBotAPI(t)
	api.handle("getMe", func(writer http.ResponseWriter, request *http.Request) {
		writeResult(writer, User{ID: 1})
	})

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	metrics := observability.NewMetrics()
	client := newTestClient(t, api.server.URL, func(config *ClientConfig) {
		config.TracerProvider = provider
		config.Metrics = metrics
	})

	if _, err := client.GetMe(context.Background()); err != nil {
		t.Fatalf("GetMe: %v", err)
	}
	if err := client.DeleteWebhook(context.Background(), false); err == nil {
		t.Fatal("expected deleteWebhook to fail against the fake server")
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Name() != "botapi getMe" || spans[0].Status().Code == codes.Error {
		t.Errorf("first span = %s %v", spans[0].Name(), spans[0].Status())
	}
	if spans[1].Name() != "botapi deleteWebhook" || spans[1].Status().Code != codes.Error {
		t.Errorf("second span = %s %v", spans[1].Name(), spans[1].Status())
	}

	if got := promtestutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("getMe", observability.OutcomeOK)); got != 1 {
		t.Errorf("getMe ok count = %v, want 1", got)
	}
	if got := promtestutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("deleteWebhook", observability.OutcomeAPIError)); got != 1 {
		t.Errorf("deleteWebhook api_error count = %v, want 1", got)
	}
}
