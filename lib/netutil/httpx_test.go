// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadResponse(t *testing.T) {
	data, err := ReadResponse(strings.NewReader(`{"ok":true}`))
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("ReadResponse = %q", data)
	}
}

func TestReadResponse_Bounded(t *testing.T) {
	// A reader longer than the limit is cut at MaxResponseSize.
	reader := io.LimitReader(zeroReader{}, MaxResponseSize+1024)
	data, err := ReadResponse(reader)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if int64(len(data)) != MaxResponseSize {
		t.Errorf("read %d bytes, want %d", len(data), MaxResponseSize)
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestErrorBody(t *testing.T) {
	if got := ErrorBody(strings.NewReader("bad gateway")); got != "bad gateway" {
		t.Errorf("ErrorBody = %q", got)
	}
}

func TestNewHTTPClient_DecompressesGzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			t.Errorf("Accept-Encoding = %q, want gzip offered", request.Header.Get("Accept-Encoding"))
		}
		var compressed bytes.Buffer
		gzipWriter := gzip.NewWriter(&compressed)
		gzipWriter.Write([]byte(`{"ok":true,"result":[]}`))
		gzipWriter.Close()

		writer.Header().Set("Content-Encoding", "gzip")
		writer.Header().Set("Content-Type", "application/json")
		writer.Write(compressed.Bytes())
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPClientOptions{})
	response, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer response.Body.Close()

	body, err := ReadResponse(response.Body)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if string(body) != `{"ok":true,"result":[]}` {
		t.Errorf("body = %q, want decompressed JSON", body)
	}
}
