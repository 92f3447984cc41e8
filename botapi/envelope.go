// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Envelope is the wrapper around every response. Servers and tests
// build one with SuccessEnvelope or FailureEnvelope.
type Envelope struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// ResponseParameters carries the hints some failures include.
type ResponseParameters struct {
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
	RetryAfter      int   `json:"retry_after,omitempty"`
}

// SuccessEnvelope wraps result in an ok envelope.
func SuccessEnvelope(result any) (Envelope, error) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{OK: true, Result: encoded}, nil
}

// FailureEnvelope builds a not-ok envelope.
func FailureEnvelope(errorCode int, description string) Envelope {
	return Envelope{OK: false, ErrorCode: errorCode, Description: description}
}

// wireEnvelope is the lenient decoding form: ok is tested for
// truthiness and description is accepted in any JSON type.
type wireEnvelope struct {
	OK          json.RawMessage `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description json.RawMessage `json:"description"`
	ErrorCode   json.RawMessage `json:"error_code"`
	Parameters  json.RawMessage `json:"parameters"`
}

// DecodeEnvelope decodes a response body for method. A body that is
// not JSON, or an ok result that does not fit R, yields *DecodeError;
// a falsy ok yields *APIError built from statusCode and the envelope.
func DecodeEnvelope[R any](method string, statusCode int, body []byte) (R, error) {
	var zero R

	var envelope wireEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return zero, &DecodeError{Method: method, Err: err}
	}

	if !truthy(envelope.OK) {
		return zero, envelope.apiError(statusCode)
	}

	if len(envelope.Result) == 0 {
		return zero, &DecodeError{Method: method, Err: errors.New("ok response without a result")}
	}
	var result R
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		return zero, &DecodeError{Method: method, Err: err}
	}
	return result, nil
}

func (e wireEnvelope) apiError(statusCode int) *APIError {
	apiErr := &APIError{
		StatusCode:  statusCode,
		Description: stringify(e.Description),
	}

	// The hint fields are best effort: a malformed hint does not hide
	// the failure it is attached to.
	var errorCode int
	if json.Unmarshal(e.ErrorCode, &errorCode) == nil {
		apiErr.ErrorCode = errorCode
	}
	var parameters ResponseParameters
	if json.Unmarshal(e.Parameters, &parameters) == nil {
		apiErr.RetryAfter = time.Duration(parameters.RetryAfter) * time.Second
		apiErr.MigrateToChatID = parameters.MigrateToChatID
	}
	return apiErr
}

// truthy reports whether raw is JSON true, the string "true", or a
// non-zero number. Anything else, including absence, is falsy.
func truthy(raw json.RawMessage) bool {
	var value any
	if len(raw) == 0 || json.Unmarshal(raw, &value) != nil {
		return false
	}
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return strings.EqualFold(strings.TrimSpace(typed), "true")
	case float64:
		return typed != 0
	default:
		return false
	}
}

// stringify returns a JSON string's value, or the compact JSON text of
// any other value. Absent and null become "".
func stringify(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if json.Unmarshal(raw, &text) == nil {
		return text
	}
	var compact bytes.Buffer
	if json.Compact(&compact, raw) == nil {
		return compact.String()
	}
	return string(raw)
}
