// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/botwire/lib/observability"
)

// APIError is a call the server rejected with ok=false. Callers can
// use errors.As to extract it:
//
//	var apiErr *botapi.APIError
//	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 { ... }
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Description is the server's human-readable explanation.
	Description string
	// ErrorCode is the envelope's error_code, usually equal to StatusCode.
	ErrorCode int
	// RetryAfter is set when the server asks the caller to wait before
	// repeating the request (flood control).
	RetryAfter time.Duration
	// MigrateToChatID is set when a group was upgraded to a supergroup
	// and requests must target the new chat id.
	MigrateToChatID int64
}

func (e *APIError) Error() string {
	return fmt.Sprintf("botapi: api error %d: %s", e.StatusCode, e.Description)
}

// NetworkError is a failure to send the request or read the response.
type NetworkError struct {
	Method string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("botapi: network error calling %s: %v", e.Method, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError is a response that is not a valid envelope or whose
// result does not match the operation's declared type. Repeating the
// request against the same server reproduces it.
type DecodeError struct {
	Method string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("botapi: invalid response from %s: %v", e.Method, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsAPIError reports whether err is an *APIError with the given HTTP
// status. A zero status matches any API error.
func IsAPIError(err error, statusCode int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return statusCode == 0 || apiErr.StatusCode == statusCode
	}
	return false
}

// IsNetworkError reports whether err is a *NetworkError.
func IsNetworkError(err error) bool {
	var networkErr *NetworkError
	return errors.As(err, &networkErr)
}

// IsDecodeError reports whether err is a *DecodeError.
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

// outcome names err's kind for metrics and traces.
func outcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case IsAPIError(err, 0):
		return observability.OutcomeAPIError
	case IsNetworkError(err):
		return observability.OutcomeNetworkError
	case IsDecodeError(err):
		return observability.OutcomeDecodeError
	default:
		return observability.OutcomeError
	}
}
