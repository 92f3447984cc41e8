// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import "io"

// Operation is a remote call whose successful result decodes into R.
// Concrete operations are plain structs with JSON tags for their
// parameters, a Method method, and an embedded Returns[R]:
//
//	type GetMe struct {
//	    botapi.Returns[botapi.User]
//	}
//
//	func (GetMe) Method() string { return "getMe" }
type Operation[R any] interface {
	// Method is the remote method name, used verbatim in the URL.
	Method() string

	declaredResult() R
}

// Returns declares an operation's result type. It has no fields and
// adds nothing to the request body.
type Returns[R any] struct{}

func (Returns[R]) declaredResult() R {
	var zero R
	return zero
}

// MultipartOperation is implemented by operations that may carry file
// uploads. When FormParts returns parts, the request is sent as
// multipart/form-data built from them; when it returns none, the
// operation is sent as JSON like any other.
type MultipartOperation interface {
	FormParts() ([]FormPart, error)
}

// FormPart is one field of a multipart body: a plain value, or a file
// when Upload is set.
type FormPart struct {
	Name   string
	Value  string
	Upload *Upload
}

// Upload is file content sent in a multipart body.
type Upload struct {
	FileName string
	Content  io.Reader
}
