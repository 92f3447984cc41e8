// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
)

// encodeBody returns the request body and its content type: multipart
// when op provides form parts, JSON otherwise.
func encodeBody(op any) (io.Reader, string, error) {
	if multipartOp, ok := op.(MultipartOperation); ok {
		parts, err := multipartOp.FormParts()
		if err != nil {
			return nil, "", err
		}
		if len(parts) > 0 {
			return encodeMultipart(parts)
		}
	}

	encoded, err := json.Marshal(op)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(encoded), "application/json", nil
}

// encodeMultipart buffers parts into a multipart/form-data body.
// Uploads are read fully here, so a failing reader surfaces before
// any network traffic.
func encodeMultipart(parts []FormPart) (io.Reader, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, part := range parts {
		if part.Upload == nil {
			if err := writer.WriteField(part.Name, part.Value); err != nil {
				return nil, "", fmt.Errorf("writing field %s: %w", part.Name, err)
			}
			continue
		}

		if part.Upload.Content == nil {
			return nil, "", fmt.Errorf("upload %s has no content", part.Name)
		}
		fileName := part.Upload.FileName
		if fileName == "" {
			fileName = part.Name
		}
		fileWriter, err := writer.CreateFormFile(part.Name, fileName)
		if err != nil {
			return nil, "", fmt.Errorf("creating file part %s: %w", part.Name, err)
		}
		if _, err := io.Copy(fileWriter, part.Upload.Content); err != nil {
			return nil, "", fmt.Errorf("reading upload %s: %w", part.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}
