// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"encoding/json"
	"errors"
	"strconv"
)

// GetUpdates fetches pending updates. The Poller builds these; most
// callers never construct one directly.
type GetUpdates struct {
	Returns[[]Update]

	// Offset is omitted when nil.
	Offset *int64
	// Limit is 1 to 100; omitted when zero, which the server reads as 100.
	Limit int
	// Timeout is the long-poll hold time in seconds.
	Timeout int
	// AllowedUpdates is omitted when nil, keeping the server's previous
	// filter. A non-nil empty slice is sent as [] and means all kinds.
	AllowedUpdates []UpdateKind
}

func (GetUpdates) Method() string { return "getUpdates" }

// MarshalJSON keeps the nil/empty distinction of AllowedUpdates that
// omitempty would erase.
func (g GetUpdates) MarshalJSON() ([]byte, error) {
	wire := struct {
		Offset         *int64        `json:"offset,omitempty"`
		Limit          int           `json:"limit,omitempty"`
		Timeout        int           `json:"timeout,omitempty"`
		AllowedUpdates *[]UpdateKind `json:"allowed_updates,omitempty"`
	}{
		Offset:  g.Offset,
		Limit:   g.Limit,
		Timeout: g.Timeout,
	}
	if g.AllowedUpdates != nil {
		allowed := g.AllowedUpdates
		wire.AllowedUpdates = &allowed
	}
	return json.Marshal(wire)
}

// ParseMode selects message text formatting.
type ParseMode string

const (
	ParseModeMarkdown   ParseMode = "Markdown"
	ParseModeMarkdownV2 ParseMode = "MarkdownV2"
	ParseModeHTML       ParseMode = "HTML"
)

// SendMessage sends a text message.
type SendMessage struct {
	Returns[Message]

	ChatID                int64     `json:"chat_id"`
	Text                  string    `json:"text"`
	ParseMode             ParseMode `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool      `json:"disable_web_page_preview,omitempty"`
	DisableNotification   bool      `json:"disable_notification,omitempty"`
	ReplyToMessageID      int64     `json:"reply_to_message_id,omitempty"`
}

func (SendMessage) Method() string { return "sendMessage" }

// InputFile names a file to send: one already on the server by id, a
// URL the server fetches, or content uploaded with the request.
// Exactly one should be set.
type InputFile struct {
	FileID string
	URL    string
	Upload *Upload
}

var errUploadInJSON = errors.New("botapi: an uploaded InputFile can only be sent as multipart")

// MarshalJSON encodes the file id or URL. Uploads have no JSON form.
func (f InputFile) MarshalJSON() ([]byte, error) {
	switch {
	case f.Upload != nil:
		return nil, errUploadInJSON
	case f.FileID != "":
		return json.Marshal(f.FileID)
	default:
		return json.Marshal(f.URL)
	}
}

// SendDocument sends a general file.
type SendDocument struct {
	Returns[Message]

	ChatID              int64     `json:"chat_id"`
	Document            InputFile `json:"document"`
	Caption             string    `json:"caption,omitempty"`
	ParseMode           ParseMode `json:"parse_mode,omitempty"`
	DisableNotification bool      `json:"disable_notification,omitempty"`
}

func (SendDocument) Method() string { return "sendDocument" }

// FormParts switches to multipart only when the document is uploaded.
func (s SendDocument) FormParts() ([]FormPart, error) {
	if s.Document.Upload == nil {
		return nil, nil
	}
	parts := []FormPart{
		{Name: "chat_id", Value: strconv.FormatInt(s.ChatID, 10)},
		{Name: "document", Upload: s.Document.Upload},
	}
	if s.Caption != "" {
		parts = append(parts, FormPart{Name: "caption", Value: s.Caption})
	}
	if s.ParseMode != "" {
		parts = append(parts, FormPart{Name: "parse_mode", Value: string(s.ParseMode)})
	}
	if s.DisableNotification {
		parts = append(parts, FormPart{Name: "disable_notification", Value: "true"})
	}
	return parts, nil
}

// GetMe returns the bot's own user.
type GetMe struct {
	Returns[User]
}

func (GetMe) Method() string { return "getMe" }

// GetFile prepares a file for download and returns its path.
type GetFile struct {
	Returns[File]

	FileID string `json:"file_id"`
}

func (GetFile) Method() string { return "getFile" }

// DeleteWebhook removes the webhook so getUpdates works.
type DeleteWebhook struct {
	Returns[bool]

	DropPendingUpdates bool `json:"drop_pending_updates,omitempty"`
}

func (DeleteWebhook) Method() string { return "deleteWebhook" }
