// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"context"
	"errors"
)

// ErrNoChat is returned by Reply when the update did not come from a
// chat, such as an inline query. No request is sent.
var ErrNoChat = errors.New("botapi: update has no chat to reply to")

// HandlerContext is what a handler receives for one update: the
// shared client and the update itself. It lives for one handler call.
type HandlerContext struct {
	Client *Client
	Update Update
}

// NewHandlerContext pairs client with update.
func NewHandlerContext(client *Client, update Update) *HandlerContext {
	return &HandlerContext{Client: client, Update: update}
}

// ChatID returns the originating chat, if there is one.
func (h *HandlerContext) ChatID() (int64, bool) {
	return h.Update.ChatID()
}

// Reply sends text to the originating chat with one sendMessage call.
// The sent message is discarded; errors come back unchanged.
func (h *HandlerContext) Reply(ctx context.Context, text string) error {
	return h.ReplyWith(ctx, SendMessage{Text: text})
}

// ReplyWith sends message to the originating chat, overwriting its
// ChatID.
func (h *HandlerContext) ReplyWith(ctx context.Context, message SendMessage) error {
	chatID, ok := h.ChatID()
	if !ok {
		return ErrNoChat
	}
	message.ChatID = chatID
	_, err := Send[Message](ctx, h.Client, message)
	return err
}
