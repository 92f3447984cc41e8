// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import "encoding/json"

// UpdateKind names the variant an update carries. The values double
// as allowed_updates tags.
type UpdateKind string

const (
	KindMessage            UpdateKind = "message"
	KindEditedMessage      UpdateKind = "edited_message"
	KindChannelPost        UpdateKind = "channel_post"
	KindEditedChannelPost  UpdateKind = "edited_channel_post"
	KindInlineQuery        UpdateKind = "inline_query"
	KindChosenInlineResult UpdateKind = "chosen_inline_result"
	KindCallbackQuery      UpdateKind = "callback_query"
	KindShippingQuery      UpdateKind = "shipping_query"
	KindPreCheckoutQuery   UpdateKind = "pre_checkout_query"
	KindPoll               UpdateKind = "poll"
	KindPollAnswer         UpdateKind = "poll_answer"
	KindUnknown            UpdateKind = "unknown"
)

// Update is one entry of the server's update queue. Only the variants
// the transport needs are decoded into fields; Raw keeps the complete
// object for everything else.
type Update struct {
	ID                int64          `json:"update_id"`
	Message           *Message       `json:"message,omitempty"`
	EditedMessage     *Message       `json:"edited_message,omitempty"`
	ChannelPost       *Message       `json:"channel_post,omitempty"`
	EditedChannelPost *Message       `json:"edited_channel_post,omitempty"`
	InlineQuery       *InlineQuery   `json:"inline_query,omitempty"`
	CallbackQuery     *CallbackQuery `json:"callback_query,omitempty"`

	// Raw is the update exactly as received.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps a copy of data.
func (u *Update) UnmarshalJSON(data []byte) error {
	type plain Update
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*u = Update(decoded)
	u.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Kind names the populated variant. Variants without a typed field
// are found in Raw.
func (u Update) Kind() UpdateKind {
	switch {
	case u.Message != nil:
		return KindMessage
	case u.EditedMessage != nil:
		return KindEditedMessage
	case u.ChannelPost != nil:
		return KindChannelPost
	case u.EditedChannelPost != nil:
		return KindEditedChannelPost
	case u.InlineQuery != nil:
		return KindInlineQuery
	case u.CallbackQuery != nil:
		return KindCallbackQuery
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(u.Raw, &fields) == nil {
		for _, kind := range []UpdateKind{
			KindChosenInlineResult, KindShippingQuery, KindPreCheckoutQuery, KindPoll, KindPollAnswer,
		} {
			if _, ok := fields[string(kind)]; ok {
				return kind
			}
		}
	}
	return KindUnknown
}

// EffectiveMessage returns the message the update is about: the
// message variants themselves, or the message a callback button was
// attached to. Nil when there is none.
func (u Update) EffectiveMessage() *Message {
	switch {
	case u.Message != nil:
		return u.Message
	case u.EditedMessage != nil:
		return u.EditedMessage
	case u.ChannelPost != nil:
		return u.ChannelPost
	case u.EditedChannelPost != nil:
		return u.EditedChannelPost
	case u.CallbackQuery != nil:
		return u.CallbackQuery.Message
	}
	return nil
}

// ChatID returns the originating chat, if the update has one.
func (u Update) ChatID() (int64, bool) {
	message := u.EffectiveMessage()
	if message == nil {
		return 0, false
	}
	return message.Chat.ID, true
}

// Text returns the message text or caption, or the callback data.
func (u Update) Text() string {
	if u.CallbackQuery != nil {
		return u.CallbackQuery.Data
	}
	if u.InlineQuery != nil {
		return u.InlineQuery.Query
	}
	if message := u.EffectiveMessage(); message != nil {
		if message.Text != "" {
			return message.Text
		}
		return message.Caption
	}
	return ""
}

// User is a Telegram user or bot.
type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Chat is a private chat, group, supergroup or channel.
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// Message is a chat message.
type Message struct {
	MessageID      int64     `json:"message_id"`
	From           *User     `json:"from,omitempty"`
	Chat           Chat      `json:"chat"`
	Date           int64     `json:"date"`
	Text           string    `json:"text,omitempty"`
	Caption        string    `json:"caption,omitempty"`
	Document       *Document `json:"document,omitempty"`
	ReplyToMessage *Message  `json:"reply_to_message,omitempty"`
}

// CallbackQuery is a press of an inline keyboard button.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// InlineQuery is a query typed after the bot's username.
type InlineQuery struct {
	ID     string `json:"id"`
	From   User   `json:"from"`
	Query  string `json:"query"`
	Offset string `json:"offset"`
}

// Document is a general file attached to a message.
type Document struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// File is a file ready for download with Client.DownloadFile.
type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileSize     int64  `json:"file_size,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}
