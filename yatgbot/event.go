package yatgbot

import (
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

// RawUpdate is an undecoded update and its offset.
type RawUpdate = yatgclient.RawUpdate

// Tag is the kind of a normalized event.
type Tag uint8

const (
	TagTextMessage Tag = iota
	TagEditedMessage
	TagCallbackQuery
	TagInlineQuery
	TagOther
)

func (t Tag) String() string {
	switch t {
	case TagTextMessage:
		return "text_message"
	case TagEditedMessage:
		return "edited_message"
	case TagCallbackQuery:
		return "callback_query"
	case TagInlineQuery:
		return "inline_query"
	default:
		return "other"
	}
}

// Event is the normalized form of one update. Handlers receive a copy and
// must not modify what its pointers reference.
type Event struct {
	Tag    Tag
	Offset int64
	Time   time.Time

	// SenderID is zero when the update has no sending user (channel posts, unknown kinds).
	SenderID int64
	Sender   *yatgclient.User

	// ChatID is zero when the update is not bound to a chat (inline queries).
	ChatID int64
	Chat   *yatgclient.Chat

	MessageID int64

	// Text is the message text or caption, or the inline query text.
	Text string
	// Data is the callback data of a callback query.
	Data string

	CallbackQueryID string
	InlineQueryID   string

	Message       *yatgclient.Message
	CallbackQuery *yatgclient.CallbackQuery
	InlineQuery   *yatgclient.InlineQuery

	Raw RawUpdate

	prefix  string
	command string
	args    string
}

// Payload is what predicates match against: callback data for callback
// queries, text otherwise.
func (e Event) Payload() string {
	if e.Tag == TagCallbackQuery {
		return e.Data
	}

	return e.Text
}

// IsCommand reports whether the text starts with a command addressed to this bot.
func (e Event) IsCommand() bool {
	return e.command != ""
}

// Command returns the lowercased command identifier without prefix or bot
// username, or "" when the event is not a command.
func (e Event) Command() string {
	return e.command
}

// Args returns the text after the command, trimmed.
func (e Event) Args() string {
	return e.args
}

// IsPrivate reports whether the event happened in a private chat.
func (e Event) IsPrivate() bool {
	return e.Chat != nil && e.Chat.IsPrivate()
}

// Profile returns what the update tells about its sender.
func (e Event) Profile() yatgstorage.Profile {
	if e.Sender == nil {
		return yatgstorage.Profile{ID: e.SenderID}
	}

	return yatgstorage.Profile{
		ID:           e.Sender.ID,
		Username:     e.Sender.Username,
		FirstName:    e.Sender.FirstName,
		LastName:     e.Sender.LastName,
		LanguageCode: e.Sender.LanguageCode,
		IsBot:        e.Sender.IsBot,
	}
}
