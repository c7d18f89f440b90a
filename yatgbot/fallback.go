package yatgbot

import (
	"context"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

const (
	// UnknownCommandKey is the locale key UnknownCommandFallback replies with.
	UnknownCommandKey = "unknown_command"
	// AuthorizationDeniedKey is the locale key of the reply to a sender the
	// Authorizer rejected.
	AuthorizationDeniedKey = "authorization_denied"
)

// DefaultAuthorizationDenied is used when no locale has AuthorizationDeniedKey.
const DefaultAuthorizationDenied = "You are not allowed to do this."

// Authorizer decides whether the sender of ev may run a binding that
// requires level. user is nil for events without a sender.
//
// Example:
//
//	admins := map[int64]bool{42: true}
//
//	authorize := func(_ context.Context, ev yatgbot.Event, _ *yatgstorage.UserRecord, level string) bool {
//		return level != "admin" || admins[ev.SenderID]
//	}
type Authorizer func(ctx context.Context, ev Event, user *yatgstorage.UserRecord, level string) bool

// UnknownCommandFallback replies to unmatched private messages with the
// localized UnknownCommandKey text. Events from groups and events that are
// not text messages are ignored.
//
// Example:
//
//	_ = registry.Fallback(yatgbot.UnknownCommandFallback)
func UnknownCommandFallback(_ context.Context, data *HandlerData) (Result, yaerrors.Error) {
	if data.Event.Tag != TagTextMessage || !data.Event.IsPrivate() {
		return NoReply(), nil
	}

	return Reply(Text(data.T(UnknownCommandKey)).ReplyToMessage(data.Event.MessageID)), nil
}

// denied is the reply to a rejected sender: an alert for callback queries,
// nothing for inline queries and a text message otherwise.
func denied(ctx context.Context, data *HandlerData) Result {
	text := data.T(AuthorizationDeniedKey)
	if text == AuthorizationDeniedKey {
		text = DefaultAuthorizationDenied
	}

	switch data.Event.Tag {
	case TagCallbackQuery:
		if data.API == nil {
			return NoReply()
		}

		if err := data.AnswerCallback(ctx, text, true); err != nil {
			data.Log.Warnf("failed to answer callback query: %v", err)
		}

		return NoReply()
	case TagInlineQuery:
		return NoReply()
	default:
		return ReplyText(text)
	}
}
