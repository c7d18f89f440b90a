package yatgbot

import (
	"context"
	"net/http"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalocales"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

// RemoteAPI is the remote platform as the bot uses it. *yatgclient.Client implements it.
type RemoteAPI interface {
	Invoke(ctx context.Context, method string, params yatgclient.Params, result any) yaerrors.Error
	GetMe(ctx context.Context) (*yatgclient.User, yaerrors.Error)
	GetUpdates(ctx context.Context, params yatgclient.GetUpdatesParams) ([]yatgclient.RawUpdate, yaerrors.Error)
	SetWebhook(ctx context.Context, params yatgclient.SetWebhookParams) yaerrors.Error
	DeleteWebhook(ctx context.Context, dropPendingUpdates bool) yaerrors.Error
	SendMessage(ctx context.Context, params yatgclient.SendMessageParams) (*yatgclient.Message, yaerrors.Error)
	SendMedia(ctx context.Context, params yatgclient.SendMediaParams) (*yatgclient.Message, yaerrors.Error)
	AnswerCallbackQuery(ctx context.Context, params yatgclient.AnswerCallbackQueryParams) yaerrors.Error
	AnswerInlineQuery(ctx context.Context, params yatgclient.AnswerInlineQueryParams) yaerrors.Error
}

// BotInfo identifies the bot a handler runs for.
type BotInfo struct {
	ID       int64
	Name     string
	Username string
}

// HandlerData is everything a handler gets for one event.
type HandlerData struct {
	Event Event

	// User is a private copy of the sender's record, persisted when the
	// handler returns without error. Nil when the event has no sender.
	User *yatgstorage.UserRecord

	// Match holds what the predicate captured.
	Match Match

	Bot       BotInfo
	API       RemoteAPI
	Localizer *yalocales.Localizer
	Log       yalogger.Logger

	answered bool
}

// Handler processes one event.
//
// Example:
//
//	func echo(_ context.Context, data *yatgbot.HandlerData) (yatgbot.Result, yaerrors.Error) {
//		return yatgbot.ReplyText(data.Event.Args()), nil
//	}
type Handler func(ctx context.Context, data *HandlerData) (Result, yaerrors.Error)

// HandlerNext is the rest of the middleware chain.
type HandlerNext = Handler

// HandlerMiddleware runs around every handler invocation of a registry.
//
// Example:
//
//	func timing(ctx context.Context, data *yatgbot.HandlerData, next yatgbot.HandlerNext) (yatgbot.Result, yaerrors.Error) {
//		start := time.Now()
//		defer func() { data.Log.Debugf("handled in %s", time.Since(start)) }()
//
//		return next(ctx, data)
//	}
type HandlerMiddleware func(ctx context.Context, data *HandlerData, next HandlerNext) (Result, yaerrors.Error)

// chainMiddleware wraps final so that middlewares[0] runs first.
func chainMiddleware(final HandlerNext, middlewares ...HandlerMiddleware) HandlerNext {
	for i := len(middlewares) - 1; i >= 0; i-- {
		middleware := middlewares[i]
		next := final

		final = func(ctx context.Context, data *HandlerData) (Result, yaerrors.Error) {
			return middleware(ctx, data, next)
		}
	}

	return final
}

// Lang returns the language of the sender, or "" when unknown.
func (h *HandlerData) Lang() string {
	if h.User != nil {
		return h.User.Language()
	}

	if h.Event.Sender != nil {
		return h.Event.Sender.LanguageCode
	}

	return ""
}

// CallbackArgs returns the callback data arguments split by the predicate separator.
func (h *HandlerData) CallbackArgs() []string {
	return h.Match.CallbackArgs
}

// T translates key into the sender's language.
func (h *HandlerData) T(key string) string {
	if h.Localizer == nil {
		return key
	}

	return h.Localizer.T(h.Lang(), key)
}

// AnswerCallback answers the callback query of the event. The dispatcher
// answers unanswered callback queries with an empty answer on its own.
func (h *HandlerData) AnswerCallback(ctx context.Context, text string, alert bool) yaerrors.Error {
	if h.Event.CallbackQueryID == "" {
		return yaerrors.FromString(http.StatusBadRequest, "event is not a callback query")
	}

	h.answered = true

	if err := h.API.AnswerCallbackQuery(ctx, yatgclient.AnswerCallbackQueryParams{
		CallbackQueryID: h.Event.CallbackQueryID,
		Text:            text,
		ShowAlert:       alert,
	}); err != nil {
		return err.Wrap("failed to answer callback query")
	}

	return nil
}
