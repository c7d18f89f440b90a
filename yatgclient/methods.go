package yatgclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
)

// GetMe returns the bot account of the token.
func (c *Client) GetMe(ctx context.Context) (*User, yaerrors.Error) {
	var me User

	if err := c.Invoke(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}

	return &me, nil
}

type GetUpdatesParams struct {
	Offset         int64
	Limit          int
	Timeout        time.Duration
	AllowedUpdates []string
}

// GetUpdates long-polls for updates with offset >= params.Offset. The
// request deadline is the poll timeout plus the client request timeout.
func (c *Client) GetUpdates(ctx context.Context, params GetUpdatesParams) ([]RawUpdate, yaerrors.Error) {
	request := Params{
		"offset":  params.Offset,
		"timeout": int(params.Timeout / time.Second),
	}

	if params.Limit > 0 {
		request["limit"] = params.Limit
	}

	if params.AllowedUpdates != nil {
		request["allowed_updates"] = params.AllowedUpdates
	}

	var payloads []json.RawMessage

	if err := c.invoke(ctx, "getUpdates", request, &payloads, params.Timeout+c.timeout); err != nil {
		return nil, err
	}

	updates := make([]RawUpdate, 0, len(payloads))

	for _, payload := range payloads {
		var head struct {
			UpdateID int64 `json:"update_id"`
		}

		if err := json.Unmarshal(payload, &head); err != nil {
			return nil, yaerrors.FromError(http.StatusBadGateway, ErrUnexpectedResponse, "update without id")
		}

		updates = append(updates, RawUpdate{Offset: head.UpdateID, Payload: payload})
	}

	return updates, nil
}

type SetWebhookParams struct {
	URL                string
	Certificate        *InputFile
	MaxConnections     int
	AllowedUpdates     []string
	SecretToken        string
	DropPendingUpdates bool
}

// SetWebhook registers the public address the platform pushes updates to.
// The certificate, when given, is uploaded with the call.
func (c *Client) SetWebhook(ctx context.Context, params SetWebhookParams) yaerrors.Error {
	request := Params{"url": params.URL}

	if params.Certificate != nil {
		request["certificate"] = *params.Certificate
	}

	if params.MaxConnections > 0 {
		request["max_connections"] = params.MaxConnections
	}

	if params.AllowedUpdates != nil {
		request["allowed_updates"] = params.AllowedUpdates
	}

	if params.SecretToken != "" {
		request["secret_token"] = params.SecretToken
	}

	if params.DropPendingUpdates {
		request["drop_pending_updates"] = true
	}

	return c.Invoke(ctx, "setWebhook", request, nil)
}

// DeleteWebhook switches the bot back to getUpdates.
func (c *Client) DeleteWebhook(ctx context.Context, dropPendingUpdates bool) yaerrors.Error {
	return c.Invoke(ctx, "deleteWebhook", Params{"drop_pending_updates": dropPendingUpdates}, nil)
}

// GetWebhookInfo returns the current webhook registration.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, yaerrors.Error) {
	var info WebhookInfo

	if err := c.Invoke(ctx, "getWebhookInfo", nil, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

type SendMessageParams struct {
	ChatID              int64
	Text                string
	ParseMode           string
	ReplyMarkup         any
	ReplyToMessageID    int64
	DisableNotification bool
	DisablePreview      bool
}

func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, yaerrors.Error) {
	request := Params{
		"chat_id": params.ChatID,
		"text":    params.Text,
	}

	setOptional(request, params.ParseMode, params.ReplyMarkup, params.ReplyToMessageID, params.DisableNotification)

	if params.DisablePreview {
		request["link_preview_options"] = map[string]bool{"is_disabled": true}
	}

	var sent Message

	if err := c.Invoke(ctx, "sendMessage", request, &sent); err != nil {
		return nil, err
	}

	return &sent, nil
}

// MediaKind selects the send method of SendMedia.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaVoice    MediaKind = "voice"
)

var mediaMethods = map[MediaKind]string{
	MediaPhoto:    "sendPhoto",
	MediaDocument: "sendDocument",
	MediaVideo:    "sendVideo",
	MediaAudio:    "sendAudio",
	MediaVoice:    "sendVoice",
}

type SendMediaParams struct {
	ChatID int64
	Kind   MediaKind
	// Media is a file id or URL string, or an InputFile to upload.
	Media               any
	Caption             string
	ParseMode           string
	ReplyMarkup         any
	ReplyToMessageID    int64
	DisableNotification bool
}

func (c *Client) SendMedia(ctx context.Context, params SendMediaParams) (*Message, yaerrors.Error) {
	method, ok := mediaMethods[params.Kind]
	if !ok {
		return nil, yaerrors.FromString(http.StatusBadRequest, fmt.Sprintf("unsupported media kind %q", params.Kind))
	}

	request := Params{
		"chat_id":           params.ChatID,
		string(params.Kind): params.Media,
	}

	if params.Caption != "" {
		request["caption"] = params.Caption
	}

	setOptional(request, params.ParseMode, params.ReplyMarkup, params.ReplyToMessageID, params.DisableNotification)

	var sent Message

	if err := c.Invoke(ctx, method, request, &sent); err != nil {
		return nil, err
	}

	return &sent, nil
}

type AnswerCallbackQueryParams struct {
	CallbackQueryID string
	Text            string
	ShowAlert       bool
	URL             string
	CacheTime       int
}

// AnswerCallbackQuery stops the loading indicator of an inline button press.
func (c *Client) AnswerCallbackQuery(ctx context.Context, params AnswerCallbackQueryParams) yaerrors.Error {
	request := Params{"callback_query_id": params.CallbackQueryID}

	if params.Text != "" {
		request["text"] = params.Text
	}

	if params.ShowAlert {
		request["show_alert"] = true
	}

	if params.URL != "" {
		request["url"] = params.URL
	}

	if params.CacheTime > 0 {
		request["cache_time"] = params.CacheTime
	}

	return c.Invoke(ctx, "answerCallbackQuery", request, nil)
}

type AnswerInlineQueryParams struct {
	InlineQueryID string
	// Results are InlineQueryResult objects, marshalled as is.
	Results    []any
	CacheTime  int
	IsPersonal bool
	NextOffset string
}

func (c *Client) AnswerInlineQuery(ctx context.Context, params AnswerInlineQueryParams) yaerrors.Error {
	results := params.Results
	if results == nil {
		results = []any{}
	}

	request := Params{
		"inline_query_id": params.InlineQueryID,
		"results":         results,
	}

	if params.CacheTime > 0 {
		request["cache_time"] = params.CacheTime
	}

	if params.IsPersonal {
		request["is_personal"] = true
	}

	if params.NextOffset != "" {
		request["next_offset"] = params.NextOffset
	}

	return c.Invoke(ctx, "answerInlineQuery", request, nil)
}

func setOptional(request Params, parseMode string, markup any, replyTo int64, silent bool) {
	if parseMode != "" {
		request["parse_mode"] = parseMode
	}

	if markup != nil {
		request["reply_markup"] = markup
	}

	if replyTo != 0 {
		request["reply_parameters"] = map[string]int64{"message_id": replyTo}
	}

	if silent {
		request["disable_notification"] = true
	}
}
