package yatgbot_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/YaCodeDev/GoYaTgBot/config"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot/webhook"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

const (
	testToken    = "100:secret"
	testUsername = "test_bot"
	waitTimeout  = 5 * time.Second
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBatch struct {
	updates []yatgclient.RawUpdate
	err     yaerrors.Error
}

// fakeAPI is a scripted remote platform. GetUpdates hands out the queued
// batches, then closes drained and blocks until the poll is cancelled.
type fakeAPI struct {
	mu       sync.Mutex
	meErr    yaerrors.Error
	batches  []fakeBatch
	polls    []yatgclient.GetUpdatesParams
	messages []yatgclient.SendMessageParams
	media    []yatgclient.SendMediaParams
	answers  []yatgclient.AnswerCallbackQueryParams
	webhooks []yatgclient.SetWebhookParams
	deletes  int
	sendErr  yaerrors.Error

	drained   chan struct{}
	drainOnce sync.Once
	webhook   chan struct{}
}

func newFakeAPI(batches ...fakeBatch) *fakeAPI {
	return &fakeAPI{
		batches: batches,
		drained: make(chan struct{}),
		webhook: make(chan struct{}),
	}
}

func (f *fakeAPI) Invoke(context.Context, string, yatgclient.Params, any) yaerrors.Error {
	return nil
}

func (f *fakeAPI) GetMe(context.Context) (*yatgclient.User, yaerrors.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.meErr != nil {
		return nil, f.meErr
	}

	return &yatgclient.User{ID: 100, IsBot: true, FirstName: "Test", Username: testUsername}, nil
}

func (f *fakeAPI) GetUpdates(
	ctx context.Context,
	params yatgclient.GetUpdatesParams,
) ([]yatgclient.RawUpdate, yaerrors.Error) {
	f.mu.Lock()

	f.polls = append(f.polls, params)

	if params.Timeout == 0 {
		f.mu.Unlock()

		return nil, nil
	}

	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()

		return batch.updates, batch.err
	}

	f.mu.Unlock()

	f.drainOnce.Do(func() { close(f.drained) })

	<-ctx.Done()

	return nil, yaerrors.FromError(http.StatusRequestTimeout, ctx.Err(), "poll cancelled")
}

func (f *fakeAPI) SetWebhook(_ context.Context, params yatgclient.SetWebhookParams) yaerrors.Error {
	f.mu.Lock()
	f.webhooks = append(f.webhooks, params)
	f.mu.Unlock()

	close(f.webhook)

	return nil
}

func (f *fakeAPI) DeleteWebhook(context.Context, bool) yaerrors.Error {
	f.mu.Lock()
	f.deletes++
	f.mu.Unlock()

	return nil
}

func (f *fakeAPI) SendMessage(
	_ context.Context,
	params yatgclient.SendMessageParams,
) (*yatgclient.Message, yaerrors.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages = append(f.messages, params)

	if f.sendErr != nil {
		return nil, f.sendErr
	}

	return &yatgclient.Message{MessageID: int64(len(f.messages)), Chat: yatgclient.Chat{ID: params.ChatID}}, nil
}

func (f *fakeAPI) SendMedia(
	_ context.Context,
	params yatgclient.SendMediaParams,
) (*yatgclient.Message, yaerrors.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.media = append(f.media, params)

	return &yatgclient.Message{Chat: yatgclient.Chat{ID: params.ChatID}}, nil
}

func (f *fakeAPI) AnswerCallbackQuery(_ context.Context, params yatgclient.AnswerCallbackQueryParams) yaerrors.Error {
	f.mu.Lock()
	f.answers = append(f.answers, params)
	f.mu.Unlock()

	return nil
}

func (f *fakeAPI) AnswerInlineQuery(context.Context, yatgclient.AnswerInlineQueryParams) yaerrors.Error {
	return nil
}

func (f *fakeAPI) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	texts := make([]string, 0, len(f.messages))
	for _, message := range f.messages {
		texts = append(texts, message.Text)
	}

	return texts
}

func (f *fakeAPI) sent() []yatgclient.SendMessageParams {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]yatgclient.SendMessageParams(nil), f.messages...)
}

func (f *fakeAPI) lastPoll() yatgclient.GetUpdatesParams {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.polls[len(f.polls)-1]
}

func (f *fakeAPI) answered() []yatgclient.AnswerCallbackQueryParams {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]yatgclient.AnswerCallbackQueryParams(nil), f.answers...)
}

func apiError(code int, method string) yaerrors.Error {
	return yaerrors.FromError(
		code,
		&yatgclient.APIError{Method: method, Code: code, Description: http.StatusText(code)},
		"remote call failed",
	)
}

func marshalUpdate(t *testing.T, update yatgclient.Update) yatgclient.RawUpdate {
	t.Helper()

	payload, err := json.Marshal(update)
	require.NoError(t, err)

	return yatgclient.RawUpdate{Offset: update.UpdateID, Payload: payload}
}

func sender(id int64) *yatgclient.User {
	return &yatgclient.User{ID: id, FirstName: "Ann", LanguageCode: "en"}
}

// textUpdate is a private message of senderID.
func textUpdate(t *testing.T, offset int64, senderID int64, text string) yatgclient.RawUpdate {
	t.Helper()

	return marshalUpdate(t, yatgclient.Update{
		UpdateID: offset,
		Message: &yatgclient.Message{
			MessageID: offset * 10,
			From:      sender(senderID),
			Date:      1_700_000_000,
			Chat:      yatgclient.Chat{ID: senderID, Type: yatgclient.ChatPrivate},
			Text:      text,
		},
	})
}

func groupUpdate(t *testing.T, offset int64, senderID int64, chatID int64, text string) yatgclient.RawUpdate {
	t.Helper()

	return marshalUpdate(t, yatgclient.Update{
		UpdateID: offset,
		Message: &yatgclient.Message{
			MessageID: offset * 10,
			From:      sender(senderID),
			Date:      1_700_000_000,
			Chat:      yatgclient.Chat{ID: chatID, Type: yatgclient.ChatSupergroup, Title: "Group"},
			Text:      text,
		},
	})
}

func callbackUpdate(t *testing.T, offset int64, senderID int64, data string) yatgclient.RawUpdate {
	t.Helper()

	return marshalUpdate(t, yatgclient.Update{
		UpdateID: offset,
		CallbackQuery: &yatgclient.CallbackQuery{
			ID:   "cb-1",
			From: *sender(senderID),
			Data: data,
			Message: &yatgclient.Message{
				MessageID: 7,
				Date:      1_700_000_000,
				Chat:      yatgclient.Chat{ID: senderID, Type: yatgclient.ChatPrivate},
			},
		},
	})
}

func normalize(t *testing.T, raw yatgclient.RawUpdate) yatgbot.Event {
	t.Helper()

	return (&yatgbot.Normalizer{BotUsername: testUsername}).Normalize(raw)
}

func testConfig() config.BotConfig {
	return config.BotConfig{
		Name:  "test",
		Token: testToken,
		Polling: config.PollingConfig{
			ErrorCooldown:    time.Millisecond,
			MaxErrorCooldown: 5 * time.Millisecond,
		},
	}
}

type testBot struct {
	bot     *yatgbot.Bot
	api     *fakeAPI
	users   *yatgstorage.MemoryUserStorage
	offsets *yatgstorage.MemoryOffsetStorage
}

func newTestBot(t *testing.T, cfg config.BotConfig, api *fakeAPI) testBot {
	t.Helper()

	users := yatgstorage.NewMemoryUserStorage()
	offsets := yatgstorage.NewMemoryOffsetStorage()

	bot, err := yatgbot.NewBot(yatgbot.Options{
		Config:  cfg,
		API:     api,
		Users:   users,
		Offsets: offsets,
		Log:     yalogger.NewTestLogger(),
	})
	require.NoError(t, err)

	return testBot{bot: bot, api: api, users: users, offsets: offsets}
}

// runUntilDrained runs the bot until the fake API handed out every batch,
// then stops it and waits for Run to return.
func runUntilDrained(t *testing.T, tb testBot) yaerrors.Error {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan yaerrors.Error, 1)

	go func() {
		done <- tb.bot.Run(ctx, nil)
	}()

	select {
	case <-tb.api.drained:
	case err := <-done:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("bot did not drain the updates in time")
	}

	cancel()

	select {
	case err := <-done:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("bot did not stop in time")
	}

	return nil
}

func echo(_ context.Context, data *yatgbot.HandlerData) (yatgbot.Result, yaerrors.Error) {
	return yatgbot.ReplyText(data.Event.Args()), nil
}

func groupUpdateWithoutSender(t *testing.T, offset int64, chatID int64, text string) yatgclient.RawUpdate {
	t.Helper()

	return marshalUpdate(t, yatgclient.Update{
		UpdateID: offset,
		ChannelPost: &yatgclient.Message{
			MessageID: offset,
			Date:      1_700_000_000,
			Chat:      yatgclient.Chat{ID: chatID, Type: yatgclient.ChatChannel},
			Text:      text,
		},
	})
}

func newWebhookServer(t *testing.T) *webhook.Server {
	t.Helper()

	return webhook.NewServer(webhook.Options{Host: "127.0.0.1", Port: 0, Log: yalogger.NewTestLogger()})
}
