package yatgbot_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaCodeDev/GoYaTgBot/config"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yaginmiddleware"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot/webhook"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

const publicURL = "https://bot.example.com"

func webhookConfig(t *testing.T) config.BotConfig {
	t.Helper()

	certificate := filepath.Join(t.TempDir(), "public.pem")
	require.NoError(t, os.WriteFile(certificate, []byte("-----BEGIN CERTIFICATE-----"), 0o600))

	cfg := testConfig()
	cfg.Mode = config.ModeWebhook
	cfg.Webhook = config.WebhookConfig{PublicURL: publicURL, Certificate: certificate}

	return cfg
}

func TestNewBot_Validation(t *testing.T) {
	t.Parallel()

	tests := map[string]config.BotConfig{
		"empty token":      {Name: "a"},
		"malformed token":  {Name: "a", Token: "nonsense"},
		"unknown mode":     {Name: "a", Token: testToken, Mode: "carrier-pigeon"},
		"webhook no url":   {Name: "a", Token: testToken, Mode: config.ModeWebhook},
		"unknown policy":   {Name: "a", Token: testToken, DefaultPolicy: "shrug"},
		"webhook no cert":  {Name: "a", Token: testToken, Mode: config.ModeWebhook, Webhook: config.WebhookConfig{PublicURL: publicURL}},
		"sqlite store dsn": {Name: "a", Token: testToken, Store: config.StoreConfig{Kind: config.StoreSQLite}},
	}

	for name, cfg := range tests {
		t.Run("[NewBot] - "+name, func(t *testing.T) {
			t.Parallel()

			_, err := yatgbot.NewBot(yatgbot.Options{Config: cfg, API: newFakeAPI(), Log: yalogger.NewTestLogger()})

			require.Error(t, err)
			assert.ErrorIs(t, err, yatgbot.ErrConfiguration)
		})
	}

	t.Run("[NewBot] - defaults", func(t *testing.T) {
		t.Parallel()

		bot, err := yatgbot.NewBot(yatgbot.Options{Config: config.BotConfig{Name: "a", Token: testToken}})

		require.NoError(t, err)
		assert.Equal(t, int64(100), bot.ID())
		assert.Equal(t, config.ModePolling, bot.Mode())
		assert.Equal(t, yatgbot.BotInfo{ID: 100, Name: "a"}, bot.Info())
		assert.NotNil(t, bot.Users())
	})
}

func TestBot_RunTwice(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	tb := newTestBot(t, testConfig(), api)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan yaerrors.Error, 1)

	go func() { done <- tb.bot.Run(ctx, nil) }()

	<-api.drained

	assert.True(t, tb.bot.Running())
	assert.Equal(t, testUsername, tb.bot.Info().Username)
	assert.True(t, tb.bot.Registry().Frozen())
	assert.ErrorIs(t, tb.bot.Run(ctx, nil), yatgbot.ErrAlreadyRunning)

	cancel()
	assert.NoError(t, <-done)
}

type webhookRun struct {
	server *webhook.Server
	path   string
	secret string
	cancel context.CancelFunc
	done   chan yaerrors.Error
}

func startWebhookBot(t *testing.T, tb testBot) webhookRun {
	t.Helper()

	server := webhook.NewServer(webhook.Options{Log: yalogger.NewTestLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	run := webhookRun{server: server, cancel: cancel, done: make(chan yaerrors.Error, 1)}

	go func() { run.done <- tb.bot.Run(ctx, server) }()

	select {
	case <-tb.api.webhook:
	case <-time.After(waitTimeout):
		t.Fatal("webhook was not registered")
	}

	tb.api.mu.Lock()
	params := tb.api.webhooks[0]
	tb.api.mu.Unlock()

	require.True(t, strings.HasPrefix(params.URL, publicURL+"/webhook/"+testToken+"_"), params.URL)
	require.NotNil(t, params.Certificate)
	assert.Equal(t, "public.pem", params.Certificate.Name)
	assert.NotEmpty(t, params.SecretToken)

	run.path = strings.TrimPrefix(params.URL, publicURL)
	run.secret = params.SecretToken

	return run
}

func (w webhookRun) push(raw yatgclient.RawUpdate, secret string) int {
	req := httptest.NewRequest(http.MethodPost, w.path, strings.NewReader(string(raw.Payload)))
	req.Header.Set(yaginmiddleware.TelegramSecretHeader, secret)

	rec := httptest.NewRecorder()
	w.server.Handler().ServeHTTP(rec, req)

	return rec.Code
}

func TestWebhook_Lifecycle(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	tb := newTestBot(t, webhookConfig(t), api)

	require.NoError(t, tb.bot.Registry().OnCommand("echo", echo))

	run := startWebhookBot(t, tb)

	assert.Equal(t, http.StatusOK, run.push(textUpdate(t, 1, 42, "/echo pushed"), run.secret))
	assert.Equal(t, []string{"pushed"}, api.sentTexts(), "dispatched within the request")

	assert.Equal(t, http.StatusUnauthorized, run.push(textUpdate(t, 2, 42, "/echo forged"), "wrong"))
	assert.Equal(t, []string{"pushed"}, api.sentTexts())

	run.cancel()
	require.NoError(t, <-run.done)

	assert.Equal(t, 1, api.deletes, "webhook deleted on stop")
	assert.Zero(t, run.server.Routes())
	assert.Equal(t, http.StatusNotFound, run.push(textUpdate(t, 3, 42, "/echo late"), run.secret))

	err := tb.bot.HandlePush(context.Background(), textUpdate(t, 4, 42, "/echo late"))
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, err.Code())
}

func TestWebhook_SameSenderSerialized(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	tb := newTestBot(t, webhookConfig(t), api)

	require.NoError(t, tb.bot.Registry().OnText(yatgbot.Any(), 0,
		func(_ context.Context, data *yatgbot.HandlerData) (yatgbot.Result, yaerrors.Error) {
			value := data.User.GetInt("counter")

			time.Sleep(time.Millisecond)

			data.User.SetInt("counter", value+1)

			return yatgbot.NoReply(), nil
		}))

	run := startWebhookBot(t, tb)

	const pushes = 20

	raws := make([]yatgclient.RawUpdate, 0, pushes)
	for i := range pushes {
		raws = append(raws, textUpdate(t, int64(i+1), 42, "tick"))
	}

	var wg sync.WaitGroup

	codes := make(chan int, pushes)

	for _, raw := range raws {
		wg.Add(1)

		go func() {
			defer wg.Done()

			codes <- run.push(raw, run.secret)
		}()
	}

	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}

	record, err := tb.users.GetOrCreate(context.Background(), tb.bot.ID(), yatgstorage.Profile{ID: 42})
	require.NoError(t, err)
	assert.Equal(t, int64(pushes), record.GetInt("counter"))

	run.cancel()
	require.NoError(t, <-run.done)
}

func TestWebhook_ShutdownFinishesRunningPush(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	tb := newTestBot(t, webhookConfig(t), api)

	entered := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, tb.bot.Registry().OnCommand("block",
		func(_ context.Context, data *yatgbot.HandlerData) (yatgbot.Result, yaerrors.Error) {
			close(entered)
			<-release

			data.User.SetInt("blocked", 1)

			return yatgbot.ReplyText("done"), nil
		}))

	run := startWebhookBot(t, tb)

	code := make(chan int, 1)

	go func() { code <- run.push(textUpdate(t, 1, 42, "/block"), run.secret) }()

	select {
	case <-entered:
	case <-time.After(waitTimeout):
		t.Fatal("handler was not reached")
	}

	run.cancel()

	select {
	case <-run.done:
		t.Fatal("Run returned while a push was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case got := <-code:
		assert.Equal(t, http.StatusOK, got)
	case <-time.After(waitTimeout):
		t.Fatal("push did not finish")
	}

	select {
	case runErr := <-run.done:
		require.NoError(t, runErr)
	case <-time.After(waitTimeout):
		t.Fatal("bot did not stop in time")
	}

	record, storeErr := tb.users.GetOrCreate(context.Background(), tb.bot.ID(), yatgstorage.Profile{ID: 42})
	require.NoError(t, storeErr)
	assert.Equal(t, int64(1), record.GetInt("blocked"))
	assert.Equal(t, []string{"done"}, api.sentTexts())
	assert.Equal(t, 1, api.deletes, "webhook deleted after the push finished")

	err := tb.bot.HandlePush(context.Background(), textUpdate(t, 2, 42, "/block"))
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, err.Code())
}

func TestWebhook_RequiresServer(t *testing.T) {
	t.Parallel()

	tb := newTestBot(t, webhookConfig(t), newFakeAPI())

	err := tb.bot.Run(context.Background(), nil)

	assert.ErrorIs(t, err, yatgbot.ErrConfiguration)
	assert.ErrorIs(t, err, yatgbot.ErrWebhookServer)
}
