package yatgclient_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/proxy"
)

const token = "123456:ABC"

type call struct {
	Path        string
	ContentType string
	Body        map[string]any
	Form        map[string]string
	Files       map[string]string
}

type fakeAPI struct {
	mu      sync.Mutex
	calls   []call
	answers map[string]string
}

func newFakeAPI(t *testing.T, answers map[string]string) (*fakeAPI, *yatgclient.Client) {
	t.Helper()

	api := &fakeAPI{answers: answers}

	server := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(server.Close)

	client, err := yatgclient.NewClient(yatgclient.Options{
		Token:          token,
		BaseURL:        server.URL,
		RequestTimeout: 5 * time.Second,
	}, yalogger.NewTestLogger())
	require.NoError(t, err)

	return api, client
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	received := call{Path: r.URL.Path, ContentType: r.Header.Get("Content-Type")}

	if strings.HasPrefix(received.ContentType, "multipart/form-data") {
		_ = r.ParseMultipartForm(1 << 20)

		received.Form = map[string]string{}
		received.Files = map[string]string{}

		for key, values := range r.MultipartForm.Value {
			received.Form[key] = values[0]
		}

		for key, headers := range r.MultipartForm.File {
			file, _ := headers[0].Open()
			data, _ := io.ReadAll(file)
			_ = file.Close()

			received.Files[key] = headers[0].Filename + ":" + string(data)
		}
	} else {
		_ = json.NewDecoder(r.Body).Decode(&received.Body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, received)
	f.mu.Unlock()

	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	answer, ok := f.answers[method]
	if !ok {
		answer = `{"ok":true,"result":true}`
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, answer)
}

func (f *fakeAPI) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[len(f.calls)-1]
}

func TestGetMe_Works(t *testing.T) {
	t.Parallel()

	api, client := newFakeAPI(t, map[string]string{
		"getMe": `{"ok":true,"result":{"id":123456,"is_bot":true,"first_name":"Echo","username":"echo_bot"}}`,
	})

	me, err := client.GetMe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(123456), me.ID)
	assert.Equal(t, "echo_bot", me.Username)
	assert.Equal(t, "/bot"+token+"/getMe", api.last().Path)
}

func TestInvoke_APIError(t *testing.T) {
	t.Parallel()

	_, client := newFakeAPI(t, map[string]string{
		"getMe":       `{"ok":false,"error_code":401,"description":"Unauthorized"}`,
		"sendMessage": `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":7}}`,
	})

	t.Run("[Invoke] - unauthorized", func(t *testing.T) {
		_, err := client.GetMe(context.Background())
		require.Error(t, err)

		assert.Equal(t, http.StatusUnauthorized, err.Code())

		apiErr, ok := yatgclient.AsAPIError(err)
		require.True(t, ok)
		assert.True(t, apiErr.IsUnauthorized())
	})

	t.Run("[Invoke] - flood wait", func(t *testing.T) {
		_, err := client.SendMessage(context.Background(), yatgclient.SendMessageParams{ChatID: 1, Text: "x"})
		require.Error(t, err)

		apiErr, ok := yatgclient.AsAPIError(err)
		require.True(t, ok)
		assert.True(t, apiErr.IsFloodWait())
		assert.Equal(t, 7*time.Second, apiErr.RetryAfter)
	})
}

func TestInvoke_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := yatgclient.NewClient(yatgclient.Options{Token: token, BaseURL: server.URL}, yalogger.NewTestLogger())
	require.NoError(t, err)

	_, err = client.GetMe(context.Background())

	assert.ErrorIs(t, err, yatgclient.ErrRequestFailed)
	assert.NotContains(t, err.Error(), token)
}

func TestGetUpdates_Works(t *testing.T) {
	t.Parallel()

	api, client := newFakeAPI(t, map[string]string{
		"getUpdates": `{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"date":0,"chat":{"id":5,"type":"private"},"text":"a"}},
			{"update_id":11,"poll":{"id":"x"}}
		]}`,
	})

	updates, err := client.GetUpdates(context.Background(), yatgclient.GetUpdatesParams{
		Offset:         10,
		Limit:          100,
		Timeout:        0,
		AllowedUpdates: []string{"message"},
	})
	require.NoError(t, err)
	require.Len(t, updates, 2)

	assert.Equal(t, int64(10), updates[0].Offset)
	assert.Equal(t, int64(11), updates[1].Offset)
	assert.Contains(t, string(updates[1].Payload), "poll")

	body := api.last().Body
	assert.InDelta(t, 10, body["offset"], 0)
	assert.InDelta(t, 100, body["limit"], 0)
	assert.Equal(t, []any{"message"}, body["allowed_updates"])
}

func TestSetWebhook_UploadsCertificate(t *testing.T) {
	t.Parallel()

	api, client := newFakeAPI(t, nil)

	err := client.SetWebhook(context.Background(), yatgclient.SetWebhookParams{
		URL:            "https://bot.example.com/webhook/x/",
		Certificate:    &yatgclient.InputFile{Name: "cert.pem", Data: strings.NewReader("PEM")},
		MaxConnections: 40,
		AllowedUpdates: []string{"message", "callback_query"},
		SecretToken:    "s3cr3t",
	})
	require.NoError(t, err)

	received := api.last()

	assert.Contains(t, received.ContentType, "multipart/form-data")
	assert.Equal(t, "https://bot.example.com/webhook/x/", received.Form["url"])
	assert.Equal(t, "40", received.Form["max_connections"])
	assert.Equal(t, `["message","callback_query"]`, received.Form["allowed_updates"])
	assert.Equal(t, "s3cr3t", received.Form["secret_token"])
	assert.Equal(t, "cert.pem:PEM", received.Files["certificate"])
}

func TestSendMedia_Works(t *testing.T) {
	t.Parallel()

	api, client := newFakeAPI(t, map[string]string{
		"sendPhoto": `{"ok":true,"result":{"message_id":9,"date":0,"chat":{"id":5,"type":"private"}}}`,
	})

	sent, err := client.SendMedia(context.Background(), yatgclient.SendMediaParams{
		ChatID:  5,
		Kind:    yatgclient.MediaPhoto,
		Media:   "file-id",
		Caption: "look",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(9), sent.MessageID)
	assert.Equal(t, "file-id", api.last().Body["photo"])

	_, err = client.SendMedia(context.Background(), yatgclient.SendMediaParams{Kind: "hologram"})
	assert.Error(t, err)
}

func TestNewClient_EmptyToken(t *testing.T) {
	t.Parallel()

	_, err := yatgclient.NewClient(yatgclient.Options{}, yalogger.NewTestLogger())

	assert.ErrorIs(t, err, yatgclient.ErrEmptyToken)
}

func TestSOCKS5_Works(t *testing.T) {
	t.Parallel()

	const username = "skalse"
	const password = "lingvistka_sonya_echkere"
	const host = "yahost"
	const port = 8081

	url := fmt.Sprintf("socks5://%s:%s@%s:%d", username, password, host, port)

	log := yalogger.NewTestLogger()

	socks5, err := yatgclient.NewSOCKS5WithParseURL(url, log)
	require.NoError(t, err)

	t.Run("[ParseURL] - credentials", func(t *testing.T) {
		assert.Equal(t, username, *socks5.Username)
		assert.Equal(t, password, *socks5.Password)
		assert.Equal(t, proxy.Auth{User: username, Password: password}, *socks5.GetAuth())
	})

	t.Run("[ParseURL] - address", func(t *testing.T) {
		assert.Equal(t, host, socks5.Host)
		assert.Equal(t, uint16(port), socks5.Port)
		assert.Equal(t, fmt.Sprintf("%s:%d", host, port), socks5.GetFullAddress())
	})

	t.Run("[HTTPTransport] - builds", func(t *testing.T) {
		transport, err := socks5.HTTPTransport(log)
		require.NoError(t, err)
		assert.NotNil(t, transport.DialContext)
	})

	t.Run("[ParseURL] - wrong scheme", func(t *testing.T) {
		_, err := yatgclient.NewSOCKS5WithParseURL("http://host:1", log)
		assert.Error(t, err)
	})
}
