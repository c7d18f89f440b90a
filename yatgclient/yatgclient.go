// Package yatgclient is the remote API capability of the bots: one generic
// Invoke that calls a Bot API method over HTTPS, plus typed helpers for the
// handful of methods the framework itself needs.
//
// Every call is a POST to <base>/bot<token>/<method>. Parameters travel as
// JSON, or as multipart/form-data when one of them is an InputFile. The
// response envelope {ok, result, description, error_code, parameters} is
// unwrapped; a non-ok response becomes an *APIError whose code is the remote
// error_code, so callers can branch on 401, 404 or 429.
package yatgclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
)

const (
	DefaultBaseURL        = "https://api.telegram.org"
	DefaultRequestTimeout = 30 * time.Second
)

// Params are the arguments of a method call. Nil values are not sent.
type Params map[string]any

// Options configure a Client.
type Options struct {
	Token string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// RequestTimeout bounds every call; long polls get their poll timeout on top.
	RequestTimeout time.Duration

	// HTTPClient overrides the transport. Proxy is ignored when set.
	HTTPClient *http.Client

	// Proxy routes every call through a SOCKS5 proxy.
	Proxy *SOCKS5
}

// Client calls Bot API methods for one token. Safe for concurrent use.
type Client struct {
	token   string
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     yalogger.Logger
}

// response is the envelope of every Bot API answer.
type response struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result"`
	Description string              `json:"description"`
	ErrorCode   int                 `json:"error_code"`
	Parameters  *responseParameters `json:"parameters"`
}

type responseParameters struct {
	RetryAfter      int   `json:"retry_after"`
	MigrateToChatID int64 `json:"migrate_to_chat_id"`
}

// NewClient builds a Client.
//
// Example:
//
//	client, err := yatgclient.NewClient(yatgclient.Options{Token: token}, log)
//	if err != nil {
//		// handle error
//	}
//
//	me, err := client.GetMe(ctx)
func NewClient(options Options, log yalogger.Logger) (*Client, yaerrors.Error) {
	if options.Token == "" {
		return nil, yaerrors.FromError(http.StatusUnauthorized, ErrEmptyToken, "failed to create client")
	}

	client := &Client{
		token:   options.Token,
		baseURL: strings.TrimRight(options.BaseURL, "/"),
		timeout: options.RequestTimeout,
		http:    options.HTTPClient,
		log:     log,
	}

	if client.baseURL == "" {
		client.baseURL = DefaultBaseURL
	}

	if client.timeout <= 0 {
		client.timeout = DefaultRequestTimeout
	}

	if client.http == nil {
		client.http = &http.Client{}

		if options.Proxy != nil {
			transport, err := options.Proxy.HTTPTransport(log)
			if err != nil {
				return nil, err.Wrap("failed to create client")
			}

			client.http.Transport = transport
		}
	}

	return client, nil
}

// Token returns the token the client authenticates with.
func (c *Client) Token() string {
	return c.token
}

// Invoke calls method with params and decodes the result into result, which
// may be nil when the caller does not need it.
//
// Example:
//
//	var sent yatgclient.Message
//
//	err := client.Invoke(ctx, "sendMessage", yatgclient.Params{
//		"chat_id": chatID,
//		"text":    "hi",
//	}, &sent)
func (c *Client) Invoke(ctx context.Context, method string, params Params, result any) yaerrors.Error {
	return c.invoke(ctx, method, params, result, c.timeout)
}

func (c *Client) invoke(
	ctx context.Context,
	method string,
	params Params,
	result any,
	timeout time.Duration,
) yaerrors.Error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, contentType, err := encodeParams(params)
	if err != nil {
		return err.Wrap("failed to encode params of " + method)
	}

	request, reqErr := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method),
		body,
	)
	if reqErr != nil {
		return yaerrors.FromError(http.StatusInternalServerError, reqErr, "failed to build request "+method)
	}

	request.Header.Set("Content-Type", contentType)

	c.log.Tracef("Calling %s", method)

	resp, reqErr := c.http.Do(request)
	if reqErr != nil {
		return yaerrors.FromError(
			http.StatusBadGateway,
			errors.Join(ErrRequestFailed, stripToken(reqErr, c.token)),
			"failed to call "+method,
		)
	}
	defer resp.Body.Close()

	var envelope response

	if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr != nil {
		return yaerrors.FromError(
			http.StatusBadGateway,
			errors.Join(ErrUnexpectedResponse, decodeErr),
			fmt.Sprintf("failed to decode %s response, http status %d", method, resp.StatusCode),
		)
	}

	if !envelope.OK {
		apiErr := &APIError{
			Method:      method,
			Code:        envelope.ErrorCode,
			Description: envelope.Description,
		}

		if envelope.Parameters != nil {
			apiErr.RetryAfter = time.Duration(envelope.Parameters.RetryAfter) * time.Second
			apiErr.MigrateToChatID = envelope.Parameters.MigrateToChatID
		}

		code := apiErr.Code
		if code == 0 {
			code = http.StatusBadGateway
		}

		return yaerrors.FromError(code, apiErr, "failed to call "+method)
	}

	if result == nil {
		return nil
	}

	if decodeErr := json.Unmarshal(envelope.Result, result); decodeErr != nil {
		return yaerrors.FromError(
			http.StatusBadGateway,
			errors.Join(ErrUnexpectedResponse, decodeErr),
			"failed to decode result of "+method,
		)
	}

	return nil
}

// encodeParams picks JSON or multipart depending on whether an InputFile is present.
func encodeParams(params Params) (io.Reader, string, yaerrors.Error) {
	hasFile := false

	for _, value := range params {
		if _, ok := value.(InputFile); ok {
			hasFile = true

			break
		}
	}

	if !hasFile {
		compact := make(map[string]any, len(params))

		for key, value := range params {
			if value != nil {
				compact[key] = value
			}
		}

		raw, err := json.Marshal(compact)
		if err != nil {
			return nil, "", yaerrors.FromError(http.StatusInternalServerError, err, "failed to marshal params")
		}

		return bytes.NewReader(raw), "application/json", nil
	}

	var buf bytes.Buffer

	form := multipart.NewWriter(&buf)

	for key, value := range params {
		if err := writeFormValue(form, key, value); err != nil {
			return nil, "", err
		}
	}

	if err := form.Close(); err != nil {
		return nil, "", yaerrors.FromError(http.StatusInternalServerError, err, "failed to close multipart form")
	}

	return &buf, form.FormDataContentType(), nil
}

func writeFormValue(form *multipart.Writer, key string, value any) yaerrors.Error {
	var err error

	switch typed := value.(type) {
	case nil:
		return nil
	case InputFile:
		var part io.Writer

		part, err = form.CreateFormFile(key, typed.Name)
		if err == nil {
			_, err = io.Copy(part, typed.Data)
		}
	case string:
		err = form.WriteField(key, typed)
	default:
		var raw []byte

		raw, err = json.Marshal(typed)
		if err == nil {
			err = form.WriteField(key, string(raw))
		}
	}

	if err != nil {
		return yaerrors.FromError(http.StatusInternalServerError, err, "failed to write form field "+key)
	}

	return nil
}

// stripToken keeps the token out of transport errors, which quote the URL.
func stripToken(err error, token string) error {
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}
