package yatgclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrEmptyToken         = errors.New("token is empty")
	ErrRequestFailed      = errors.New("request to remote api failed")
	ErrUnexpectedResponse = errors.New("unexpected response from remote api")
)

// APIError is a non-ok answer of the remote API.
type APIError struct {
	Method          string
	Code            int
	Description     string
	RetryAfter      time.Duration
	MigrateToChatID int64
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Method, e.Code, e.Description)
}

// IsUnauthorized reports whether the token was rejected.
func (e *APIError) IsUnauthorized() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusNotFound
}

// IsFloodWait reports whether the call was throttled.
func (e *APIError) IsFloodWait() bool {
	return e.Code == http.StatusTooManyRequests
}

// AsAPIError extracts the *APIError from an error chain.
//
// Example:
//
//	if apiErr, ok := yatgclient.AsAPIError(err); ok && apiErr.IsFloodWait() {
//		time.Sleep(apiErr.RetryAfter)
//	}
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError

	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}
