package webhook

import "errors"

var (
	ErrRouteExists    = errors.New("webhook route already mounted")
	ErrNotListening   = errors.New("webhook server is not listening")
	ErrBind           = errors.New("failed to bind webhook listener")
	ErrStopping       = errors.New("webhook server is stopping")
	ErrMalformedBody  = errors.New("malformed update body")
	ErrAlreadyStarted = errors.New("webhook server already started")
	ErrTLSKeyPair     = errors.New("unusable TLS key pair")
)
