package yatgbot

import "errors"

// Error kinds. Failures reported by this package carry one of them in their
// cause chain:
//
//	if errors.Is(err, yatgbot.ErrConfiguration) { ... }
var (
	ErrTransport     = errors.New("transport error")
	ErrHandler       = errors.New("handler error")
	ErrStore         = errors.New("store error")
	ErrConfiguration = errors.New("configuration error")
)

var (
	ErrHandlerPanic   = errors.New("handler panicked")
	ErrRegistryFrozen = errors.New("registry is read-only while the bot runs")
	ErrNilHandler     = errors.New("handler is nil")
	ErrInvalidToken   = errors.New("token rejected by the platform")
	ErrDuplicateToken = errors.New("token already registered")
	ErrAlreadyRunning = errors.New("bot is already running")
	ErrWebhookServer  = errors.New("webhook mode requires a webhook server")
	ErrNoBots         = errors.New("no bots to run")
)
