package config

import "errors"

var (
	ErrNoBots                = errors.New("no bots configured")
	ErrEmptyToken            = errors.New("bot token is empty")
	ErrMalformedToken        = errors.New("bot token must look like <id>:<secret>")
	ErrUnknownMode           = errors.New("unknown transport mode")
	ErrUnknownPolicy         = errors.New("unknown default policy")
	ErrUnknownStore          = errors.New("unknown store kind")
	ErrMissingPublicURL      = errors.New("webhook mode requires a public url")
	ErrMissingCertificate    = errors.New("webhook mode requires a certificate")
	ErrInvalidPollingTimeout = errors.New("polling timeout must be positive")
	ErrMissingDSN            = errors.New("store requires a dsn")
)
