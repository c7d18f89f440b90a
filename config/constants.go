package config

import "time"

// EnvPrefix is prepended to every environment variable read by this package.
const EnvPrefix = "YATGBOT_"

// Mode selects how a bot receives updates.
type Mode string

const (
	ModePolling Mode = "polling"
	ModeWebhook Mode = "webhook"
)

// Policy is what a bot does with an event no handler matched.
type Policy string

const (
	PolicyIgnore   Policy = "ignore"
	PolicyFallback Policy = "fallback"
)

// StoreKind selects the user store back-end.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreSQLite StoreKind = "sqlite"
	StoreRedis  StoreKind = "redis"
)

const (
	DefaultPollingTimeout     = 30 * time.Second
	DefaultPollingLimit       = 100
	DefaultErrorCooldown      = 10 * time.Second
	DefaultMaxErrorCooldown   = 5 * time.Minute
	DefaultMaxConnections     = 40
	DefaultLanguage           = "en"
	DefaultDispatchTimeout    = time.Minute
	DefaultWebhookDispatchCap = 10 * time.Second
)
