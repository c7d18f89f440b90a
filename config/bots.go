package config

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// PollingConfig tunes the long-polling loop.
type PollingConfig struct {
	Timeout          time.Duration `koanf:"timeout"`
	Limit            int           `koanf:"limit"`
	ErrorCooldown    time.Duration `koanf:"error_cooldown"`
	MaxErrorCooldown time.Duration `koanf:"max_error_cooldown"`
	AllowedUpdates   []string      `koanf:"allowed_updates"`
}

// WebhookConfig describes how the platform reaches a webhook bot.
type WebhookConfig struct {
	PublicURL      string `koanf:"public_url"`
	Certificate    string `koanf:"certificate"`
	MaxConnections int    `koanf:"max_connections"`
	SecretToken    string `koanf:"secret_token"`
}

// StoreConfig selects the user store of a bot.
type StoreConfig struct {
	Kind StoreKind `koanf:"kind"`
	// DSN is the sqlite file path for StoreSQLite.
	DSN string `koanf:"dsn"`
	// Secret enables record encryption for StoreRedis.
	Secret string `koanf:"secret"`
}

// BotConfig is one bot definition.
type BotConfig struct {
	Name            string        `koanf:"name"`
	Token           string        `koanf:"token"`
	Mode            Mode          `koanf:"mode"`
	Polling         PollingConfig `koanf:"polling"`
	Webhook         WebhookConfig `koanf:"webhook"`
	DefaultPolicy   Policy        `koanf:"default_policy"`
	DefaultLanguage string        `koanf:"default_language"`
	CommandPrefix   string        `koanf:"command_prefix"`
	DispatchTimeout time.Duration `koanf:"dispatch_timeout"`
	Store           StoreConfig   `koanf:"store"`
	// Admins are the sender ids admitted to admin-level commands.
	Admins []int64 `koanf:"admins"`
}

type botsFile struct {
	Bots map[string]BotConfig `koanf:"bots"`
}

// LoadBots reads the bot definitions at path, overlays YATGBOT_-prefixed
// environment variables, applies defaults and validates every bot.
// Bots are returned sorted by name.
//
// Example usage:
//
//	bots, err := config.LoadBots("bots.yaml")
//	if err != nil {
//		log.Fatalf("invalid bots file: %v", err)
//	}
func LoadBots(path string) ([]BotConfig, yaerrors.Error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"failed to read bots file "+path,
		)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"failed to read environment overlay",
		)
	}

	var parsed botsFile

	if err := k.Unmarshal("", &parsed); err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"failed to decode bots file",
		)
	}

	if len(parsed.Bots) == 0 {
		return nil, yaerrors.FromError(http.StatusBadRequest, ErrNoBots, path)
	}

	names := make([]string, 0, len(parsed.Bots))
	for name := range parsed.Bots {
		names = append(names, name)
	}

	slices.Sort(names)

	bots := make([]BotConfig, 0, len(names))

	for _, name := range names {
		bot := parsed.Bots[name]

		if bot.Name == "" {
			bot.Name = name
		}

		bot.ApplyDefaults()

		if err := bot.Validate(); err != nil {
			return nil, err
		}

		bots = append(bots, bot)
	}

	return bots, nil
}

// envKey maps YATGBOT_BOTS__ECHO__TOKEN to bots.echo.token.
// Variables without "__" belong to Settings and are skipped.
func envKey(s string) string {
	key := strings.TrimPrefix(s, EnvPrefix)
	if !strings.Contains(key, "__") {
		return ""
	}

	return strings.ToLower(strings.ReplaceAll(key, "__", "."))
}

// ApplyDefaults fills every unset option.
func (b *BotConfig) ApplyDefaults() {
	if b.Mode == "" {
		b.Mode = ModePolling
	}

	if b.DefaultPolicy == "" {
		b.DefaultPolicy = PolicyIgnore
	}

	if b.DefaultLanguage == "" {
		b.DefaultLanguage = DefaultLanguage
	}

	if b.CommandPrefix == "" {
		b.CommandPrefix = "/"
	}

	if b.DispatchTimeout == 0 {
		b.DispatchTimeout = DefaultDispatchTimeout
	}

	if b.Polling.Timeout == 0 {
		b.Polling.Timeout = DefaultPollingTimeout
	}

	if b.Polling.Limit == 0 {
		b.Polling.Limit = DefaultPollingLimit
	}

	if b.Polling.ErrorCooldown == 0 {
		b.Polling.ErrorCooldown = DefaultErrorCooldown
	}

	if b.Polling.MaxErrorCooldown == 0 {
		b.Polling.MaxErrorCooldown = DefaultMaxErrorCooldown
	}

	if b.Webhook.MaxConnections == 0 {
		b.Webhook.MaxConnections = DefaultMaxConnections
	}

	if b.Store.Kind == "" {
		b.Store.Kind = StoreMemory
	}
}

// Validate reports the first invalid option of the bot.
func (b *BotConfig) Validate() yaerrors.Error {
	invalid := func(cause error) yaerrors.Error {
		return yaerrors.FromError(http.StatusBadRequest, cause, fmt.Sprintf("invalid bot %q", b.Name))
	}

	if b.Token == "" {
		return invalid(ErrEmptyToken)
	}

	if _, err := ParseBotID(b.Token); err != nil {
		return invalid(err)
	}

	switch b.Mode {
	case ModePolling:
		if b.Polling.Timeout <= 0 {
			return invalid(ErrInvalidPollingTimeout)
		}
	case ModeWebhook:
		if b.Webhook.PublicURL == "" {
			return invalid(ErrMissingPublicURL)
		}

		if b.Webhook.Certificate == "" {
			return invalid(ErrMissingCertificate)
		}
	default:
		return invalid(fmt.Errorf("%w: %q", ErrUnknownMode, b.Mode))
	}

	switch b.DefaultPolicy {
	case PolicyIgnore, PolicyFallback:
	default:
		return invalid(fmt.Errorf("%w: %q", ErrUnknownPolicy, b.DefaultPolicy))
	}

	switch b.Store.Kind {
	case StoreMemory, StoreRedis:
	case StoreSQLite:
		if b.Store.DSN == "" {
			return invalid(ErrMissingDSN)
		}
	default:
		return invalid(fmt.Errorf("%w: %q", ErrUnknownStore, b.Store.Kind))
	}

	return nil
}

// ParseBotID extracts the numeric bot id from the head of a token.
//
// Example usage:
//
//	id, err := config.ParseBotID("123456:ABC") // 123456
func ParseBotID(token string) (int64, error) {
	head, _, found := strings.Cut(token, ":")
	if !found {
		return 0, ErrMalformedToken
	}

	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Join(ErrMalformedToken, err)
	}

	return id, nil
}
