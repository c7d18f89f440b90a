// Package config loads process settings from the environment and bot
// definitions from a YAML file.
//
// Process settings use `env` struct tags (prefixed with YATGBOT_) and an
// optional .env file:
//
//	var settings config.Settings
//	if err := config.LoadConfigStructFromEnv(&settings, log); err != nil { ... }
//
// Bot definitions live in a YAML file keyed by bot name. Any key can be
// overridden from the environment, with "__" separating path segments:
//
//	bots:
//	  echo:
//	    token: "123:abc"
//	    mode: polling
//
//	YATGBOT_BOTS__ECHO__TOKEN=123:def   # overrides the token above
package config

import (
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Settings are the process-wide options shared by every bot.
type Settings struct {
	Log yalogger.Config

	BotsFile string `env:"BOTS_FILE" envDefault:"bots.yaml"`

	APIBaseURL string `env:"API_BASE_URL" envDefault:"https://api.telegram.org"`
	ProxyURL   string `env:"PROXY_URL"`

	ListenHost  string `env:"LISTEN_HOST" envDefault:"0.0.0.0"`
	ListenPort  uint16 `env:"LISTEN_PORT" envDefault:"8443"`
	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     uint16 `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LocalesDir string `env:"LOCALES_DIR"`

	QueueWorkers    int           `env:"QUEUE_WORKERS" envDefault:"4"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// LoadConfigStructFromEnv loads a .env file when present and fills instance
// from YATGBOT_-prefixed environment variables.
//
// Example usage:
//
//	type Config struct {
//		Token string `env:"TOKEN,required"`
//		Debug bool   `env:"DEBUG"`
//	}
//
//	var cfg Config
//
//	if err := config.LoadConfigStructFromEnv(&cfg, log); err != nil {
//		// handle error
//	}
func LoadConfigStructFromEnv[T any](instance *T, log yalogger.Logger) yaerrors.Error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("Error loading .env file: %v", err)
	}

	if err := env.ParseWithOptions(instance, env.Options{Prefix: EnvPrefix}); err != nil {
		return yaerrors.FromErrorWithLog(
			http.StatusInternalServerError,
			err,
			"failed to parse environment",
			log,
		)
	}

	return nil
}
