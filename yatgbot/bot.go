package yatgbot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/YaCodeDev/GoYaTgBot/config"
	"github.com/YaCodeDev/GoYaTgBot/yabackoff"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalocales"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot/messagequeue"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot/webhook"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

const deleteWebhookTimeout = 5 * time.Second

// Options assemble a Bot. Only Config is required.
type Options struct {
	Config config.BotConfig

	// API defaults to a yatgclient.Client built from Client and the token.
	API    RemoteAPI
	Client yatgclient.Options

	Registry *Registry
	// Users defaults to a MemoryUserStorage, Offsets to a MemoryOffsetStorage.
	Users   yatgstorage.UserStorage
	Offsets yatgstorage.OffsetStorage

	// Queue, when set, rate-limits the default sender.
	Queue  *messagequeue.Queue
	Sender Sender

	Localizer *yalocales.Localizer
	Log       yalogger.Logger

	// Authorize admits senders to bindings restricted with RequireLevel.
	// Nil admits everybody.
	Authorize Authorizer
}

// Bot is one bot identity with its registry, transport and dispatcher.
type Bot struct {
	name       string
	token      string
	id         int64
	config     config.BotConfig
	api        RemoteAPI
	registry   *Registry
	users      yatgstorage.UserStorage
	offsets    yatgstorage.OffsetStorage
	normalizer *Normalizer
	dispatcher *Dispatcher
	log        yalogger.Logger

	info    atomic.Pointer[BotInfo]
	running atomic.Bool

	mu       sync.Mutex
	stopping bool
	inflight sync.WaitGroup
}

// NewBot validates the configuration and builds a stopped bot. Invalid
// options are configuration errors.
//
// Example:
//
//	bot, err := yatgbot.NewBot(yatgbot.Options{
//		Config: config.BotConfig{Name: "echo", Token: token},
//		Log:    log,
//	})
//	if err != nil {
//		return err
//	}
//
//	_ = bot.Registry().OnCommand("echo", func(_ context.Context, data *yatgbot.HandlerData) (yatgbot.Result, yaerrors.Error) {
//		return yatgbot.ReplyText(data.Event.Args()), nil
//	})
func NewBot(opts Options) (*Bot, yaerrors.Error) {
	cfg := opts.Config
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, configurationError(err, "failed to create bot")
	}

	id, parseErr := config.ParseBotID(cfg.Token)
	if parseErr != nil {
		return nil, yaerrors.FromError(
			http.StatusBadRequest,
			fmt.Errorf("%w: %w", ErrConfiguration, parseErr),
			"failed to create bot",
		)
	}

	log := opts.Log
	if log == nil {
		log = yalogger.NewBaseLogger(nil).NewLogger()
	}

	log = log.WithBot(cfg.Name)

	api := opts.API
	if api == nil {
		clientOptions := opts.Client
		clientOptions.Token = cfg.Token

		client, err := yatgclient.NewClient(clientOptions, log)
		if err != nil {
			return nil, configurationError(err, "failed to create bot")
		}

		api = client
	}

	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	if opts.Users == nil {
		opts.Users = yatgstorage.NewMemoryUserStorage()
	}

	if opts.Offsets == nil {
		opts.Offsets = yatgstorage.NewMemoryOffsetStorage()
	}

	if opts.Sender == nil {
		opts.Sender = NewAPISender(api, opts.Queue)
	}

	if opts.Localizer == nil {
		opts.Localizer = yalocales.NewLocalizer(cfg.DefaultLanguage)
	}

	normalizer := &Normalizer{Prefix: cfg.CommandPrefix}

	bot := &Bot{
		name:       cfg.Name,
		token:      cfg.Token,
		id:         id,
		config:     cfg,
		api:        api,
		registry:   opts.Registry,
		users:      opts.Users,
		offsets:    opts.Offsets,
		normalizer: normalizer,
		log:        log,
	}

	bot.dispatcher = NewDispatcher(DispatcherOptions{
		Bot:        BotInfo{ID: id, Name: cfg.Name},
		Normalizer: normalizer,
		Registry:   opts.Registry,
		Users:      opts.Users,
		Sender:     opts.Sender,
		API:        api,
		Localizer:  opts.Localizer,
		Log:        log,
		Policy:     cfg.DefaultPolicy,
		Timeout:    cfg.DispatchTimeout,
		Authorize:  opts.Authorize,
	})

	return bot, nil
}

func (b *Bot) Name() string {
	return b.name
}

func (b *Bot) ID() int64 {
	return b.id
}

func (b *Bot) Token() string {
	return b.token
}

func (b *Bot) Mode() config.Mode {
	return b.config.Mode
}

// Info returns what getMe reported, or only the id before the bot started.
func (b *Bot) Info() BotInfo {
	if info := b.info.Load(); info != nil {
		return *info
	}

	return BotInfo{ID: b.id, Name: b.name}
}

// Registry returns the bindings of the bot. Register before Run.
func (b *Bot) Registry() *Registry {
	return b.registry
}

// Users returns the user store of the bot.
func (b *Bot) Users() yatgstorage.UserStorage {
	return b.users
}

func (b *Bot) Running() bool {
	return b.running.Load()
}

// SetMaintenance answers every event allow rejects with message. A nil
// allow rejects everything.
//
// Example:
//
//	bot.SetMaintenance("Back in five minutes", func(ev yatgbot.Event) bool {
//		return ev.SenderID == adminID
//	})
func (b *Bot) SetMaintenance(message string, allow func(ev Event) bool) {
	b.dispatcher.SetMaintenance(message, allow)
}

func (b *Bot) ClearMaintenance() {
	b.dispatcher.ClearMaintenance()
}

// Dispatch runs one update through the bot, outside of any transport.
func (b *Bot) Dispatch(ctx context.Context, raw RawUpdate) Outcome {
	return b.dispatcher.Dispatch(ctx, raw)
}

// Run validates the token, freezes the registry and receives updates until
// ctx is done. In-flight dispatches finish before Run returns. Webhook bots
// need server; polling bots ignore it.
//
// Only configuration errors and errors while starting are returned.
func (b *Bot) Run(ctx context.Context, server *webhook.Server) yaerrors.Error {
	if b.config.Mode == config.ModeWebhook && server == nil {
		return yaerrors.FromError(
			http.StatusInternalServerError,
			fmt.Errorf("%w: %w", ErrConfiguration, ErrWebhookServer),
			"failed to run bot",
		)
	}

	if !b.running.CompareAndSwap(false, true) {
		return yaerrors.FromError(http.StatusConflict, ErrAlreadyRunning, "failed to run bot")
	}
	defer b.running.Store(false)

	b.mu.Lock()
	b.stopping = false
	b.mu.Unlock()

	if err := b.start(ctx); err != nil {
		return err.Wrap("failed to run bot")
	}

	if ctx.Err() != nil {
		return nil
	}

	switch b.config.Mode {
	case config.ModeWebhook:
		return b.runWebhook(ctx, server)
	default:
		return b.runPolling(ctx)
	}
}

// start asks the platform who the bot is. A rejected token is a
// configuration error; network failures are retried until ctx is done.
func (b *Bot) start(ctx context.Context) yaerrors.Error {
	backoff := yabackoff.NewExponential(b.config.Polling.ErrorCooldown, backoffMultiplier, b.config.Polling.MaxErrorCooldown)

	for {
		me, err := b.api.GetMe(ctx)
		if err == nil {
			info := BotInfo{ID: b.id, Name: b.name, Username: me.Username}

			b.info.Store(&info)
			b.normalizer.BotUsername = me.Username
			b.dispatcher.bot = info
			b.registry.Freeze()

			b.log.Infof("started as @%s in %s mode", me.Username, b.config.Mode)

			return nil
		}

		if configErr := asConfigurationError(err, "failed to validate token"); configErr != nil {
			return configErr
		}

		if ctx.Err() != nil {
			return nil
		}

		b.log.Errorf("failed to reach the platform, retrying in %s: %v", backoff.Current(), err)

		if backoff.WaitContext(ctx) != nil {
			return nil
		}
	}
}

func (b *Bot) runPolling(ctx context.Context) yaerrors.Error {
	p := &poller{
		botID:      b.id,
		api:        b.api,
		offsets:    b.offsets,
		dispatcher: b.dispatcher,
		config:     b.config.Polling,
		log:        b.log,
	}

	return p.run(ctx)
}

func (b *Bot) runWebhook(ctx context.Context, server *webhook.Server) yaerrors.Error {
	certificate, err := yatgclient.FileFromPath(b.config.Webhook.Certificate)
	if err != nil {
		return configurationError(err, "failed to read webhook certificate")
	}

	secret := b.config.Webhook.SecretToken
	if secret == "" {
		secret = uuid.NewString()
	}

	key := webhook.Key(b.token, strings.ReplaceAll(uuid.NewString(), "-", ""))

	path, err := server.Mount(key, secret, b.HandlePush)
	if err != nil {
		return configurationError(err, "failed to mount webhook")
	}
	defer server.Unmount(key)

	params := yatgclient.SetWebhookParams{
		URL:            strings.TrimRight(b.config.Webhook.PublicURL, "/") + path,
		Certificate:    &certificate,
		MaxConnections: b.config.Webhook.MaxConnections,
		AllowedUpdates: b.config.Polling.AllowedUpdates,
		SecretToken:    secret,
	}

	if err := b.api.SetWebhook(ctx, params); err != nil {
		if configErr := asConfigurationError(err, "failed to set webhook"); configErr != nil {
			return configErr
		}

		b.stopAccepting()

		return yaerrors.FromError(err.Code(), fmt.Errorf("%w: %w", ErrTransport, err), "failed to set webhook")
	}

	b.log.Info("webhook registered")

	<-ctx.Done()

	b.stopAccepting()

	deleteCtx, cancel := context.WithTimeout(context.Background(), deleteWebhookTimeout)
	defer cancel()

	if err := b.api.DeleteWebhook(deleteCtx, false); err != nil {
		b.log.Warnf("failed to delete webhook: %v", err)
	}

	return nil
}

// HandlePush dispatches one pushed update synchronously. Pushes arriving
// after the bot began stopping are refused with a 503 error.
func (b *Bot) HandlePush(ctx context.Context, raw RawUpdate) yaerrors.Error {
	b.mu.Lock()

	if b.stopping || !b.running.Load() {
		b.mu.Unlock()

		return yaerrors.FromError(http.StatusServiceUnavailable, webhook.ErrStopping, "bot is not accepting updates")
	}

	b.inflight.Add(1)
	b.mu.Unlock()

	defer b.inflight.Done()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.DefaultWebhookDispatchCap)
	defer cancel()

	b.dispatcher.Dispatch(ctx, raw)

	return nil
}

// stopAccepting refuses new pushes and waits for the running ones.
func (b *Bot) stopAccepting() {
	b.mu.Lock()
	b.stopping = true
	b.mu.Unlock()

	b.inflight.Wait()
}

func configurationError(err yaerrors.Error, msg string) yaerrors.Error {
	return yaerrors.FromError(http.StatusBadRequest, fmt.Errorf("%w: %w", ErrConfiguration, err), msg)
}
