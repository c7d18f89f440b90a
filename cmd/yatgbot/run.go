package main

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/YaCodeDev/GoYaTgBot/config"
	"github.com/YaCodeDev/GoYaTgBot/yacache"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalocales"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yaratelimit"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot/messagequeue"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot/webhook"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
)

//go:embed locales
var builtinLocales embed.FS

// Platform limits: one message per second in a private chat, twenty per
// minute in a group.
const (
	privateLimit  = 1
	privateWindow = time.Second
	groupLimit    = 20
	groupWindow   = time.Minute
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every bot until SIGINT or SIGTERM",
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, log, err := loadSettings()
		if err != nil {
			return err
		}

		return run(cmd.Context(), settings, log)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(ctx context.Context, settings config.Settings, log yalogger.Logger) error {
	bots, err := config.LoadBots(settings.BotsFile)
	if err != nil {
		log.Errorf("Failed to load bots: %v", err)

		return err
	}

	client, err := clientOptions(settings, log)
	if err != nil {
		return err
	}

	locales, err := localeFiles(settings)
	if err != nil {
		return err
	}

	limits := yacache.NewCache(yacache.NewMemoryContainer())
	defer func() { _ = limits.Close() }()

	queue := messagequeue.NewQueue(ctx, messagequeue.Options{
		Workers: uint(max(settings.QueueWorkers, 1)),
		Private: yaratelimit.NewRateLimit(limits, privateLimit, privateWindow),
		Group:   yaratelimit.NewRateLimit(limits, groupLimit, groupWindow),
		Log:     log,
	})
	defer queue.Close()

	manager := yatgbot.NewManager(yatgbot.ManagerOptions{
		Webhook: webhook.NewServer(webhook.Options{
			Host:            settings.ListenHost,
			Port:            settings.ListenPort,
			CertFile:        settings.TLSCertFile,
			KeyFile:         settings.TLSKeyFile,
			RequestTimeout:  config.DefaultWebhookDispatchCap,
			ShutdownTimeout: settings.ShutdownTimeout,
			Log:             log,
		}),
		Log: log,
	})

	for _, cfg := range bots {
		bot, err := newBot(cfg, settings, client, locales, queue, log)
		if err != nil {
			return err
		}

		if err := manager.Add(bot); err != nil {
			return err
		}
	}

	manager.OnStart(func(context.Context) yaerrors.Error {
		log.Infof("Starting %d bot(s), version %s", len(bots), Version)

		return nil
	})

	manager.OnStop(func(context.Context) yaerrors.Error {
		log.Info("All bots stopped")

		return nil
	})

	if err := manager.Run(ctx); err != nil {
		return err
	}

	return nil
}

func newBot(
	cfg config.BotConfig,
	settings config.Settings,
	client yatgclient.Options,
	locales fs.FS,
	queue *messagequeue.Queue,
	log yalogger.Logger,
) (*yatgbot.Bot, yaerrors.Error) {
	botLog := log.WithBot(cfg.Name)

	store, err := openStores(cfg, settings, botLog)
	if err != nil {
		return nil, err
	}

	localizer := yalocales.NewLocalizer(cfg.DefaultLanguage)
	if err := localizer.LoadLocales(locales); err != nil {
		return nil, err.WrapWithLog("failed to load locales of "+cfg.Name, botLog)
	}

	registry := yatgbot.NewRegistry()
	if err := registerHandlers(registry); err != nil {
		return nil, yaerrors.FromError(http.StatusInternalServerError, err, "failed to register handlers of "+cfg.Name)
	}

	bot, err := yatgbot.NewBot(yatgbot.Options{
		Config:    cfg,
		Client:    client,
		Registry:  registry,
		Users:     store.users,
		Offsets:   store.offsets,
		Queue:     queue,
		Localizer: localizer,
		Log:       log,
		Authorize: adminAuthorizer(cfg.Admins),
	})
	if err != nil {
		return nil, err
	}

	if err := registry.OnText(
		yatgbot.Command("maintenance").RequireLevel(levelAdmin),
		0,
		maintenance(bot, cfg.Admins),
	); err != nil {
		return nil, err.Wrap("failed to register maintenance of " + cfg.Name)
	}

	return bot, nil
}

func clientOptions(settings config.Settings, log yalogger.Logger) (yatgclient.Options, yaerrors.Error) {
	options := yatgclient.Options{BaseURL: settings.APIBaseURL}

	if settings.ProxyURL == "" {
		return options, nil
	}

	proxy, err := yatgclient.NewSOCKS5WithParseURL(settings.ProxyURL, log)
	if err != nil {
		return options, err.Wrap("failed to configure proxy")
	}

	options.Proxy = proxy

	return options, nil
}

// localeFiles prefers LocalesDir over the built-in texts.
func localeFiles(settings config.Settings) (fs.FS, yaerrors.Error) {
	if settings.LocalesDir != "" {
		return os.DirFS(settings.LocalesDir), nil
	}

	files, err := fs.Sub(builtinLocales, "locales")
	if err != nil {
		return nil, yaerrors.FromError(http.StatusInternalServerError, err, "failed to open built-in locales")
	}

	return files, nil
}
