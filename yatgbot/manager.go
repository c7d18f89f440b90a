package yatgbot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/YaCodeDev/GoYaTgBot/config"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yathreadsafeset"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot/webhook"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

// Hook runs once before the bots start or after all of them stopped.
type Hook func(ctx context.Context) yaerrors.Error

type ManagerOptions struct {
	// Webhook is the listener shared by webhook bots.
	Webhook *webhook.Server
	// Signals end Run; default os.Interrupt and SIGTERM.
	Signals []os.Signal
	Log     yalogger.Logger
}

// Manager runs bots side by side for the life of the process.
type Manager struct {
	server  *webhook.Server
	signals []os.Signal
	log     yalogger.Logger
	tokens  *yathreadsafeset.ThreadSafeSet[string]

	mu      sync.Mutex
	bots    []*Bot
	onStart []Hook
	onStop  []Hook
}

func NewManager(opts ManagerOptions) *Manager {
	if len(opts.Signals) == 0 {
		opts.Signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	if opts.Log == nil {
		opts.Log = yalogger.NewBaseLogger(nil).NewLogger()
	}

	return &Manager{
		server:  opts.Webhook,
		signals: opts.Signals,
		log:     opts.Log,
		tokens:  yathreadsafeset.NewThreadSafeSet[string](),
	}
}

// Add registers bots. A token registered twice is a configuration error.
func (m *Manager) Add(bots ...*Bot) yaerrors.Error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, bot := range bots {
		if !m.tokens.TrySet(bot.Token()) {
			return yaerrors.FromError(
				http.StatusConflict,
				fmt.Errorf("%w: %w", ErrConfiguration, ErrDuplicateToken),
				fmt.Sprintf("failed to add bot %q", bot.Name()),
			)
		}

		m.bots = append(m.bots, bot)
	}

	return nil
}

// Bots returns the registered bots in registration order.
func (m *Manager) Bots() []*Bot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*Bot(nil), m.bots...)
}

// OnStart adds a hook run before any bot starts. A failing hook aborts Run.
func (m *Manager) OnStart(hook Hook) {
	m.mu.Lock()
	m.onStart = append(m.onStart, hook)
	m.mu.Unlock()
}

// OnStop adds a hook run after every bot and the listener stopped, before
// the stores are closed.
func (m *Manager) OnStop(hook Hook) {
	m.mu.Lock()
	m.onStop = append(m.onStop, hook)
	m.mu.Unlock()
}

// Run starts every bot and blocks until ctx is done, a signal arrives or no
// bot is left running. A bot failing with a configuration error stops
// alone; Run returns the joined errors only when every bot failed.
//
// Example:
//
//	manager := yatgbot.NewManager(yatgbot.ManagerOptions{Webhook: server, Log: log})
//	if err := manager.Add(echoBot, shopBot); err != nil {
//		log.Fatalf("invalid bots: %v", err)
//	}
//
//	if err := manager.Run(context.Background()); err != nil {
//		log.Fatalf("bots failed: %v", err)
//	}
func (m *Manager) Run(ctx context.Context) yaerrors.Error {
	bots := m.Bots()

	if len(bots) == 0 {
		return yaerrors.FromError(
			http.StatusBadRequest,
			fmt.Errorf("%w: %w", ErrConfiguration, ErrNoBots),
			"failed to run bots",
		)
	}

	ctx, stop := signal.NotifyContext(ctx, m.signals...)
	defer stop()

	m.mu.Lock()
	onStart, onStop := m.onStart, m.onStop
	m.mu.Unlock()

	for _, hook := range onStart {
		if err := hook(ctx); err != nil {
			return err.Wrap("start hook failed")
		}
	}

	webhookCtx, stopWebhooks := context.WithCancelCause(ctx)
	defer stopWebhooks(nil)

	server, serverDone, listenErr := m.serve(ctx, bots, stopWebhooks)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)

	for _, bot := range bots {
		wg.Add(1)

		go func() {
			defer wg.Done()

			var err yaerrors.Error

			if bot.Mode() == config.ModeWebhook {
				err = m.runWebhookBot(ctx, webhookCtx, bot, server, listenErr)
			} else {
				err = bot.Run(ctx, nil)
			}

			if err != nil {
				m.log.WithBot(bot.Name()).Errorf("bot stopped: %v", err)

				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	stop()
	<-serverDone

	m.log.Info("all bots stopped")

	for _, hook := range onStop {
		if err := hook(context.Background()); err != nil {
			m.log.Errorf("stop hook failed: %v", err)
		}
	}

	m.closeStores(bots)

	if len(failures) == len(bots) {
		return yaerrors.FromError(http.StatusInternalServerError, errors.Join(failures...), "every bot failed")
	}

	return nil
}

// runWebhookBot runs bot on the shared listener. A listener that could not
// start, or that stopped serving before ctx was done, fails the bot with a
// configuration error.
func (m *Manager) runWebhookBot(
	ctx context.Context,
	webhookCtx context.Context,
	bot *Bot,
	server *webhook.Server,
	listenErr yaerrors.Error,
) yaerrors.Error {
	if listenErr != nil {
		return yaerrors.FromError(
			http.StatusInternalServerError,
			fmt.Errorf("%w: %w: %w", ErrConfiguration, ErrWebhookServer, listenErr),
			"failed to run bot",
		)
	}

	if err := bot.Run(webhookCtx, server); err != nil {
		return err
	}

	if cause := context.Cause(webhookCtx); ctx.Err() == nil && cause != nil {
		return yaerrors.FromError(
			http.StatusInternalServerError,
			fmt.Errorf("%w: %w: %w", ErrConfiguration, ErrWebhookServer, cause),
			"webhook listener stopped",
		)
	}

	return nil
}

// serve starts the webhook listener when a bot needs it. The server is nil
// when none is configured, and listenErr is set when it could not start.
// A listener failing later cancels the webhook bots through stopWebhooks.
// serverDone closes once the listener is down.
func (m *Manager) serve(
	ctx context.Context,
	bots []*Bot,
	stopWebhooks context.CancelCauseFunc,
) (server *webhook.Server, serverDone <-chan struct{}, listenErr yaerrors.Error) {
	done := make(chan struct{})

	needed := false

	for _, bot := range bots {
		if bot.Mode() == config.ModeWebhook {
			needed = true

			break
		}
	}

	if !needed || m.server == nil {
		close(done)

		return nil, done, nil
	}

	if err := m.server.Listen(); err != nil {
		m.log.Errorf("webhook listener unavailable: %v", err)
		close(done)

		return nil, done, err
	}

	go func() {
		defer close(done)

		if err := m.server.Serve(ctx); err != nil {
			m.log.Errorf("webhook listener failed: %v", err)

			stopWebhooks(err)
		}
	}()

	return m.server, done, nil
}

// closeStores closes every distinct user store once.
func (m *Manager) closeStores(bots []*Bot) {
	closed := make(map[yatgstorage.UserStorage]struct{}, len(bots))

	for _, bot := range bots {
		store := bot.Users()
		if _, ok := closed[store]; ok {
			continue
		}

		closed[store] = struct{}{}

		if err := store.Close(); err != nil {
			m.log.WithBot(bot.Name()).Errorf("failed to close user store: %v", err)
		}
	}
}
