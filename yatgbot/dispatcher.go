package yatgbot

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/YaCodeDev/GoYaTgBot/config"
	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yalocales"
	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

// State is the progress of one event through the dispatcher.
type State uint8

const (
	StateReceived State = iota
	StateNormalized
	StateUserResolved
	StateHandlerSelected
	StateHandlerExecuting
	StateOutcomeApplied
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateNormalized:
		return "normalized"
	case StateUserResolved:
		return "user_resolved"
	case StateHandlerSelected:
		return "handler_selected"
	case StateHandlerExecuting:
		return "handler_executing"
	case StateOutcomeApplied:
		return "outcome_applied"
	case StateCommitted:
		return "committed"
	default:
		return "failed"
	}
}

// Outcome is the result of dispatching one update.
type Outcome struct {
	Offset int64
	Event  Event

	// State is StateCommitted or StateFailed.
	State State
	// FailedAt is the last state reached before failing.
	FailedAt State

	// Err is the failure reason. A committed outcome carries the first send
	// error when a reply could not be delivered.
	Err yaerrors.Error

	// Handled reports whether a handler accepted the event.
	Handled bool
	// Denied reports that the Authorizer rejected the sender for the
	// matching binding.
	Denied bool
	// Sent counts the delivered actions.
	Sent int
}

// Failed reports whether the event ended in StateFailed.
func (o Outcome) Failed() bool {
	return o.State == StateFailed
}

// DispatcherOptions are the collaborators of a Dispatcher.
type DispatcherOptions struct {
	Bot        BotInfo
	Normalizer *Normalizer
	Registry   *Registry
	Users      yatgstorage.UserStorage
	Sender     Sender
	API        RemoteAPI
	Localizer  *yalocales.Localizer
	Log        yalogger.Logger

	// Policy decides what happens to events no binding matched.
	Policy config.Policy
	// Timeout bounds one dispatch; zero means no bound.
	Timeout time.Duration

	// Authorize admits senders to bindings with a level. Nil admits everybody.
	Authorize Authorizer
}

type maintenance struct {
	message string
	allow   func(ev Event) bool
}

// Dispatcher runs events through the registry. Dispatches of the same
// sender are serialized; the rest run concurrently.
type Dispatcher struct {
	bot         BotInfo
	normalizer  *Normalizer
	registry    *Registry
	users       yatgstorage.UserStorage
	sender      Sender
	api         RemoteAPI
	localizer   *yalocales.Localizer
	log         yalogger.Logger
	policy      config.Policy
	timeout     time.Duration
	authorize   Authorizer
	locks       senderLocks
	maintenance atomic.Pointer[maintenance]
}

// NewDispatcher builds a dispatcher. A nil Users defaults to a memory store
// and a nil Sender sends through API directly.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.Normalizer == nil {
		opts.Normalizer = &Normalizer{}
	}

	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	if opts.Users == nil {
		opts.Users = yatgstorage.NewMemoryUserStorage()
	}

	if opts.Sender == nil {
		opts.Sender = NewAPISender(opts.API, nil)
	}

	if opts.Log == nil {
		opts.Log = yalogger.NewBaseLogger(nil).NewLogger()
	}

	if opts.Policy == "" {
		opts.Policy = config.PolicyIgnore
	}

	return &Dispatcher{
		bot:        opts.Bot,
		normalizer: opts.Normalizer,
		registry:   opts.Registry,
		users:      opts.Users,
		sender:     opts.Sender,
		api:        opts.API,
		localizer:  opts.Localizer,
		log:        opts.Log,
		policy:     opts.Policy,
		timeout:    opts.Timeout,
		authorize:  opts.Authorize,
	}
}

// SetMaintenance answers every event allow rejects with message instead of
// running handlers. A nil allow rejects everything.
func (d *Dispatcher) SetMaintenance(message string, allow func(ev Event) bool) {
	if allow == nil {
		allow = func(Event) bool { return false }
	}

	d.maintenance.Store(&maintenance{message: message, allow: allow})
}

func (d *Dispatcher) ClearMaintenance() {
	d.maintenance.Store(nil)
}

// Dispatch runs raw to a terminal state. It never panics and never returns
// before the handler, the replies and the record commit are done.
//
// Example:
//
//	outcome := dispatcher.Dispatch(ctx, raw)
//	if outcome.Failed() {
//		log.Warnf("update %d failed: %v", outcome.Offset, outcome.Err)
//	}
func (d *Dispatcher) Dispatch(ctx context.Context, raw RawUpdate) Outcome {
	outcome := Outcome{Offset: raw.Offset, State: StateReceived}

	log := d.log.WithRequestUUID(uuid.New()).WithField("offset", raw.Offset)

	ev := d.normalizer.Normalize(raw)

	outcome.Event = ev
	outcome.State = StateNormalized

	log = log.WithField("tag", ev.Tag.String())

	if ev.SenderID != 0 {
		log = log.WithUserID(ev.SenderID)

		release := d.locks.lock(ev.SenderID)
		defer release()
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var stored *yatgstorage.UserRecord

	if ev.SenderID != 0 {
		record, err := d.users.GetOrCreate(ctx, d.bot.ID, ev.Profile())
		if err != nil {
			d.answerCallback(ctx, log, ev)

			return d.fail(log, outcome, ErrStore, err, "failed to resolve user")
		}

		stored = record
	}

	outcome.State = StateUserResolved

	data := &HandlerData{
		Event:     ev,
		User:      stored.Clone(),
		Bot:       d.bot,
		API:       d.api,
		Localizer: d.localizer,
		Log:       log,
	}

	if data.User != nil {
		data.User.ApplyProfile(ev.Profile())
		data.User.LastSeen = time.Now().UTC()
	}

	if m := d.maintenance.Load(); m != nil && !m.allow(ev) {
		return d.maintain(ctx, log, outcome, data, m.message)
	}

	result, err := d.execute(ctx, &outcome, data)
	if err != nil {
		if !data.answered {
			d.answerCallback(ctx, log, ev)
		}

		return d.fail(log, outcome, ErrHandler, err, "handler failed")
	}

	d.apply(ctx, log, &outcome, data, result)

	if data.User != nil {
		if err := d.users.Save(ctx, data.User); err != nil {
			return d.fail(log, outcome, ErrStore, err, "failed to save user")
		}
	}

	outcome.State = StateCommitted

	log.Debugf("update committed, handled: %t, sent: %d", outcome.Handled, outcome.Sent)

	return outcome
}

// execute runs the matching bindings until one does not fall through, then
// the fallback when the policy asks for it.
func (d *Dispatcher) execute(ctx context.Context, outcome *Outcome, data *HandlerData) (Result, yaerrors.Error) {
	for binding, match := range d.registry.Candidates(data.Event, data.User) {
		outcome.State = StateHandlerSelected

		data.Match = match

		if level := binding.Predicate.Level(); level != "" && !d.authorized(ctx, data, level) {
			outcome.Denied = true

			data.Log.Debugf("sender denied at level %q", level)

			return denied(ctx, data), nil
		}

		result, err := d.invoke(ctx, outcome, binding.Handler, data)
		if err != nil {
			return Result{}, err
		}

		if !result.IsFallThrough() {
			outcome.Handled = true

			return result, nil
		}

		data.Log.Tracef("handler fell through")
	}

	fallback := d.registry.fallbackHandler()

	if d.policy != config.PolicyFallback || fallback == nil {
		data.Log.Tracef("no handler matched, ignoring")

		return NoReply(), nil
	}

	outcome.State = StateHandlerSelected

	data.Match = Match{Rest: data.Event.Payload()}

	result, err := d.invoke(ctx, outcome, fallback, data)
	if err != nil {
		return Result{}, err
	}

	outcome.Handled = !result.IsFallThrough()

	return result, nil
}

func (d *Dispatcher) authorized(ctx context.Context, data *HandlerData, level string) bool {
	if d.authorize == nil {
		return true
	}

	return d.authorize(ctx, data.Event, data.User, level)
}

func (d *Dispatcher) invoke(
	ctx context.Context,
	outcome *Outcome,
	handler Handler,
	data *HandlerData,
) (result Result, err yaerrors.Error) {
	outcome.State = StateHandlerExecuting

	defer func() {
		if recovered := recover(); recovered != nil {
			err = yaerrors.FromError(
				http.StatusInternalServerError,
				ErrHandlerPanic,
				fmt.Sprintf("recovered: %v", recovered),
			)
		}
	}()

	return d.registry.wrap(handler)(ctx, data)
}

// apply sends the actions of result once each.
func (d *Dispatcher) apply(
	ctx context.Context,
	log yalogger.Logger,
	outcome *Outcome,
	data *HandlerData,
	result Result,
) {
	ev := data.Event

	for _, action := range result.Actions() {
		if action.Kind == ActionNoOp {
			continue
		}

		chatID := action.ChatID
		if chatID == 0 {
			chatID = replyChat(ev)
		}

		if chatID == 0 {
			log.Warnf("dropping %d action: event has no chat", action.Kind)

			continue
		}

		if err := d.sender.Send(ctx, chatID, action); err != nil {
			log.Errorf("failed to send reply to chat %d: %v", chatID, err)

			if outcome.Err == nil {
				outcome.Err = err
			}

			continue
		}

		outcome.Sent++
	}

	if !data.answered {
		d.answerCallback(ctx, log, ev)
	}

	outcome.State = StateOutcomeApplied
}

// answerCallback stops the client spinner of a callback query with an empty answer.
func (d *Dispatcher) answerCallback(ctx context.Context, log yalogger.Logger, ev Event) {
	if ev.Tag != TagCallbackQuery || d.api == nil {
		return
	}

	if err := d.api.AnswerCallbackQuery(ctx, yatgclient.AnswerCallbackQueryParams{
		CallbackQueryID: ev.CallbackQueryID,
	}); err != nil {
		log.Warnf("failed to answer callback query: %v", err)
	}
}

func (d *Dispatcher) maintain(
	ctx context.Context,
	log yalogger.Logger,
	outcome Outcome,
	data *HandlerData,
	message string,
) Outcome {
	outcome.State = StateHandlerSelected

	log.Debug("maintenance mode, skipping handlers")

	if data.Event.Tag == TagCallbackQuery && d.api != nil {
		if err := data.AnswerCallback(ctx, message, true); err != nil {
			log.Warnf("failed to answer callback query: %v", err)
		}

		outcome.State = StateCommitted

		return outcome
	}

	d.apply(ctx, log, &outcome, data, ReplyText(message))

	outcome.State = StateCommitted

	return outcome
}

func (d *Dispatcher) fail(
	log yalogger.Logger,
	outcome Outcome,
	kind error,
	err yaerrors.Error,
	msg string,
) Outcome {
	outcome.FailedAt = outcome.State
	outcome.State = StateFailed
	outcome.Err = yaerrors.FromError(err.Code(), fmt.Errorf("%w: %w", kind, err), msg)

	log.Errorf("update %d failed at %s: %v", outcome.Offset, outcome.FailedAt, outcome.Err)

	return outcome
}

// replyChat is where replies to ev go by default.
func replyChat(ev Event) int64 {
	if ev.ChatID != 0 {
		return ev.ChatID
	}

	return ev.SenderID
}
