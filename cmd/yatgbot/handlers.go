package main

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

const (
	countKey    = "count"
	langCBQuery = "lang"
	levelAdmin  = "admin"
)

var menuLanguages = []string{"en", "ru"}

// registerHandlers binds the built-in commands of every bot.
func registerHandlers(registry *yatgbot.Registry) error {
	registrations := []func() yaerrors.Error{
		func() yaerrors.Error { return registry.OnCommand("start", start) },
		func() yaerrors.Error { return registry.OnCommand("echo", echo) },
		func() yaerrors.Error { return registry.OnCommand("count", count) },
		func() yaerrors.Error { return registry.OnCommand("menu", menu) },
		func() yaerrors.Error {
			return registry.OnCallback(yatgbot.Prefix(langCBQuery+":").WithSeparator(":"), 0, pickLanguage)
		},
		func() yaerrors.Error { return registry.Fallback(yatgbot.UnknownCommandFallback) },
	}

	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}

	return nil
}

func start(_ context.Context, data *yatgbot.HandlerData) (yatgbot.Result, yaerrors.Error) {
	name := "there"
	if data.Event.Sender != nil {
		name = data.Event.Sender.FirstName
	}

	text, err := data.Localizer.Format(data.Lang(), "start", map[string]string{"name": name})
	if err != nil {
		return yatgbot.NoReply(), err.Wrap("failed to render start")
	}

	return yatgbot.ReplyText(text), nil
}

func echo(_ context.Context, data *yatgbot.HandlerData) (yatgbot.Result, yaerrors.Error) {
	text := strings.TrimSpace(data.Match.Rest)
	if text == "" {
		return yatgbot.FallThrough(), nil
	}

	return yatgbot.Reply(yatgbot.Text(text).ReplyToMessage(data.Event.MessageID)), nil
}

func count(_ context.Context, data *yatgbot.HandlerData) (yatgbot.Result, yaerrors.Error) {
	if data.User == nil {
		return yatgbot.NoReply(), nil
	}

	n := data.User.Increment(countKey, 1)

	text, err := data.Localizer.Format(data.Lang(), "count", map[string]string{"n": strconv.FormatInt(n, 10)})
	if err != nil {
		return yatgbot.NoReply(), err.Wrap("failed to render count")
	}

	return yatgbot.ReplyText(text), nil
}

func menu(_ context.Context, data *yatgbot.HandlerData) (yatgbot.Result, yaerrors.Error) {
	row := make([]yatgclient.InlineKeyboardButton, 0, len(menuLanguages))

	for _, lang := range menuLanguages {
		row = append(row, yatgclient.InlineKeyboardButton{
			Text:         strings.ToUpper(lang),
			CallbackData: langCBQuery + ":" + lang,
		})
	}

	return yatgbot.Reply(yatgbot.Keyboard(data.T("menu.title"), yatgbot.InlineKeyboard(row))), nil
}

func pickLanguage(ctx context.Context, data *yatgbot.HandlerData) (yatgbot.Result, yaerrors.Error) {
	args := data.CallbackArgs()
	if len(args) != 1 {
		return yatgbot.NoReply(), nil
	}

	data.User.SelectedLanguage = args[0]

	if err := data.AnswerCallback(ctx, data.T("menu.picked"), false); err != nil {
		data.Log.Warnf("failed to answer callback: %v", err)
	}

	return yatgbot.NoReply(), nil
}

// adminAuthorizer admits everybody to unrestricted bindings and only admins
// to admin-level ones.
func adminAuthorizer(admins []int64) yatgbot.Authorizer {
	return func(_ context.Context, ev yatgbot.Event, _ *yatgstorage.UserRecord, level string) bool {
		return level != levelAdmin || slices.Contains(admins, ev.SenderID)
	}
}

// maintenanceSwitch is implemented by *yatgbot.Bot.
type maintenanceSwitch interface {
	SetMaintenance(message string, allow func(ev yatgbot.Event) bool)
	ClearMaintenance()
}

// maintenance toggles maintenance mode with "/maintenance on|off". Admins
// keep using the bot while it is on.
func maintenance(target maintenanceSwitch, admins []int64) yatgbot.Handler {
	return func(_ context.Context, data *yatgbot.HandlerData) (yatgbot.Result, yaerrors.Error) {
		switch strings.ToLower(strings.TrimSpace(data.Match.Rest)) {
		case "on":
			target.SetMaintenance(data.T("maintenance"), func(ev yatgbot.Event) bool {
				return slices.Contains(admins, ev.SenderID)
			})

			return yatgbot.ReplyText(data.T("maintenance_on")), nil
		case "off":
			target.ClearMaintenance()

			return yatgbot.ReplyText(data.T("maintenance_off")), nil
		default:
			return yatgbot.ReplyText(data.T("maintenance_usage")), nil
		}
	}
}
