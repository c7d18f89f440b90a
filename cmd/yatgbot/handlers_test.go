package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaCodeDev/GoYaTgBot/config"
	"github.com/YaCodeDev/GoYaTgBot/yalocales"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

func newLocalizer(t *testing.T) *yalocales.Localizer {
	t.Helper()

	files, err := localeFiles(config.Settings{})
	require.NoError(t, err)

	localizer := yalocales.NewLocalizer("en")
	require.NoError(t, localizer.LoadLocales(files))

	return localizer
}

func TestBuiltinLocales_Works(t *testing.T) {
	t.Parallel()

	localizer := newLocalizer(t)

	assert.Equal(t, "Язык сохранён.", localizer.T("ru", "menu.picked"))
	assert.NotEqual(t, yatgbot.UnknownCommandKey, localizer.T("en", yatgbot.UnknownCommandKey))
}

func TestRegisterHandlers_Works(t *testing.T) {
	t.Parallel()

	registry := yatgbot.NewRegistry()

	require.NoError(t, registerHandlers(registry))

	assert.Equal(t, 4, registry.Len(yatgbot.TagTextMessage))
	assert.Equal(t, 1, registry.Len(yatgbot.TagCallbackQuery))
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	localizer := newLocalizer(t)

	t.Run("[Echo] - replies to the message", func(t *testing.T) {
		result, err := echo(context.Background(), &yatgbot.HandlerData{
			Event: yatgbot.Event{MessageID: 5},
			Match: yatgbot.Match{Rest: "  hello  "},
		})

		require.Nil(t, err)
		require.Len(t, result.Actions(), 1)
		assert.Equal(t, "hello", result.Actions()[0].Text)
		assert.Equal(t, int64(5), result.Actions()[0].ReplyTo)
	})

	t.Run("[Echo] - falls through without text", func(t *testing.T) {
		result, err := echo(context.Background(), &yatgbot.HandlerData{})

		require.Nil(t, err)
		assert.True(t, result.IsFallThrough())
	})

	t.Run("[Count] - increments the record", func(t *testing.T) {
		user := yatgstorage.NewUserRecord(1, yatgstorage.Profile{ID: 42, LanguageCode: "en"}, time.Now())
		data := &yatgbot.HandlerData{User: user, Localizer: localizer}

		_, err := count(context.Background(), data)
		require.Nil(t, err)

		result, err := count(context.Background(), data)
		require.Nil(t, err)

		assert.Equal(t, int64(2), user.GetInt(countKey))
		require.Len(t, result.Actions(), 1)
		assert.Equal(t, "You have pressed /count 2 times.", result.Actions()[0].Text)
	})

	t.Run("[Start] - greets the sender", func(t *testing.T) {
		result, err := start(context.Background(), &yatgbot.HandlerData{
			Event:     yatgbot.Event{Sender: &yatgclient.User{ID: 42, FirstName: "Ann", LanguageCode: "ru"}},
			Localizer: localizer,
		})

		require.Nil(t, err)
		require.Len(t, result.Actions(), 1)
		assert.Contains(t, result.Actions()[0].Text, "Привет, Ann!")
	})

	t.Run("[Menu] - one button per language", func(t *testing.T) {
		result, err := menu(context.Background(), &yatgbot.HandlerData{Localizer: localizer})

		require.Nil(t, err)
		require.Len(t, result.Actions(), 1)

		markup, ok := result.Actions()[0].Markup.(yatgclient.InlineKeyboardMarkup)
		require.True(t, ok)
		require.Len(t, markup.InlineKeyboard, 1)
		assert.Len(t, markup.InlineKeyboard[0], len(menuLanguages))
		assert.Equal(t, "lang:ru", markup.InlineKeyboard[0][1].CallbackData)
	})
}

type recordingSwitch struct {
	message string
	allow   func(ev yatgbot.Event) bool
	cleared bool
}

func (r *recordingSwitch) SetMaintenance(message string, allow func(ev yatgbot.Event) bool) {
	r.message, r.allow = message, allow
}

func (r *recordingSwitch) ClearMaintenance() {
	r.cleared = true
}

func TestAdminAuthorizer(t *testing.T) {
	t.Parallel()

	authorize := adminAuthorizer([]int64{1})

	assert.True(t, authorize(context.Background(), yatgbot.Event{SenderID: 1}, nil, levelAdmin))
	assert.False(t, authorize(context.Background(), yatgbot.Event{SenderID: 42}, nil, levelAdmin))
	assert.True(t, authorize(context.Background(), yatgbot.Event{SenderID: 42}, nil, "everybody"))
}

func TestMaintenance(t *testing.T) {
	t.Parallel()

	localizer := newLocalizer(t)
	target := &recordingSwitch{}
	handler := maintenance(target, []int64{1})

	t.Run("[Maintenance] - on keeps admins in", func(t *testing.T) {
		result, err := handler(context.Background(), &yatgbot.HandlerData{
			Match:     yatgbot.Match{Rest: "ON"},
			Localizer: localizer,
		})

		require.Nil(t, err)
		require.Len(t, result.Actions(), 1)
		assert.Equal(t, "Maintenance mode is on.", result.Actions()[0].Text)
		assert.Equal(t, localizer.T("en", "maintenance"), target.message)
		require.NotNil(t, target.allow)
		assert.True(t, target.allow(yatgbot.Event{SenderID: 1}))
		assert.False(t, target.allow(yatgbot.Event{SenderID: 42}))
	})

	t.Run("[Maintenance] - off clears", func(t *testing.T) {
		_, err := handler(context.Background(), &yatgbot.HandlerData{
			Match:     yatgbot.Match{Rest: "off"},
			Localizer: localizer,
		})

		require.Nil(t, err)
		assert.True(t, target.cleared)
	})
}
