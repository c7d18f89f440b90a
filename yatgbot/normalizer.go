package yatgbot

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
)

// DefaultCommandPrefix starts every command.
const DefaultCommandPrefix = "/"

// Normalizer turns raw updates into events. The zero value uses
// DefaultCommandPrefix and accepts commands addressed to any bot.
type Normalizer struct {
	// Prefix marks commands.
	Prefix string
	// BotUsername, when set, turns "/cmd@other_bot" into plain text.
	BotUsername string
}

// Normalize never fails: payloads it cannot decode or does not model become
// TagOther events carrying the raw update.
//
// Example:
//
//	ev := (&yatgbot.Normalizer{BotUsername: "echo_bot"}).Normalize(raw)
//	if ev.Command() == "echo" {
//		fmt.Println(ev.Args())
//	}
func (n *Normalizer) Normalize(raw RawUpdate) Event {
	ev := Event{
		Tag:    TagOther,
		Offset: raw.Offset,
		Raw:    raw,
	}

	var update yatgclient.Update

	if err := json.Unmarshal(raw.Payload, &update); err != nil {
		return ev
	}

	switch {
	case update.Message != nil:
		n.fromMessage(&ev, TagTextMessage, update.Message)
	case update.EditedMessage != nil:
		n.fromMessage(&ev, TagEditedMessage, update.EditedMessage)
	case update.ChannelPost != nil:
		n.fromMessage(&ev, TagTextMessage, update.ChannelPost)
	case update.EditedChannelPost != nil:
		n.fromMessage(&ev, TagEditedMessage, update.EditedChannelPost)
	case update.CallbackQuery != nil:
		query := update.CallbackQuery

		ev.Tag = TagCallbackQuery
		ev.CallbackQuery = query
		ev.CallbackQueryID = query.ID
		ev.Data = query.Data
		ev.setSender(&query.From)

		if query.Message != nil {
			ev.Message = query.Message
			ev.MessageID = query.Message.MessageID
			ev.Chat = &query.Message.Chat
			ev.ChatID = query.Message.Chat.ID
			ev.Time = time.Unix(query.Message.Date, 0)
		}
	case update.InlineQuery != nil:
		query := update.InlineQuery

		ev.Tag = TagInlineQuery
		ev.InlineQuery = query
		ev.InlineQueryID = query.ID
		ev.Text = query.Query
		ev.setSender(&query.From)
	}

	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	return ev
}

func (n *Normalizer) fromMessage(ev *Event, tag Tag, message *yatgclient.Message) {
	ev.Tag = tag
	ev.Message = message
	ev.MessageID = message.MessageID
	ev.Chat = &message.Chat
	ev.ChatID = message.Chat.ID
	ev.Time = time.Unix(message.Date, 0)

	ev.Text = message.Text
	if ev.Text == "" {
		ev.Text = message.Caption
	}

	if message.From != nil {
		ev.setSender(message.From)
	}

	if tag == TagTextMessage {
		ev.prefix, ev.command, ev.args = n.parseCommand(ev.Text)
	}
}

func (e *Event) setSender(user *yatgclient.User) {
	e.Sender = user
	e.SenderID = user.ID
}

// parseCommand splits "/Cmd@bot rest" into ("/", "cmd", "rest").
func (n *Normalizer) parseCommand(text string) (string, string, string) {
	prefix := n.Prefix
	if prefix == "" {
		prefix = DefaultCommandPrefix
	}

	body, ok := strings.CutPrefix(text, prefix)
	if !ok {
		return "", "", ""
	}

	head, rest := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		head, rest = body[:i], body[i:]
	}

	name, addressee, addressed := strings.Cut(head, "@")
	if addressed && n.BotUsername != "" && !strings.EqualFold(addressee, n.BotUsername) {
		return "", "", ""
	}

	if name == "" {
		return "", "", ""
	}

	return prefix, strings.ToLower(name), strings.TrimSpace(rest)
}
