package yatgbot

import "github.com/YaCodeDev/GoYaTgBot/yatgclient"

// ActionKind is the kind of an outbound action.
type ActionKind uint8

const (
	ActionNoOp ActionKind = iota
	ActionText
	ActionMedia
	ActionKeyboard
)

// Action is one outbound message.
type Action struct {
	Kind ActionKind

	// ChatID overrides the chat of the event when not zero.
	ChatID int64

	Text      string
	ParseMode string

	MediaKind yatgclient.MediaKind
	// Media is a file id, a URL or a yatgclient.InputFile.
	Media any

	// Markup is an inline or reply keyboard.
	Markup any

	ReplyTo int64
	Silent  bool
}

// Text sends a text message.
func Text(text string) Action {
	return Action{Kind: ActionText, Text: text}
}

// Media sends a photo, document, video, audio or voice with an optional caption.
func Media(kind yatgclient.MediaKind, media any, caption string) Action {
	return Action{Kind: ActionMedia, MediaKind: kind, Media: media, Text: caption}
}

// Keyboard sends text with a keyboard attached.
//
// Example:
//
//	return yatgbot.Reply(yatgbot.Keyboard("Pick one", yatgbot.InlineKeyboard(
//		[]yatgclient.InlineKeyboardButton{{Text: "Yes", CallbackData: "vote:yes"}},
//	))), nil
func Keyboard(text string, markup any) Action {
	return Action{Kind: ActionKeyboard, Text: text, Markup: markup}
}

// NoOp sends nothing.
func NoOp() Action {
	return Action{Kind: ActionNoOp}
}

func (a Action) WithParseMode(mode string) Action {
	a.ParseMode = mode

	return a
}

func (a Action) WithMarkup(markup any) Action {
	a.Markup = markup

	return a
}

func (a Action) ReplyToMessage(messageID int64) Action {
	a.ReplyTo = messageID

	return a
}

// To sends the action to chatID instead of the chat of the event.
func (a Action) To(chatID int64) Action {
	a.ChatID = chatID

	return a
}

func (a Action) Quiet() Action {
	a.Silent = true

	return a
}

// InlineKeyboard builds an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]yatgclient.InlineKeyboardButton) yatgclient.InlineKeyboardMarkup {
	return yatgclient.InlineKeyboardMarkup{InlineKeyboard: rows}
}

type resultKind uint8

const (
	resultNoReply resultKind = iota
	resultReply
	resultFallThrough
)

// Result is what a handler returns: no reply, some actions, or a request to
// try the next matching handler.
type Result struct {
	kind    resultKind
	actions []Action
}

// NoReply ends the dispatch without sending anything.
func NoReply() Result {
	return Result{kind: resultNoReply}
}

// Reply sends actions in order.
func Reply(actions ...Action) Result {
	return Result{kind: resultReply, actions: actions}
}

// ReplyText is Reply(Text(text)).
func ReplyText(text string) Result {
	return Reply(Text(text))
}

// FallThrough declares the event unhandled so the next matching handler runs.
func FallThrough() Result {
	return Result{kind: resultFallThrough}
}

func (r Result) IsFallThrough() bool {
	return r.kind == resultFallThrough
}

func (r Result) Actions() []Action {
	return r.actions
}
