package yatgbot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yatgbot/messagequeue"
	"github.com/YaCodeDev/GoYaTgBot/yatgclient"
)

// MaxMessageLength is the longest text one message may carry, in characters.
const MaxMessageLength = 4096

// Sender delivers outbound actions. Send is called at most once per action;
// implementations must not retry.
type Sender interface {
	Send(ctx context.Context, chatID int64, action Action) yaerrors.Error
}

// APISender sends actions through the remote API, optionally through a
// rate-limited queue.
type APISender struct {
	API RemoteAPI
	// Queue, when set, runs every request as a job of its own.
	Queue    *messagequeue.Queue
	Priority uint16
}

// NewAPISender returns a sender over api. queue may be nil.
func NewAPISender(api RemoteAPI, queue *messagequeue.Queue) *APISender {
	return &APISender{
		API:      api,
		Queue:    queue,
		Priority: messagequeue.PriorityNormal,
	}
}

// Send sends action to chatID. Texts longer than MaxMessageLength go out as
// several messages split on line boundaries; the markup is attached to the
// last one.
func (s *APISender) Send(ctx context.Context, chatID int64, action Action) yaerrors.Error {
	if action.ChatID != 0 {
		chatID = action.ChatID
	}

	switch action.Kind {
	case ActionNoOp:
		return nil
	case ActionMedia:
		return s.run(ctx, chatID, func(ctx context.Context) yaerrors.Error {
			_, err := s.API.SendMedia(ctx, yatgclient.SendMediaParams{
				ChatID:              chatID,
				Kind:                action.MediaKind,
				Media:               action.Media,
				Caption:             action.Text,
				ParseMode:           action.ParseMode,
				ReplyMarkup:         action.Markup,
				ReplyToMessageID:    action.ReplyTo,
				DisableNotification: action.Silent,
			})

			return err
		})
	case ActionText, ActionKeyboard:
		parts := SplitText(action.Text, MaxMessageLength)

		for i, part := range parts {
			params := yatgclient.SendMessageParams{
				ChatID:              chatID,
				Text:                part,
				ParseMode:           action.ParseMode,
				DisableNotification: action.Silent,
			}

			if i == 0 {
				params.ReplyToMessageID = action.ReplyTo
			}

			if i == len(parts)-1 {
				params.ReplyMarkup = action.Markup
			}

			if err := s.run(ctx, chatID, func(ctx context.Context) yaerrors.Error {
				_, err := s.API.SendMessage(ctx, params)

				return err
			}); err != nil {
				return err
			}
		}

		return nil
	default:
		return yaerrors.FromString(http.StatusBadRequest, "unknown action kind")
	}
}

func (s *APISender) run(ctx context.Context, chatID int64, send func(context.Context) yaerrors.Error) yaerrors.Error {
	var err yaerrors.Error

	if s.Queue == nil {
		err = send(ctx)
	} else {
		err = s.Queue.Do(ctx, chatID, chatID > 0, s.Priority, send)
	}

	if err != nil {
		return yaerrors.FromError(err.Code(), fmt.Errorf("%w: %w", ErrTransport, err), "failed to send action")
	}

	return nil
}

// SplitText cuts text into parts of at most limit characters, preferring
// line boundaries. Lines longer than limit are cut hard.
func SplitText(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit || limit <= 0 {
		return []string{text}
	}

	var (
		parts   []string
		current strings.Builder
		size    int
	)

	flush := func() {
		if part := strings.TrimRight(current.String(), "\n"); part != "" {
			parts = append(parts, part)
		}

		current.Reset()

		size = 0
	}

	for line := range strings.SplitAfterSeq(text, "\n") {
		length := utf8.RuneCountInString(line)

		if size+length > limit {
			flush()
		}

		for length > limit {
			head, tail := cutRunes(line, limit)
			parts = append(parts, head)

			line = tail
			length -= limit
		}

		current.WriteString(line)
		size += length
	}

	flush()

	return parts
}

func cutRunes(s string, n int) (string, string) {
	i := 0

	for count := 0; count < n && i < len(s); count++ {
		_, width := utf8.DecodeRuneInString(s[i:])
		i += width
	}

	return s[:i], s[i:]
}
