package yatgbot

import (
	"cmp"
	"iter"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

// Binding ties a handler to the events of one tag its predicate matches.
type Binding struct {
	Tag       Tag
	Predicate Predicate
	Priority  int
	Handler   Handler

	seq uint64
}

// Registry is the ordered set of bindings of one bot. It is read-only once
// the bot runs.
type Registry struct {
	mu          sync.RWMutex
	bindings    map[Tag][]*Binding
	middlewares []HandlerMiddleware
	fallback    Handler
	seq         uint64
	frozen      atomic.Bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[Tag][]*Binding),
	}
}

// Register adds a binding. Bindings of a tag are tried by priority, higher
// first, then in registration order. For command events Exact and Command
// bindings are tried before all others regardless of priority.
//
// Example:
//
//	if err := registry.Register(yatgbot.TagTextMessage, yatgbot.Command("start"), 0, start); err != nil {
//		return err.Wrap("failed to register start")
//	}
func (r *Registry) Register(tag Tag, predicate Predicate, priority int, handler Handler) yaerrors.Error {
	if handler == nil {
		return yaerrors.FromError(http.StatusInternalServerError, ErrNilHandler, "failed to register handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return yaerrors.FromError(http.StatusConflict, ErrRegistryFrozen, "failed to register handler")
	}

	if r.bindings == nil {
		r.bindings = make(map[Tag][]*Binding)
	}

	r.seq++

	bindings := append(slices.Clone(r.bindings[tag]), &Binding{
		Tag:       tag,
		Predicate: predicate,
		Priority:  priority,
		Handler:   handler,
		seq:       r.seq,
	})

	slices.SortStableFunc(bindings, func(a, b *Binding) int {
		if a.Priority != b.Priority {
			return cmp.Compare(b.Priority, a.Priority)
		}

		return cmp.Compare(a.seq, b.seq)
	})

	r.bindings[tag] = bindings

	return nil
}

// OnCommand binds a command of a text message, without prefix.
func (r *Registry) OnCommand(name string, handler Handler) yaerrors.Error {
	return r.Register(TagTextMessage, Command(name), 0, handler)
}

func (r *Registry) OnText(predicate Predicate, priority int, handler Handler) yaerrors.Error {
	return r.Register(TagTextMessage, predicate, priority, handler)
}

func (r *Registry) OnEditedMessage(predicate Predicate, priority int, handler Handler) yaerrors.Error {
	return r.Register(TagEditedMessage, predicate, priority, handler)
}

// OnCallback binds callback queries; the predicate sees the callback data.
func (r *Registry) OnCallback(predicate Predicate, priority int, handler Handler) yaerrors.Error {
	return r.Register(TagCallbackQuery, predicate, priority, handler)
}

func (r *Registry) OnInlineQuery(predicate Predicate, priority int, handler Handler) yaerrors.Error {
	return r.Register(TagInlineQuery, predicate, priority, handler)
}

// OnOther binds updates the normalizer does not model. Handlers read Event.Raw.
func (r *Registry) OnOther(predicate Predicate, priority int, handler Handler) yaerrors.Error {
	return r.Register(TagOther, predicate, priority, handler)
}

// Use appends middlewares run around every handler, first added runs first.
func (r *Registry) Use(middlewares ...HandlerMiddleware) yaerrors.Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return yaerrors.FromError(http.StatusConflict, ErrRegistryFrozen, "failed to add middleware")
	}

	r.middlewares = append(r.middlewares, middlewares...)

	return nil
}

// Fallback sets the handler run for unmatched events when the bot uses the
// fallback policy.
func (r *Registry) Fallback(handler Handler) yaerrors.Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return yaerrors.FromError(http.StatusConflict, ErrRegistryFrozen, "failed to set fallback")
	}

	r.fallback = handler

	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.frozen.Store(true)
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Len returns the number of bindings of tag.
func (r *Registry) Len(tag Tag) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.bindings[tag])
}

// Resolve returns the first binding matching ev, or false.
func (r *Registry) Resolve(ev Event, user *yatgstorage.UserRecord) (*Binding, Match, bool) {
	for binding, match := range r.Candidates(ev, user) {
		return binding, match, true
	}

	return nil, Match{}, false
}

// Candidates yields the matching bindings of ev in resolution order.
// Predicates are evaluated lazily, so stopping early skips the rest.
func (r *Registry) Candidates(ev Event, user *yatgstorage.UserRecord) iter.Seq2[*Binding, Match] {
	r.mu.RLock()
	bindings := r.bindings[ev.Tag]
	r.mu.RUnlock()

	return func(yield func(*Binding, Match) bool) {
		if ev.IsCommand() {
			for _, binding := range bindings {
				if !binding.Predicate.IsExact() {
					continue
				}

				if match, ok := binding.Predicate.test(ev, user); ok && !yield(binding, match) {
					return
				}
			}
		}

		for _, binding := range bindings {
			if ev.IsCommand() && binding.Predicate.IsExact() {
				continue
			}

			if match, ok := binding.Predicate.test(ev, user); ok && !yield(binding, match) {
				return
			}
		}
	}
}

func (r *Registry) fallbackHandler() Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.fallback
}

// wrap chains the middlewares around handler.
func (r *Registry) wrap(handler Handler) Handler {
	r.mu.RLock()
	middlewares := slices.Clone(r.middlewares)
	r.mu.RUnlock()

	return chainMiddleware(handler, middlewares...)
}
