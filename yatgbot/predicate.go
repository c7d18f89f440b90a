package yatgbot

import (
	"regexp"
	"slices"
	"strings"

	"github.com/YaCodeDev/GoYaTgBot/yafsm"
	"github.com/YaCodeDev/GoYaTgBot/yatgstorage"
)

// Match is what a predicate captured from the payload.
type Match struct {
	// Groups are the submatches of a Regex predicate, whole match first.
	Groups []string
	// Rest is the payload after a Prefix predicate, or the arguments of a command.
	Rest string
	// CallbackArgs is Rest split by the separator set with WithSeparator.
	CallbackArgs []string
}

type matchFunc func(ev Event, user *yatgstorage.UserRecord) (Match, bool)

// Predicate decides whether a binding applies to an event.
type Predicate struct {
	match     matchFunc
	exact     bool
	states    []string
	separator string
	level     string
}

// Exact matches a payload equal to value. For commands value is compared
// with the prefixed identifier, so Exact("/start") also matches
// "/start@my_bot payload". Exact predicates win over every other predicate
// of a command event.
func Exact(value string) Predicate {
	return Predicate{
		exact: true,
		match: func(ev Event, _ *yatgstorage.UserRecord) (Match, bool) {
			if ev.IsCommand() && ev.prefix+ev.command == value {
				return Match{Rest: ev.args}, true
			}

			if ev.Payload() == value {
				return Match{Rest: value}, true
			}

			return Match{}, false
		},
	}
}

// Command matches the command identifier name, case-insensitively and
// without the prefix.
//
// Example:
//
//	registry.OnText(yatgbot.Command("echo"), 0, echo)
func Command(name string) Predicate {
	name = strings.ToLower(strings.TrimSpace(name))

	return Predicate{
		exact: true,
		match: func(ev Event, _ *yatgstorage.UserRecord) (Match, bool) {
			if ev.IsCommand() && ev.command == name {
				return Match{Rest: ev.args}, true
			}

			return Match{}, false
		},
	}
}

// Prefix matches a payload starting with prefix.
func Prefix(prefix string) Predicate {
	return Predicate{
		match: func(ev Event, _ *yatgstorage.UserRecord) (Match, bool) {
			rest, ok := strings.CutPrefix(ev.Payload(), prefix)

			return Match{Rest: rest}, ok
		},
	}
}

// Regex matches a payload the expression finds a match in.
//
// Example:
//
//	registry.OnText(yatgbot.Regex(regexp.MustCompile(`^(\d+)\s*\+\s*(\d+)$`)), 0, sum)
func Regex(re *regexp.Regexp) Predicate {
	return Predicate{
		match: func(ev Event, _ *yatgstorage.UserRecord) (Match, bool) {
			groups := re.FindStringSubmatch(ev.Payload())
			if groups == nil {
				return Match{}, false
			}

			return Match{Groups: groups, Rest: ev.Payload()}, true
		},
	}
}

// Any matches every event.
func Any() Predicate {
	return Predicate{
		match: func(ev Event, _ *yatgstorage.UserRecord) (Match, bool) {
			return Match{Rest: ev.Payload()}, true
		},
	}
}

// Func matches when fn returns true.
func Func(fn func(ev Event) bool) Predicate {
	return Predicate{
		match: func(ev Event, _ *yatgstorage.UserRecord) (Match, bool) {
			return Match{Rest: ev.Payload()}, fn(ev)
		},
	}
}

// StateIs matches any event of a sender whose conversation state is one of states.
// An empty state name matches senders without a state.
func StateIs(states ...string) Predicate {
	return Any().InState(states...)
}

// InState narrows p to senders in one of states.
//
// Example:
//
//	registry.OnText(yatgbot.Any().InState(AwaitingName{}.StateName()), 0, saveName)
func (p Predicate) InState(states ...string) Predicate {
	p.states = append(slices.Clone(p.states), states...)

	return p
}

// WithSeparator fills Match.CallbackArgs by splitting Match.Rest on sep.
//
// Example:
//
//	// "vote:yes:42" -> CallbackArgs ["yes", "42"]
//	registry.OnCallback(yatgbot.Prefix("vote:").WithSeparator(":"), 0, vote)
func (p Predicate) WithSeparator(sep string) Predicate {
	p.separator = sep

	return p
}

// RequireLevel restricts the binding to senders the bot's Authorizer admits
// at level. Rejected senders get the authorization denied reply and no
// other binding runs.
//
// Example:
//
//	registry.OnText(yatgbot.Command("ban"), 0, ban) // everybody
//	registry.OnText(yatgbot.Command("ban").RequireLevel("admin"), 0, ban)
func (p Predicate) RequireLevel(level string) Predicate {
	p.level = level

	return p
}

// Level is the authorization level set with RequireLevel, empty when none.
func (p Predicate) Level() string {
	return p.level
}

// IsExact reports whether p was built by Exact or Command.
func (p Predicate) IsExact() bool {
	return p.exact
}

func (p Predicate) test(ev Event, user *yatgstorage.UserRecord) (Match, bool) {
	if p.match == nil {
		return Match{}, false
	}

	if len(p.states) > 0 && !slices.Contains(p.states, yafsm.GetState(user)) {
		return Match{}, false
	}

	match, ok := p.match(ev, user)
	if !ok {
		return Match{}, false
	}

	if p.separator != "" && match.Rest != "" {
		match.CallbackArgs = strings.Split(match.Rest, p.separator)
	}

	return match, true
}
