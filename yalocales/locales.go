// Package yalocales loads per-language YAML message files and resolves
// composite keys ("errors.unknown_command") for a user's language, falling
// back to a default language.
//
// Files are named after their language tag (en.yaml, ru.yml, pt-BR.yaml).
// Nested maps are flattened into dot-separated composite keys. Values may
// contain {name} placeholders filled by Format.
//
// Example usage:
//
//	//go:embed locales
//	var files embed.FS
//
//	loc := yalocales.NewLocalizer("en")
//	if err := loc.LoadLocales(files); err != nil {
//	    return err
//	}
//
//	text := loc.T("ru-RU", "unknown_command")
package yalocales

import (
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Localizer resolves localized strings. It is read-only after LoadLocales and
// safe for concurrent use.
type Localizer struct {
	fallback language.Tag
	tags     []language.Tag
	matcher  language.Matcher
	data     map[language.Tag]map[string]string
}

// NewLocalizer creates an empty Localizer. An unparsable fallback becomes English.
func NewLocalizer(fallbackLang string) *Localizer {
	fallback, err := language.Parse(fallbackLang)
	if err != nil {
		fallback = language.English
	}

	return &Localizer{
		fallback: fallback,
		data:     make(map[language.Tag]map[string]string),
	}
}

// LoadLocales reads every *.yaml / *.yml file of files, recursively.
// The fallback language must be among them.
func (l *Localizer) LoadLocales(files fs.FS) yaerrors.Error {
	err := fs.WalkDir(files, ".", func(filePath string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		ext := path.Ext(filePath)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		tag, err := language.Parse(strings.TrimSuffix(path.Base(filePath), ext))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidLanguage, filePath, err)
		}

		raw, err := fs.ReadFile(files, filePath)
		if err != nil {
			return fmt.Errorf("read %s: %w", filePath, err)
		}

		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return fmt.Errorf("decode %s: %w", filePath, err)
		}

		flat, ok := l.data[tag]
		if !ok {
			flat = make(map[string]string)
			l.data[tag] = flat
			l.tags = append(l.tags, tag)
		}

		return flatten("", tree, flat)
	})
	if err != nil {
		return yaerrors.FromError(http.StatusInternalServerError, err, "failed to load locales")
	}

	if _, ok := l.data[l.fallback]; !ok {
		return yaerrors.FromError(
			http.StatusInternalServerError,
			ErrFallbackNotLoaded,
			"failed to load locales for "+l.fallback.String(),
		)
	}

	l.rebuildMatcher()

	return nil
}

// Add registers a single message, mostly useful for built-in defaults and tests.
func (l *Localizer) Add(lang string, key string, value string) yaerrors.Error {
	tag, err := language.Parse(lang)
	if err != nil {
		return yaerrors.FromError(http.StatusBadRequest, ErrInvalidLanguage, "failed to add "+key)
	}

	flat, ok := l.data[tag]
	if !ok {
		flat = make(map[string]string)
		l.data[tag] = flat
		l.tags = append(l.tags, tag)

		l.rebuildMatcher()
	}

	flat[key] = value

	return nil
}

// Get returns the message for key in the language closest to lang, then in
// the fallback language.
func (l *Localizer) Get(lang string, key string) (string, yaerrors.Error) {
	if value, ok := l.data[l.Match(lang)][key]; ok {
		return value, nil
	}

	if value, ok := l.data[l.fallback][key]; ok {
		return value, nil
	}

	return "", yaerrors.FromError(http.StatusNotFound, ErrKeyNotFound, "failed to localize "+key)
}

// T is Get that returns the key itself when nothing is found.
func (l *Localizer) T(lang string, key string) string {
	value, err := l.Get(lang, key)
	if err != nil {
		return key
	}

	return value
}

// Format resolves key and replaces {name} placeholders with args[name].
//
// Example usage:
//
//	text, err := loc.Format("en", "greeting", map[string]string{"name": user.FirstName})
func (l *Localizer) Format(lang string, key string, args map[string]string) (string, yaerrors.Error) {
	value, err := l.Get(lang, key)
	if err != nil {
		return "", err.Wrap("failed to format")
	}

	return formatValueWithArgs(value, args)
}

// Lang binds a language and returns a lookup function.
func (l *Localizer) Lang(lang string) func(key string) string {
	return func(key string) string {
		return l.T(lang, key)
	}
}

// Match returns the loaded language closest to lang, or the fallback.
func (l *Localizer) Match(lang string) language.Tag {
	if lang == "" || l.matcher == nil {
		return l.fallback
	}

	tag, err := language.Parse(lang)
	if err != nil {
		return l.fallback
	}

	if _, ok := l.data[tag]; ok {
		return tag
	}

	_, index, confidence := l.matcher.Match(tag)
	if confidence == language.No {
		return l.fallback
	}

	return l.tags[index]
}

// Fallback returns the fallback language.
func (l *Localizer) Fallback() language.Tag {
	return l.fallback
}

func (l *Localizer) rebuildMatcher() {
	ordered := make([]language.Tag, 0, len(l.tags))
	ordered = append(ordered, l.fallback)

	for _, tag := range l.tags {
		if tag != l.fallback {
			ordered = append(ordered, tag)
		}
	}

	l.tags = ordered
	l.matcher = language.NewMatcher(ordered)
}
