package yalocales

import "errors"

var (
	ErrInvalidLanguage    = errors.New("invalid language")
	ErrKeyNotFound        = errors.New("localization key not found")
	ErrFallbackNotLoaded  = errors.New("fallback language has no locale file")
	ErrMissingPlaceholder = errors.New("placeholder has no argument")
	ErrUnsupportedLocale  = errors.New("unsupported locale value")
)
