package model

import "errors"

// Locale errors.
var (
	// ErrUnsupportedLocale is returned when a locale code is not in the
	// supported set.
	ErrUnsupportedLocale = errors.New("unsupported locale")
	// ErrEmptyLocale is returned when the locale code is empty.
	ErrEmptyLocale = errors.New("locale cannot be empty")
)

// Locale is a supported language code governing URL prefixing and
// translated content selection.
//
// Design decision: We use a typed string rather than x/text's language.Tag
// in the model layer so that content records, database rows, and API payloads
// carry a plain, stable two-letter code. The i18n package converts between
// Locale and language.Tag at the HTTP boundary where Accept-Language
// negotiation actually happens.
type Locale string

const (
	// LocaleEnglish is the default locale. English URLs carry no prefix.
	LocaleEnglish Locale = "en"
	// LocaleSpanish is Spanish ("/es/..." prefix).
	LocaleSpanish Locale = "es"
	// LocalePortuguese is Portuguese ("/pt/..." prefix).
	LocalePortuguese Locale = "pt"
	// LocaleGerman is German ("/de/..." prefix).
	LocaleGerman Locale = "de"
	// LocaleFrench is French ("/fr/..." prefix).
	LocaleFrench Locale = "fr"
	// LocaleItalian is Italian ("/it/..." prefix).
	LocaleItalian Locale = "it"
	// LocaleJapanese is Japanese ("/ja/..." prefix).
	LocaleJapanese Locale = "ja"
)

// DefaultLocale is the fallback when no cookie or Accept-Language header
// resolves to a supported locale. It is also the only locale served without
// a URL prefix.
const DefaultLocale = LocaleEnglish

// AllLocales lists every supported locale in a stable order.
// The order matters for hreflang generation and locale negotiation:
// the default locale comes first so the matcher prefers it on ties.
var AllLocales = []Locale{
	LocaleEnglish,
	LocaleSpanish,
	LocalePortuguese,
	LocaleGerman,
	LocaleFrench,
	LocaleItalian,
	LocaleJapanese,
}

// String returns the two-letter locale code.
func (l Locale) String() string {
	return string(l)
}

// IsDefault reports whether this is the unprefixed default locale.
func (l Locale) IsDefault() bool {
	return l == DefaultLocale
}

// PathPrefix returns the URL path prefix for the locale.
// The default locale is served unprefixed, all others as "/<code>".
func (l Locale) PathPrefix() string {
	if l.IsDefault() {
		return ""
	}
	return "/" + string(l)
}

// ParseLocale validates a locale code and returns the typed Locale.
// It returns ErrEmptyLocale for empty input and ErrUnsupportedLocale for
// codes outside the supported set. Matching is exact; region subtags
// ("es-MX") are handled by the i18n package before reaching here.
func ParseLocale(code string) (Locale, error) {
	if code == "" {
		return "", ErrEmptyLocale
	}
	for _, l := range AllLocales {
		if string(l) == code {
			return l, nil
		}
	}
	return "", ErrUnsupportedLocale
}

// IsSupportedLocale reports whether the code is a supported locale.
func IsSupportedLocale(code string) bool {
	_, err := ParseLocale(code)
	return err == nil
}
