package i18n

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/jonit-dev/pixelperfect/internal/model"
)

// CookieName is the cookie holding the visitor's explicit locale choice.
// The language switcher sets it; detection reads it ahead of Accept-Language.
const CookieName = "locale"

// matcher negotiates Accept-Language headers against the supported set.
// The tag order mirrors model.AllLocales so ties resolve to the default
// locale.
var matcher = language.NewMatcher(supportedTags())

func supportedTags() []language.Tag {
	tags := make([]language.Tag, len(model.AllLocales))
	for i, l := range model.AllLocales {
		tags[i] = language.MustParse(string(l))
	}
	return tags
}

// DetectLocale resolves the locale for a request.
//
// Priority:
//  1. The locale cookie, when it names a supported locale.
//  2. Accept-Language negotiation.
//  3. The default locale.
//
// A cookie with an unsupported value is ignored rather than rejected: stale
// cookies from removed locales must not break the site.
func DetectLocale(r *http.Request) model.Locale {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if locale, err := model.ParseLocale(cookie.Value); err == nil {
			return locale
		}
	}

	if header := r.Header.Get("Accept-Language"); header != "" {
		if locale, ok := negotiate(header); ok {
			return locale
		}
	}

	return model.DefaultLocale
}

// negotiate matches an Accept-Language header against the supported locales.
// Region subtags narrow to their base language ("es-MX" matches "es").
func negotiate(header string) (model.Locale, bool) {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "", false
	}

	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return "", false
	}
	return model.AllLocales[index], true
}

// SplitLocalePath splits a request path into its locale and the canonical
// (unprefixed) path. "/es/tools/upscale-4k" yields (es, "/tools/upscale-4k");
// unprefixed paths yield the default locale unchanged.
//
// Only exact supported-locale prefixes are recognized: "/essays" is an
// English path, not a Spanish one.
func SplitLocalePath(path string) (model.Locale, string) {
	trimmed := strings.TrimPrefix(path, "/")
	code, rest, _ := strings.Cut(trimmed, "/")

	locale, err := model.ParseLocale(code)
	if err != nil || locale.IsDefault() {
		return model.DefaultLocale, path
	}

	if rest == "" {
		return locale, "/"
	}
	return locale, "/" + rest
}

// Localize prefixes a canonical path for the given locale.
// The default locale returns the path unchanged.
func Localize(locale model.Locale, canonicalPath string) string {
	if locale.IsDefault() {
		return canonicalPath
	}
	if canonicalPath == "/" {
		return locale.PathPrefix()
	}
	return locale.PathPrefix() + canonicalPath
}
