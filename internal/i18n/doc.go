// Package i18n resolves the request locale and maps between localized and
// canonical URL paths.
//
// Resolution priority is cookie, then Accept-Language negotiation, then the
// default locale. The default locale (English) is served without a URL
// prefix; every other locale is prefixed with its two-letter code
// ("/es/tools/...").
package i18n
