package seo

import (
	"fmt"

	"github.com/jonit-dev/pixelperfect/internal/i18n"
	"github.com/jonit-dev/pixelperfect/internal/model"
)

// Alternate is one hreflang alternate for a page, rendered as a
// <link rel="alternate"> tag and returned in content API payloads.
type Alternate struct {
	Hreflang string `json:"hreflang"`
	Href     string `json:"href"`
}

// Metadata is the head-level metadata for one localized page.
type Metadata struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Canonical   string      `json:"canonical"`
	Alternates  []Alternate `json:"alternates"`

	// JSONLD holds the page's schema.org structured data blocks.
	JSONLD []map[string]any `json:"jsonLd,omitempty"`
}

// PageMetadata builds the metadata for a page in a locale: localized
// title/description, the locale's canonical URL, the full alternate set,
// and structured data.
func (g *Generator) PageMetadata(page model.Page, locale model.Locale) Metadata {
	canonical := fmt.Sprintf("/%s/%s", page.PageCategory(), page.PageSlug())

	alternates := make([]Alternate, 0, len(model.AllLocales)+1)
	for _, l := range model.AllLocales {
		alternates = append(alternates, Alternate{
			Hreflang: l.String(),
			Href:     g.absoluteURL(l, canonical),
		})
	}
	alternates = append(alternates, Alternate{
		Hreflang: "x-default",
		Href:     g.absoluteURL(model.DefaultLocale, canonical),
	})

	meta := Metadata{
		Canonical:  g.absoluteURL(locale, canonical),
		Alternates: alternates,
	}

	switch p := page.(type) {
	case model.ToolPage:
		meta.Title = p.Title.Get(locale)
		meta.Description = p.Description.Get(locale)
		meta.JSONLD = append(meta.JSONLD, g.softwareApplicationLD(p, locale))
		if ld := faqPageLD(p.FAQ); ld != nil {
			meta.JSONLD = append(meta.JSONLD, ld)
		}
	case model.ComparisonPage:
		meta.Title = p.Title.Get(locale)
		meta.Description = p.Description.Get(locale)
		if ld := faqPageLD(p.FAQ); ld != nil {
			meta.JSONLD = append(meta.JSONLD, ld)
		}
	case model.GuidePage:
		meta.Title = p.Title.Get(locale)
		meta.Description = p.Description.Get(locale)
		if ld := faqPageLD(p.FAQ); ld != nil {
			meta.JSONLD = append(meta.JSONLD, ld)
		}
	}

	return meta
}

// softwareApplicationLD builds the schema.org SoftwareApplication block
// advertised on tool landing pages.
func (g *Generator) softwareApplicationLD(page model.ToolPage, locale model.Locale) map[string]any {
	return map[string]any{
		"@context":            "https://schema.org",
		"@type":               "SoftwareApplication",
		"name":                page.Title.Get(locale),
		"description":         page.Description.Get(locale),
		"url":                 g.absoluteURL(locale, fmt.Sprintf("/%s/%s", model.CategoryTools, page.Slug)),
		"applicationCategory": "MultimediaApplication",
		"operatingSystem":     "Web",
		"offers": map[string]any{
			"@type":         "Offer",
			"price":         "0",
			"priceCurrency": "USD",
		},
	}
}

// faqPageLD builds a schema.org FAQPage block, or nil when the page has no
// FAQ entries.
func faqPageLD(items []model.FAQItem) map[string]any {
	if len(items) == 0 {
		return nil
	}

	entities := make([]map[string]any, 0, len(items))
	for _, item := range items {
		entities = append(entities, map[string]any{
			"@type": "Question",
			"name":  item.Question,
			"acceptedAnswer": map[string]any{
				"@type": "Answer",
				"text":  item.Answer,
			},
		})
	}

	return map[string]any{
		"@context":   "https://schema.org",
		"@type":      "FAQPage",
		"mainEntity": entities,
	}
}

// LocalizedPaths returns the locale-prefixed URL path of a page for every
// supported locale, used by the language switcher.
func LocalizedPaths(page model.Page) map[model.Locale]string {
	canonical := fmt.Sprintf("/%s/%s", page.PageCategory(), page.PageSlug())
	paths := make(map[model.Locale]string, len(model.AllLocales))
	for _, locale := range model.AllLocales {
		paths[locale] = i18n.Localize(locale, canonical)
	}
	return paths
}
