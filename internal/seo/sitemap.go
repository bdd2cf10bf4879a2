package seo

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/jonit-dev/pixelperfect/internal/i18n"
	"github.com/jonit-dev/pixelperfect/internal/model"
)

// Sitemap XML namespaces.
const (
	sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"
	xhtmlNamespace   = "http://www.w3.org/1999/xhtml"
)

// lastmodFormat is the W3C date format sitemaps use.
const lastmodFormat = "2006-01-02"

// urlSet is the <urlset> root of a per-category sitemap.
type urlSet struct {
	XMLName   xml.Name     `xml:"urlset"`
	Namespace string       `xml:"xmlns,attr"`
	XHTML     string       `xml:"xmlns:xhtml,attr"`
	URLs      []sitemapURL `xml:"url"`
}

// sitemapURL is one <url> entry with its hreflang alternates.
type sitemapURL struct {
	Loc        string          `xml:"loc"`
	LastMod    string          `xml:"lastmod,omitempty"`
	Alternates []alternateLink `xml:"xhtml:link"`
}

// alternateLink is an <xhtml:link rel="alternate"> hreflang entry.
type alternateLink struct {
	Rel      string `xml:"rel,attr"`
	Hreflang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

// sitemapIndex is the <sitemapindex> root listing per-category sitemaps.
type sitemapIndex struct {
	XMLName   xml.Name       `xml:"sitemapindex"`
	Namespace string         `xml:"xmlns,attr"`
	Sitemaps  []sitemapEntry `xml:"sitemap"`
}

// sitemapEntry is one <sitemap> reference in the index.
type sitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Generator renders sitemaps and page metadata for a site rooted at BaseURL.
type Generator struct {
	// baseURL is the site origin without a trailing slash,
	// e.g. "https://myimageupscaler.com".
	baseURL string
}

// NewGenerator creates a Generator for the given site origin.
func NewGenerator(baseURL string) *Generator {
	return &Generator{baseURL: baseURL}
}

// CategorySitemap renders the sitemap for one category's pages.
// Each page contributes one <url> per locale, and every <url> repeats the
// full alternate set plus x-default as Google's hreflang guidelines require.
func (g *Generator) CategorySitemap(category model.Category, pages []model.Page) ([]byte, error) {
	set := urlSet{
		Namespace: sitemapNamespace,
		XHTML:     xhtmlNamespace,
		URLs:      make([]sitemapURL, 0, len(pages)*len(model.AllLocales)),
	}

	for _, page := range pages {
		canonical := fmt.Sprintf("/%s/%s", category, page.PageSlug())
		alternates := g.alternates(canonical)

		var lastmod string
		if updated := page.PageUpdatedAt(); !updated.IsZero() {
			lastmod = updated.UTC().Format(lastmodFormat)
		}

		for _, locale := range model.AllLocales {
			set.URLs = append(set.URLs, sitemapURL{
				Loc:        g.absoluteURL(locale, canonical),
				LastMod:    lastmod,
				Alternates: alternates,
			})
		}
	}

	return marshalXML(set)
}

// SitemapIndex renders the sitemap index for the loaded categories.
// lastMod maps each category to its data file's LastUpdated.
func (g *Generator) SitemapIndex(categories []model.Category, lastMod map[model.Category]time.Time) ([]byte, error) {
	index := sitemapIndex{
		Namespace: sitemapNamespace,
		Sitemaps:  make([]sitemapEntry, 0, len(categories)),
	}

	for _, category := range categories {
		entry := sitemapEntry{
			Loc: fmt.Sprintf("%s/sitemaps/%s.xml", g.baseURL, category),
		}
		if t, ok := lastMod[category]; ok && !t.IsZero() {
			entry.LastMod = t.UTC().Format(lastmodFormat)
		}
		index.Sitemaps = append(index.Sitemaps, entry)
	}

	return marshalXML(index)
}

// alternates builds the hreflang link set for a canonical path: one entry
// per locale plus x-default pointing at the unprefixed URL.
func (g *Generator) alternates(canonicalPath string) []alternateLink {
	links := make([]alternateLink, 0, len(model.AllLocales)+1)
	for _, locale := range model.AllLocales {
		links = append(links, alternateLink{
			Rel:      "alternate",
			Hreflang: locale.String(),
			Href:     g.absoluteURL(locale, canonicalPath),
		})
	}
	links = append(links, alternateLink{
		Rel:      "alternate",
		Hreflang: "x-default",
		Href:     g.absoluteURL(model.DefaultLocale, canonicalPath),
	})
	return links
}

// absoluteURL joins the base URL with a locale-prefixed path.
func (g *Generator) absoluteURL(locale model.Locale, canonicalPath string) string {
	return g.baseURL + i18n.Localize(locale, canonicalPath)
}

// marshalXML renders a document with the XML declaration prepended.
func marshalXML(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sitemap: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
