package model

import (
	"errors"
	"time"
)

// Content validation errors.
var (
	// ErrEmptySlug is returned when a content page has no slug.
	ErrEmptySlug = errors.New("content page slug cannot be empty")
	// ErrEmptyTitle is returned when a content page has no title.
	ErrEmptyTitle = errors.New("content page title cannot be empty")
	// ErrUnknownCategory is returned when a category is not in the known set.
	ErrUnknownCategory = errors.New("unknown content category")
)

// Category identifies a programmatic-SEO content category. Each category has
// its own data file, URL namespace, and sitemap.
type Category string

const (
	// CategoryTools holds upscaler tool landing pages ("/tools/<slug>").
	CategoryTools Category = "tools"
	// CategoryComparisons holds "X vs Y" comparison pages ("/comparisons/<slug>").
	CategoryComparisons Category = "comparisons"
	// CategoryGuides holds long-form how-to guides ("/guides/<slug>").
	CategoryGuides Category = "guides"
)

// AllCategories lists every content category in a stable order.
// Sitemap index entries and loader iteration follow this order.
var AllCategories = []Category{
	CategoryTools,
	CategoryComparisons,
	CategoryGuides,
}

// String returns the category slug as used in URLs and file names.
func (c Category) String() string {
	return string(c)
}

// ParseCategory validates a category slug.
func ParseCategory(s string) (Category, error) {
	for _, c := range AllCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

// FAQItem is a single question/answer pair rendered on a landing page and
// emitted as schema.org FAQPage structured data.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LocalizedText maps a locale code to a translated string. Missing locales
// fall back to the default locale's value at render time.
type LocalizedText map[Locale]string

// Get returns the text for the locale, falling back to the default locale
// and then to any present value. Returns "" only when the map is empty.
func (t LocalizedText) Get(locale Locale) string {
	if s, ok := t[locale]; ok && s != "" {
		return s
	}
	if s, ok := t[DefaultLocale]; ok {
		return s
	}
	for _, s := range t {
		return s
	}
	return ""
}

// Page is the interface implemented by all pSEO content record types.
// The content loader and sitemap generator operate on this interface so a
// new category only needs a new record type plus a data file.
type Page interface {
	// PageSlug returns the URL slug, unique within the page's category.
	PageSlug() string
	// PageCategory returns the category the page belongs to.
	PageCategory() Category
	// PageUpdatedAt returns the last content update time, used for
	// sitemap lastmod values.
	PageUpdatedAt() time.Time
}

// ToolPage is a landing page for one upscaling tool configuration,
// generated from keyword/dimension data (e.g. "upscale image to 4k").
type ToolPage struct {
	// Slug is the URL path segment, unique within the tools category.
	Slug string `json:"slug"`

	// Title is the localized page title (H1 and <title>).
	Title LocalizedText `json:"title"`

	// Description is the localized meta description.
	Description LocalizedText `json:"description"`

	// Keyword is the primary search keyword the page targets.
	Keyword string `json:"keyword"`

	// ScaleFactor is the upscale multiplier the page advertises (2, 4, 8).
	ScaleFactor int `json:"scale_factor"`

	// OutputFormat is the advertised output format (png, jpg, webp).
	OutputFormat string `json:"output_format,omitempty"`

	// FAQ holds the page's question/answer blocks.
	FAQ []FAQItem `json:"faq,omitempty"`

	// UpdatedAt is the last content update time.
	UpdatedAt time.Time `json:"updated_at"`
}

// PageSlug implements Page.
func (p ToolPage) PageSlug() string { return p.Slug }

// PageCategory implements Page.
func (p ToolPage) PageCategory() Category { return CategoryTools }

// PageUpdatedAt implements Page.
func (p ToolPage) PageUpdatedAt() time.Time { return p.UpdatedAt }

// ComparisonPage is an "X vs Y" landing page comparing two upscaling
// products or techniques.
type ComparisonPage struct {
	Slug        string        `json:"slug"`
	Title       LocalizedText `json:"title"`
	Description LocalizedText `json:"description"`

	// LeftName and RightName are the two compared subjects.
	LeftName  string `json:"left_name"`
	RightName string `json:"right_name"`

	// Verdict is a localized one-paragraph summary of the comparison.
	Verdict LocalizedText `json:"verdict,omitempty"`

	FAQ       []FAQItem `json:"faq,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageSlug implements Page.
func (p ComparisonPage) PageSlug() string { return p.Slug }

// PageCategory implements Page.
func (p ComparisonPage) PageCategory() Category { return CategoryComparisons }

// PageUpdatedAt implements Page.
func (p ComparisonPage) PageUpdatedAt() time.Time { return p.UpdatedAt }

// GuidePage is a long-form how-to guide.
type GuidePage struct {
	Slug        string        `json:"slug"`
	Title       LocalizedText `json:"title"`
	Description LocalizedText `json:"description"`

	// Body is the localized guide body in Markdown.
	Body LocalizedText `json:"body"`

	// ReadingMinutes is the estimated reading time shown on the page.
	ReadingMinutes int `json:"reading_minutes,omitempty"`

	FAQ       []FAQItem `json:"faq,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageSlug implements Page.
func (p GuidePage) PageSlug() string { return p.Slug }

// PageCategory implements Page.
func (p GuidePage) PageCategory() Category { return CategoryGuides }

// PageUpdatedAt implements Page.
func (p GuidePage) PageUpdatedAt() time.Time { return p.UpdatedAt }

// DataFileMeta describes a content data file's envelope metadata.
type DataFileMeta struct {
	// TotalPages is the declared page count. Validation flags files where
	// this disagrees with the actual page list length.
	TotalPages int `json:"total_pages"`

	// LastUpdated is when the data file was last regenerated.
	LastUpdated time.Time `json:"last_updated"`
}

// DataFile is the envelope for one category's content data file:
// {category, pages, meta}. The pages payload is decoded per category by
// the content loader.
type DataFile[T Page] struct {
	Category Category     `json:"category"`
	Pages    []T          `json:"pages"`
	Meta     DataFileMeta `json:"meta"`
}
