package model

import (
	"errors"
	"testing"
	"time"
)

// TestParseCategory tests category slug validation.
func TestParseCategory(t *testing.T) {
	t.Parallel()

	for _, want := range AllCategories {
		got, err := ParseCategory(string(want))
		if err != nil {
			t.Errorf("ParseCategory(%q) returned error: %v", want, err)
		}
		if got != want {
			t.Errorf("ParseCategory(%q) = %q, want %q", want, got, want)
		}
	}

	_, err := ParseCategory("blog")
	if !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
}

// TestPageInterface tests that all content record types satisfy Page.
func TestPageInterface(t *testing.T) {
	t.Parallel()

	now := time.Now()
	pages := []Page{
		ToolPage{Slug: "upscale-image-to-4k", ScaleFactor: 4, UpdatedAt: now},
		ComparisonPage{Slug: "pixelperfect-vs-topaz", LeftName: "PixelPerfect", RightName: "Topaz", UpdatedAt: now},
		GuidePage{Slug: "how-to-upscale-old-photos", UpdatedAt: now},
	}
	wantCategories := []Category{CategoryTools, CategoryComparisons, CategoryGuides}

	for i, p := range pages {
		if p.PageSlug() == "" {
			t.Errorf("page %d: empty slug", i)
		}
		if p.PageCategory() != wantCategories[i] {
			t.Errorf("page %d: category %s, want %s", i, p.PageCategory(), wantCategories[i])
		}
		if !p.PageUpdatedAt().Equal(now) {
			t.Errorf("page %d: wrong updated time", i)
		}
	}
}
