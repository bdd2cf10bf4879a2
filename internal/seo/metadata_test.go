package seo

import (
	"testing"

	"github.com/jonit-dev/pixelperfect/internal/model"
)

// TestPageMetadata tests localized metadata generation.
func TestPageMetadata(t *testing.T) {
	t.Parallel()

	g := NewGenerator("https://myimageupscaler.com")
	page := testToolPage()
	page.FAQ = []model.FAQItem{
		{Question: "What is 4K?", Answer: "3840x2160 pixels."},
	}

	t.Run("default locale", func(t *testing.T) {
		t.Parallel()

		meta := g.PageMetadata(page, model.LocaleEnglish)
		if meta.Title != "Upscale Image to 4K" {
			t.Errorf("Title = %q", meta.Title)
		}
		if meta.Canonical != "https://myimageupscaler.com/tools/upscale-image-to-4k" {
			t.Errorf("Canonical = %q", meta.Canonical)
		}
		if len(meta.Alternates) != len(model.AllLocales)+1 {
			t.Errorf("Alternates len = %d, want %d", len(meta.Alternates), len(model.AllLocales)+1)
		}
		last := meta.Alternates[len(meta.Alternates)-1]
		if last.Hreflang != "x-default" {
			t.Errorf("last alternate hreflang = %q, want x-default", last.Hreflang)
		}
		if last.Href != "https://myimageupscaler.com/tools/upscale-image-to-4k" {
			t.Errorf("x-default href = %q", last.Href)
		}
	})

	t.Run("translated locale with prefixed canonical", func(t *testing.T) {
		t.Parallel()

		meta := g.PageMetadata(page, model.LocaleSpanish)
		if meta.Title != "Escalar imagen a 4K" {
			t.Errorf("Title = %q", meta.Title)
		}
		if meta.Canonical != "https://myimageupscaler.com/es/tools/upscale-image-to-4k" {
			t.Errorf("Canonical = %q", meta.Canonical)
		}
	})

	t.Run("untranslated locale falls back to default text", func(t *testing.T) {
		t.Parallel()

		meta := g.PageMetadata(page, model.LocaleJapanese)
		if meta.Title != "Upscale Image to 4K" {
			t.Errorf("Title = %q, want default-locale fallback", meta.Title)
		}
	})

	t.Run("tool page structured data", func(t *testing.T) {
		t.Parallel()

		meta := g.PageMetadata(page, model.LocaleEnglish)
		if len(meta.JSONLD) != 2 {
			t.Fatalf("JSONLD len = %d, want SoftwareApplication + FAQPage", len(meta.JSONLD))
		}
		if meta.JSONLD[0]["@type"] != "SoftwareApplication" {
			t.Errorf("JSONLD[0] @type = %v", meta.JSONLD[0]["@type"])
		}
		if meta.JSONLD[1]["@type"] != "FAQPage" {
			t.Errorf("JSONLD[1] @type = %v", meta.JSONLD[1]["@type"])
		}
		entities, ok := meta.JSONLD[1]["mainEntity"].([]map[string]any)
		if !ok || len(entities) != 1 {
			t.Fatalf("mainEntity = %v", meta.JSONLD[1]["mainEntity"])
		}
		if entities[0]["name"] != "What is 4K?" {
			t.Errorf("question name = %v", entities[0]["name"])
		}
	})

	t.Run("guide page without FAQ has no structured data", func(t *testing.T) {
		t.Parallel()

		guide := model.GuidePage{
			Slug:        "how-to-upscale-photos",
			Title:       model.LocalizedText{model.LocaleEnglish: "How to Upscale Photos"},
			Description: model.LocalizedText{model.LocaleEnglish: "A complete guide."},
		}
		meta := g.PageMetadata(guide, model.LocaleEnglish)
		if len(meta.JSONLD) != 0 {
			t.Errorf("JSONLD = %v, want none", meta.JSONLD)
		}
		if meta.Canonical != "https://myimageupscaler.com/guides/how-to-upscale-photos" {
			t.Errorf("Canonical = %q", meta.Canonical)
		}
	})
}

// TestLocalizedPaths tests language-switcher path generation.
func TestLocalizedPaths(t *testing.T) {
	t.Parallel()

	paths := LocalizedPaths(testToolPage())
	if len(paths) != len(model.AllLocales) {
		t.Fatalf("len = %d, want %d", len(paths), len(model.AllLocales))
	}
	if paths[model.LocaleEnglish] != "/tools/upscale-image-to-4k" {
		t.Errorf("en path = %q", paths[model.LocaleEnglish])
	}
	if paths[model.LocaleGerman] != "/de/tools/upscale-image-to-4k" {
		t.Errorf("de path = %q", paths[model.LocaleGerman])
	}
}
