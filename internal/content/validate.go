package content

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/jonit-dev/pixelperfect/internal/model"
)

// Violation describes one content validation finding.
type Violation struct {
	// File is the data file the violation was found in.
	File string `json:"file"`

	// Slug is the offending page slug, empty for file-level violations.
	Slug string `json:"slug,omitempty"`

	// Message describes what is wrong.
	Message string `json:"message"`
}

// String renders the violation for CLI output.
func (v Violation) String() string {
	if v.Slug == "" {
		return fmt.Sprintf("%s: %s", v.File, v.Message)
	}
	return fmt.Sprintf("%s: page %q: %s", v.File, v.Slug, v.Message)
}

// ValidateDir checks every category data file under dir and returns all
// violations found. Unlike Store loading, validation never stops at the
// first problem: the pSEO pipeline regenerates thousands of pages and its
// operators need the full defect list in one pass.
func ValidateDir(dir string) ([]Violation, error) {
	var violations []Violation

	for _, category := range model.AllCategories {
		path := filepath.Join(dir, string(category)+".json")
		data, err := os.ReadFile(path) //nolint:gosec // Content dir is operator-controlled
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		violations = append(violations, validateFile(filepath.Base(path), data, category)...)
	}

	return violations, nil
}

// validateFile validates one data file's envelope and pages.
func validateFile(name string, data []byte, category model.Category) []Violation {
	switch category {
	case model.CategoryTools:
		return validatePages[model.ToolPage](name, data, category)
	case model.CategoryComparisons:
		return validatePages[model.ComparisonPage](name, data, category)
	case model.CategoryGuides:
		return validatePages[model.GuidePage](name, data, category)
	default:
		return []Violation{{File: name, Message: "unknown category"}}
	}
}

func validatePages[T model.Page](name string, data []byte, category model.Category) []Violation {
	var violations []Violation

	var file model.DataFile[T]
	if err := json.Unmarshal(data, &file); err != nil {
		return []Violation{{File: name, Message: fmt.Sprintf("malformed JSON: %v", err)}}
	}

	if file.Category != category {
		violations = append(violations, Violation{
			File:    name,
			Message: fmt.Sprintf("envelope declares category %q, file name implies %q", file.Category, category),
		})
	}

	if file.Meta.TotalPages != len(file.Pages) {
		violations = append(violations, Violation{
			File:    name,
			Message: fmt.Sprintf("meta.total_pages is %d but file has %d pages", file.Meta.TotalPages, len(file.Pages)),
		})
	}

	seen := make(map[string]bool, len(file.Pages))
	for i, page := range file.Pages {
		slug := page.PageSlug()
		if slug == "" {
			violations = append(violations, Violation{
				File:    name,
				Message: fmt.Sprintf("page %d has an empty slug", i),
			})
			continue
		}
		if seen[slug] {
			violations = append(violations, Violation{
				File:    name,
				Slug:    slug,
				Message: "duplicate slug",
			})
		}
		seen[slug] = true

		violations = append(violations, validatePageFields(name, page)...)
	}

	return violations
}

// validatePageFields checks per-page required fields shared by all
// categories: a default-locale title and a non-zero update time.
func validatePageFields(name string, page model.Page) []Violation {
	var violations []Violation
	slug := page.PageSlug()

	title := pageTitle(page)
	if title.Get(model.DefaultLocale) == "" {
		violations = append(violations, Violation{
			File:    name,
			Slug:    slug,
			Message: "missing default-locale title",
		})
	}

	if page.PageUpdatedAt().IsZero() {
		violations = append(violations, Violation{
			File:    name,
			Slug:    slug,
			Message: "missing updated_at",
		})
	}

	return violations
}

// pageTitle extracts the localized title from any page record type.
func pageTitle(page model.Page) model.LocalizedText {
	switch p := page.(type) {
	case model.ToolPage:
		return p.Title
	case model.ComparisonPage:
		return p.Title
	case model.GuidePage:
		return p.Title
	default:
		return nil
	}
}
