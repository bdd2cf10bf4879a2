package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jonit-dev/pixelperfect/internal/model"
)

// Store errors.
var (
	// ErrCategoryMismatch is returned when a data file's envelope declares
	// a different category than its file name implies.
	ErrCategoryMismatch = errors.New("data file category does not match file name")
	// ErrDuplicateSlug is returned when two pages in one category share a slug.
	ErrDuplicateSlug = errors.New("duplicate slug within category")
)

// categorySnapshot is one parsed category: ordered pages plus a slug index.
type categorySnapshot struct {
	pages  []model.Page
	bySlug map[string]model.Page
	meta   model.DataFileMeta
}

// Store holds every category's parsed content and answers slug lookups.
// All methods are safe for concurrent use; Reload swaps snapshots under a
// write lock so readers always see a complete category.
type Store struct {
	mu         sync.RWMutex
	dir        string
	categories map[model.Category]*categorySnapshot
}

// NewStore parses all category data files under dir and returns a ready
// Store. Missing files are allowed (a deployment may ship only some
// categories); malformed files are not.
func NewStore(dir string) (*Store, error) {
	s := &Store{
		dir:        dir,
		categories: make(map[model.Category]*categorySnapshot),
	}

	for _, category := range model.AllCategories {
		snap, err := loadCategory(dir, category)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to load %s: %w", category, err)
		}
		s.categories[category] = snap
	}

	return s, nil
}

// FilePath returns the data file path for a category under the store's dir.
func (s *Store) FilePath(category model.Category) string {
	return filepath.Join(s.dir, string(category)+".json")
}

// Reload re-parses a single category's data file and swaps it in.
// On parse failure the previous snapshot stays in place and the error is
// returned so the caller can log it.
func (s *Store) Reload(category model.Category) error {
	snap, err := loadCategory(s.dir, category)
	if err != nil {
		return fmt.Errorf("failed to reload %s: %w", category, err)
	}

	s.mu.Lock()
	s.categories[category] = snap
	s.mu.Unlock()

	return nil
}

// PageBySlug returns the page with the given slug in the category, or
// (nil, nil) if the category or slug is unknown. Route handlers map the
// nil return to a 404.
func (s *Store) PageBySlug(category model.Category, slug string) model.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.categories[category]
	if !ok {
		return nil
	}
	return snap.bySlug[slug]
}

// Pages returns all pages in a category in data-file order.
// Returns nil for an unloaded category.
func (s *Store) Pages(category model.Category) []model.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.categories[category]
	if !ok {
		return nil
	}
	// Copy so callers cannot mutate the snapshot's backing slice.
	out := make([]model.Page, len(snap.pages))
	copy(out, snap.pages)
	return out
}

// Meta returns a category's data file metadata and whether it is loaded.
func (s *Store) Meta(category model.Category) (model.DataFileMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.categories[category]
	if !ok {
		return model.DataFileMeta{}, false
	}
	return snap.meta, true
}

// Categories returns the loaded categories in canonical order.
func (s *Store) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Category, 0, len(s.categories))
	for _, c := range model.AllCategories {
		if _, ok := s.categories[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// PageCount returns the total number of pages across all loaded categories.
func (s *Store) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, snap := range s.categories {
		total += len(snap.pages)
	}
	return total
}

// loadCategory parses one category file into a snapshot.
// Decoding is category-specific because each category has its own record
// type; the generic DataFile envelope keeps the JSON shape uniform.
func loadCategory(dir string, category model.Category) (*categorySnapshot, error) {
	path := filepath.Join(dir, string(category)+".json")
	data, err := os.ReadFile(path) //nolint:gosec // Content dir is operator-controlled
	if err != nil {
		return nil, err
	}

	switch category {
	case model.CategoryTools:
		return decodeCategory[model.ToolPage](data, category)
	case model.CategoryComparisons:
		return decodeCategory[model.ComparisonPage](data, category)
	case model.CategoryGuides:
		return decodeCategory[model.GuidePage](data, category)
	default:
		return nil, model.ErrUnknownCategory
	}
}

// decodeCategory unmarshals an envelope and builds the slug index.
func decodeCategory[T model.Page](data []byte, category model.Category) (*categorySnapshot, error) {
	var file model.DataFile[T]
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse data file: %w", err)
	}

	if file.Category != category {
		return nil, fmt.Errorf("%w: file declares %q", ErrCategoryMismatch, file.Category)
	}

	snap := &categorySnapshot{
		pages:  make([]model.Page, 0, len(file.Pages)),
		bySlug: make(map[string]model.Page, len(file.Pages)),
		meta:   file.Meta,
	}

	for _, page := range file.Pages {
		slug := page.PageSlug()
		if slug == "" {
			return nil, model.ErrEmptySlug
		}
		if _, exists := snap.bySlug[slug]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSlug, slug)
		}
		snap.bySlug[slug] = page
		snap.pages = append(snap.pages, page)
	}

	// A stale declared count is tolerated at load time (validate reports it)
	// but a zero LastUpdated would break sitemap lastmod values, so default
	// it to the newest page.
	if snap.meta.LastUpdated.IsZero() {
		var newest time.Time
		for _, p := range snap.pages {
			if p.PageUpdatedAt().After(newest) {
				newest = p.PageUpdatedAt()
			}
		}
		snap.meta.LastUpdated = newest
	}

	return snap, nil
}
