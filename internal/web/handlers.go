package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonit-dev/pixelperfect/internal/i18n"
	"github.com/jonit-dev/pixelperfect/internal/model"
)

// handleHealth reports liveness and the loaded content inventory.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"pages":  s.store.PageCount(),
	})
}

// handleSitemapIndex serves the sitemap index referencing every category
// sitemap.
func (s *Server) handleSitemapIndex(c *gin.Context) {
	categories := s.store.Categories()
	lastMod := make(map[model.Category]time.Time, len(categories))
	for _, category := range categories {
		if meta, ok := s.store.Meta(category); ok {
			lastMod[category] = meta.LastUpdated
		}
	}

	data, err := s.seo.SitemapIndex(categories, lastMod)
	if err != nil {
		s.logger.Error("sitemap index generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}

// handleCategorySitemap serves one category's sitemap with hreflang
// alternates, e.g. /sitemaps/tools.xml.
func (s *Server) handleCategorySitemap(c *gin.Context) {
	name, ok := strings.CutSuffix(c.Param("file"), ".xml")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	category, err := model.ParseCategory(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	data, err := s.seo.CategorySitemap(category, s.store.Pages(category))
	if err != nil {
		s.logger.Error("category sitemap generation failed", "category", category, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}

// handlePage serves localized content payloads for every page route. The
// locale prefix in the path is authoritative; unprefixed paths serve the
// default locale regardless of the visitor's cookie.
func (s *Server) handlePage(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	s.enforceLimit(c, s.publicLimiter, c.ClientIP())
	if c.IsAborted() {
		return
	}

	locale, canonical := i18n.SplitLocalePath(c.Request.URL.Path)

	switch {
	case canonical == "/":
		s.servePageHome(c, locale)
	case canonical == "/dashboard":
		s.servePageDashboard(c, locale)
	default:
		s.servePageContent(c, locale, canonical)
	}
}

// servePageHome returns the site overview: category inventory and per-category
// freshness.
func (s *Server) servePageHome(c *gin.Context, locale model.Locale) {
	categories := s.store.Categories()
	inventory := make([]gin.H, 0, len(categories))
	for _, category := range categories {
		entry := gin.H{
			"category": category,
			"pages":    len(s.store.Pages(category)),
		}
		if meta, ok := s.store.Meta(category); ok && !meta.LastUpdated.IsZero() {
			entry["lastUpdated"] = meta.LastUpdated
		}
		inventory = append(inventory, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"site":       s.cfg.BaseURL,
		"locale":     locale,
		"categories": inventory,
	})
}

// servePageDashboard returns the signed-in user's subscriptions.
// Unauthenticated visitors are sent back to the home page.
func (s *Server) servePageDashboard(c *gin.Context, locale model.Locale) {
	userID, err := s.verifier.VerifyAuthorizationHeader(c.GetHeader("Authorization"))
	if err != nil {
		// The dashboard is a page, not an API; a 401 body helps nobody.
		c.Redirect(http.StatusFound, i18n.Localize(locale, "/"))
		return
	}

	subscriptions, err := s.db.GetSubscriptionsByUser(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("dashboard subscription lookup failed", "user", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	entitled := false
	for _, sub := range subscriptions {
		if sub.Status.IsEntitled() {
			entitled = true
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"locale":        locale,
		"userId":        userID,
		"entitled":      entitled,
		"subscriptions": subscriptions,
	})
}

// servePageContent resolves /:category/:slug and returns the localized page
// payload with its head metadata.
func (s *Server) servePageContent(c *gin.Context, locale model.Locale, canonical string) {
	segments := pathSegments(canonical)
	if len(segments) != 2 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	category, err := model.ParseCategory(segments[0])
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	page := s.store.PageBySlug(category, segments[1])
	if page == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"locale":   locale,
		"category": category,
		"slug":     page.PageSlug(),
		"metadata": s.seo.PageMetadata(page, locale),
		"page":     page,
	})
}
