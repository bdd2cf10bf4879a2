package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestHandleHealth tests the liveness endpoint.
func TestHandleHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["pages"].(float64) != 1 {
		t.Errorf("pages = %v, want 1", body["pages"])
	}
}

// TestHandlePage tests locale-aware content routes.
func TestHandlePage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	handler := env.server.Handler()

	t.Run("home lists categories", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		body := decodeBody(t, w)
		if body["locale"] != "en" {
			t.Errorf("locale = %v, want en", body["locale"])
		}
		if body["site"] != "https://example.com" {
			t.Errorf("site = %v", body["site"])
		}
	})

	t.Run("unprefixed path serves default locale", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tools/upscale-image-to-4k", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		body := decodeBody(t, w)
		if body["locale"] != "en" {
			t.Errorf("locale = %v, want en", body["locale"])
		}
		metadata := body["metadata"].(map[string]any)
		if metadata["title"] != "Upscale Image to 4K" {
			t.Errorf("title = %v", metadata["title"])
		}
	})

	t.Run("prefixed path serves its locale", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/es/tools/upscale-image-to-4k", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		body := decodeBody(t, w)
		if body["locale"] != "es" {
			t.Errorf("locale = %v, want es", body["locale"])
		}
		metadata := body["metadata"].(map[string]any)
		if metadata["title"] != "Escalar imagen a 4K" {
			t.Errorf("title = %v", metadata["title"])
		}
	})

	t.Run("unknown slug is 404", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tools/no-such-page", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("unknown category is 404", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/blog/hello", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

// TestHandleDashboard tests the auth gate on the dashboard page.
func TestHandleDashboard(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	handler := env.server.Handler()

	t.Run("unauthenticated redirects home", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

		if w.Code != http.StatusFound {
			t.Fatalf("status = %d, want 302", w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/" {
			t.Errorf("Location = %q, want /", loc)
		}
	})

	t.Run("localized redirect keeps the locale prefix", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fr/dashboard", nil))

		if w.Code != http.StatusFound {
			t.Fatalf("status = %d, want 302", w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/fr" {
			t.Errorf("Location = %q, want /fr", loc)
		}
	})

	t.Run("authenticated user gets subscriptions", func(t *testing.T) {
		t.Parallel()

		token := signToken(t, env.cfg.JWTSecret, "user_42", time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		body := decodeBody(t, w)
		if body["userId"] != "user_42" {
			t.Errorf("userId = %v", body["userId"])
		}
		if body["entitled"] != false {
			t.Errorf("entitled = %v, want false with no subscriptions", body["entitled"])
		}
	})
}

// TestSitemaps tests the sitemap index and category sitemap routes.
func TestSitemaps(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	handler := env.server.Handler()

	t.Run("index references category sitemaps", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
			t.Errorf("Content-Type = %q", ct)
		}
		if !strings.Contains(w.Body.String(), "https://example.com/sitemaps/tools.xml") {
			t.Errorf("index missing tools sitemap:\n%s", w.Body.String())
		}
	})

	t.Run("category sitemap carries hreflang alternates", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sitemaps/tools.xml", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		out := w.Body.String()
		for _, want := range []string{`hreflang="es"`, `hreflang="x-default"`, "/es/tools/upscale-image-to-4k"} {
			if !strings.Contains(out, want) {
				t.Errorf("sitemap missing %q", want)
			}
		}
	})

	t.Run("unknown category sitemap is 404", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sitemaps/blog.xml", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}
