package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestSecureHandlerMasksSensitiveKeys tests key-based sanitization.
func TestSecureHandlerMasksSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"authorization header", "authorization", "Bearer abc"},
		{"cron secret header", "x-cron-secret", "super-secret"},
		{"stripe signature header", "stripe-signature", "t=1,v1=aa"},
		{"stripe secret key attr", "stripe_secret_key", "sk_live_xyz"},
		{"jwt secret attr", "jwt_secret", "hmac-secret"},
		{"cookie", "cookie", "locale=en; session=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, true)
			logger.Info("request", tt.key, tt.value)

			out := buf.String()
			if strings.Contains(out, tt.value) {
				t.Errorf("output leaked sensitive value %q: %s", tt.value, out)
			}
			if !strings.Contains(out, MaskValue) {
				t.Errorf("output missing mask: %s", out)
			}
		})
	}
}

// TestSecureHandlerMasksSensitiveValues tests pattern-based sanitization
// where the key itself looks harmless.
func TestSecureHandlerMasksSensitiveValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
	}{
		{"stripe live key", "sk_live_abc123DEF"},
		{"stripe test key", "sk_test_abc123DEF"},
		{"restricted key", "rk_live_abc123DEF"},
		{"webhook secret", "whsec_abc123DEF"},
		{"jwt", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig"},
		{"signature header value", "t=1700000000,v1=deadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, true)
			logger.Info("request", "detail", tt.value)

			out := buf.String()
			if strings.Contains(out, tt.value) {
				t.Errorf("output leaked sensitive value %q: %s", tt.value, out)
			}
		})
	}
}

// TestSecureHandlerKeepsHarmlessValues tests that ordinary attributes
// pass through unmasked.
func TestSecureHandlerKeepsHarmlessValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true)
	logger.Info("checkout created", "price_id", "price_123", "locale", "es")

	out := buf.String()
	if !strings.Contains(out, "price_123") {
		t.Errorf("expected price_id to pass through: %s", out)
	}
	if !strings.Contains(out, "locale=es") {
		t.Errorf("expected locale to pass through: %s", out)
	}
}

// TestSecureHandlerSanitizesGroups tests recursive group sanitization.
func TestSecureHandlerSanitizesGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true)
	logger.Info("request",
		slog.Group("http",
			slog.String("authorization", "Bearer tok"),
			slog.String("path", "/api/checkout"),
		),
	)

	out := buf.String()
	if strings.Contains(out, "Bearer tok") {
		t.Errorf("group attribute leaked: %s", out)
	}
	if !strings.Contains(out, "/api/checkout") {
		t.Errorf("harmless group attribute lost: %s", out)
	}
}

// TestSecureLoggerLevels tests verbose flag behavior.
func TestSecureLoggerLevels(t *testing.T) {
	t.Parallel()

	t.Run("verbose enables debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewSecureLogger(&buf, true)
		logger.Debug("debug message")

		if !strings.Contains(buf.String(), "debug message") {
			t.Error("expected debug output in verbose mode")
		}
	})

	t.Run("non-verbose suppresses info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewSecureLogger(&buf, false)
		logger.Info("info message")

		if buf.Len() != 0 {
			t.Errorf("expected no output below warn, got: %s", buf.String())
		}
	})
}

// TestNewSecureJSONLogger tests JSON output with sanitization.
func TestNewSecureJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureJSONLogger(&buf, true)
	logger.Info("request", "token", "abc")

	out := buf.String()
	if !strings.Contains(out, `"msg":"request"`) {
		t.Errorf("expected JSON output, got: %s", out)
	}
	if strings.Contains(out, `"abc"`) {
		t.Errorf("JSON output leaked token: %s", out)
	}
}
