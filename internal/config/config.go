// Package config holds the PixelPerfect service configuration: defaults,
// CLI-flag-populated settings, the YAML deployment file, and validation.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are tuned for a small single-instance deployment and can all
// be overridden via CLI flags or the deployment file.
const (
	// DefaultListenAddress binds to all interfaces on 8080. The service is
	// expected to sit behind a reverse proxy that terminates TLS.
	DefaultListenAddress = ":8080"

	// DefaultBaseURL is the canonical site origin used in sitemaps,
	// hreflang alternates, and checkout redirect URLs. Deployments must
	// override this; the default exists so local runs produce valid URLs.
	DefaultBaseURL = "https://myimageupscaler.com"

	// DefaultContentDir is where pSEO data files live, relative to the
	// working directory. Each category has one <category>.json file.
	DefaultContentDir = "content"

	// DefaultReadTimeout bounds request header+body reads. Content routes
	// serve small JSON; 10 seconds is generous even for slow clients.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds response writes. Cron jobs are the slowest
	// handlers because they call Stripe per record; 2 minutes keeps a full
	// reconcile within one request while still bounding runaway runs.
	DefaultWriteTimeout = 2 * time.Minute

	// DefaultShutdownTimeout is how long graceful shutdown waits for
	// in-flight requests before forcing the listener closed.
	DefaultShutdownTimeout = 15 * time.Second

	// DefaultPublicRateLimit is requests per minute per client IP on
	// public API routes. Sixty per minute absorbs legitimate page-data
	// fetch bursts while stopping scrapers from hammering the JSON routes.
	DefaultPublicRateLimit = 60

	// DefaultUserRateLimit is requests per minute per authenticated user.
	// Checkout is the only user-keyed route; ten attempts a minute is far
	// beyond any legitimate flow.
	DefaultUserRateLimit = 10

	// DefaultSyncConcurrency is how many records a reconciliation job
	// examines concurrently. Each record may call Stripe, whose default
	// rate limits tolerate this comfortably.
	DefaultSyncConcurrency = 5

	// DefaultStripeTimeout bounds each Stripe API call.
	DefaultStripeTimeout = 30 * time.Second

	// DefaultWebhookTolerance is the accepted clock skew for Stripe
	// webhook signatures. Five minutes matches Stripe's own recommendation.
	DefaultWebhookTolerance = 5 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "pixelperfect"
)

// Config holds all configuration for the PixelPerfect service.
// It is populated from defaults, then the deployment file, then environment
// variables for secrets, then CLI flags, and passed through the application
// via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ServerConfig, StripeConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// ListenAddress is the host:port the HTTP server binds to.
	ListenAddress string

	// BaseURL is the canonical site origin ("https://example.com", no
	// trailing slash). Used for sitemap <loc> values, hreflang alternates,
	// canonical URLs, and default checkout redirect targets.
	BaseURL string

	// ContentDir is the directory holding pSEO JSON data files.
	ContentDir string

	// DBDir is the directory for the SQLite billing database.
	// Defaults to the XDG data directory when empty.
	DBDir string

	// AllowedOrigins lists origins permitted by CORS on API routes.
	// An empty list means same-origin only (no CORS headers emitted).
	AllowedOrigins []string

	// PublicRateLimit is requests per minute per IP for public API routes.
	PublicRateLimit int

	// UserRateLimit is requests per minute per user for authenticated routes.
	UserRateLimit int

	// StripeSecretKey authenticates Stripe API calls ("sk_...").
	// Populated from the STRIPE_SECRET_KEY environment variable.
	StripeSecretKey string

	// StripeWebhookSecret verifies webhook signatures ("whsec_...").
	// Populated from the STRIPE_WEBHOOK_SECRET environment variable.
	StripeWebhookSecret string

	// StripeBaseURL overrides the Stripe API origin. Used by tests to
	// point the client at a local fake; empty means the real API.
	StripeBaseURL string

	// StripeTimeout bounds each Stripe API call.
	StripeTimeout time.Duration

	// WebhookTolerance is the accepted webhook signature timestamp skew.
	WebhookTolerance time.Duration

	// CronSecret guards the /api/cron/* endpoints via the x-cron-secret
	// header. Populated from the CRON_SECRET environment variable.
	CronSecret string

	// JWTSecret verifies dashboard bearer tokens (HS256).
	// Populated from the JWT_SECRET environment variable.
	JWTSecret string

	// KafkaBrokers lists Kafka bootstrap brokers for billing events.
	// Empty disables event publishing entirely.
	KafkaBrokers []string

	// KafkaTopic is the topic billing events are published to.
	KafkaTopic string

	// SyncConcurrency is per-job record fan-out for reconciliation.
	SyncConcurrency int

	// ReadTimeout, WriteTimeout, and ShutdownTimeout bound the HTTP server.
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// WatchContent enables fsnotify-based hot reload of content data files.
	WatchContent bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts, limits).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		ListenAddress:    DefaultListenAddress,
		BaseURL:          DefaultBaseURL,
		ContentDir:       DefaultContentDir,
		PublicRateLimit:  DefaultPublicRateLimit,
		UserRateLimit:    DefaultUserRateLimit,
		StripeTimeout:    DefaultStripeTimeout,
		WebhookTolerance: DefaultWebhookTolerance,
		SyncConcurrency:  DefaultSyncConcurrency,
		ReadTimeout:      DefaultReadTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		ShutdownTimeout:  DefaultShutdownTimeout,
		KafkaTopic:       "billing.subscription-events",
	}
}

// XDGDataDir returns the XDG data directory for PixelPerfect.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/pixelperfect
// On macOS: ~/Library/Application Support/pixelperfect
// On Windows: %LOCALAPPDATA%\pixelperfect
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for PixelPerfect.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplyEnvOverrides reads secrets from environment variables.
// Secrets never live in the deployment file so it can be committed; this is
// the single place where process environment crosses into configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		c.StripeSecretKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		c.StripeWebhookSecret = v
	}
	if v := os.Getenv("CRON_SECRET"); v != "" {
		c.CronSecret = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers := strings.Split(v, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		c.KafkaBrokers = brokers
	}
}

// Validate checks if the configuration is valid for serving.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before the server starts.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return ErrNoListenAddress
	}
	if c.BaseURL == "" || !strings.HasPrefix(c.BaseURL, "http") {
		return ErrInvalidBaseURL
	}
	if strings.HasSuffix(c.BaseURL, "/") {
		return ErrInvalidBaseURL
	}
	if c.ContentDir == "" {
		return ErrNoContentDir
	}
	if c.StripeSecretKey == "" {
		return ErrNoStripeKey
	}
	if c.StripeWebhookSecret == "" {
		return ErrNoWebhookSecret
	}
	if c.CronSecret == "" {
		return ErrNoCronSecret
	}
	if c.JWTSecret == "" {
		return ErrNoJWTSecret
	}
	if c.PublicRateLimit <= 0 || c.UserRateLimit <= 0 {
		return ErrInvalidRateLimit
	}
	if c.SyncConcurrency <= 0 {
		return ErrInvalidSyncConcurrency
	}
	return nil
}
