package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoListenAddress is returned when the listen address is empty.
	ErrNoListenAddress = errors.New("no listen address: set --listen or the listen_address file key")

	// ErrInvalidBaseURL is returned when the base URL is missing a scheme
	// or carries a trailing slash. A trailing slash would produce double
	// slashes in every generated sitemap and canonical URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must start with http(s) and have no trailing slash")

	// ErrNoContentDir is returned when the content directory is empty.
	ErrNoContentDir = errors.New("no content directory: set --content-dir or the content_dir file key")

	// ErrNoStripeKey is returned when the Stripe secret key is missing.
	// Without it, checkout and every reconciliation job would fail on the
	// first API call.
	ErrNoStripeKey = errors.New("stripe secret key not configured (set STRIPE_SECRET_KEY)")

	// ErrNoWebhookSecret is returned when the webhook signing secret is
	// missing. Unsigned webhook processing would accept forged events.
	ErrNoWebhookSecret = errors.New("stripe webhook secret not configured (set STRIPE_WEBHOOK_SECRET)")

	// ErrNoCronSecret is returned when the cron endpoint secret is missing.
	// The cron routes mutate billing state and must never be open.
	ErrNoCronSecret = errors.New("cron secret not configured (set CRON_SECRET)")

	// ErrNoJWTSecret is returned when the JWT verification secret is missing.
	ErrNoJWTSecret = errors.New("jwt secret not configured (set JWT_SECRET)")

	// ErrInvalidRateLimit is returned when a rate limit is not positive.
	// A zero limit would reject every request.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be positive")

	// ErrInvalidSyncConcurrency is returned when sync concurrency is not
	// positive. Zero would mean no records are ever processed.
	ErrInvalidSyncConcurrency = errors.New("invalid sync concurrency: must be positive")
)
