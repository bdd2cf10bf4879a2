// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, secrets)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, Stripe-Signature)
//   - Stripe secret keys and webhook signing secrets
//   - JWT bearer tokens and session identifiers
//   - The cron endpoint secret
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	// Create a secure logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("checkout request",
//	    "authorization", "Bearer eyJ...",  // Will be sanitized
//	    "price_id", "price_123",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
