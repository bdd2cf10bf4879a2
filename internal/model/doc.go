// Package model defines the core data structures used throughout PixelPerfect.
//
// This package contains the following main types:
//   - Locale: A supported language/region code governing routing and content
//   - ToolPage, ComparisonPage, GuidePage: Programmatic-SEO content records
//   - Subscription: A customer's billing subscription mirrored from Stripe
//   - WebhookEvent: A persisted Stripe webhook delivery with retry state
//   - SyncRun: The outcome of one reconciliation job execution
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (content, database, pipeline, web, report)
// need to use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for API responses and
// database storage.
package model
