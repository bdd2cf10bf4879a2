// Package billing applies Stripe webhook events to local subscription state.
//
// The webhook endpoint and the recover-webhooks job share one Applier so an
// event replayed by cron takes exactly the path the live delivery took.
// Application is idempotent: subscriptions are upserted by their Stripe ID,
// so replaying a processed event converges on the same row.
package billing
