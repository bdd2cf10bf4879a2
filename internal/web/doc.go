// Package web serves the HTTP surface: localized content payloads, sitemaps,
// Stripe checkout and webhook endpoints, and the cron-triggered sync jobs.
package web
