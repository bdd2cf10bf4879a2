// Package main provides the entry point for the PixelPerfect CLI.
//
// PixelPerfect serves the marketing site for an AI image upscaler: localized
// programmatic-SEO content, sitemaps, Stripe subscription checkout, and the
// billing reconciliation jobs that keep local state in sync with Stripe.
//
// Usage:
//
//	pixelperfect serve
//	pixelperfect sync [job...]
//	pixelperfect validate
//
// See --help for all available options.
package main

// main is the entry point for PixelPerfect.
func main() {
	Execute()
}
