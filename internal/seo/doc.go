// Package seo generates XML sitemaps, page metadata, and JSON-LD structured
// data for the programmatic content pages.
//
// Every URL in a sitemap carries xhtml:link hreflang alternates for all
// supported locales plus x-default, so search engines index each locale
// variant without crawling duplicate content. Page metadata mirrors the same
// alternate set as canonical/alternate link tags.
package seo
