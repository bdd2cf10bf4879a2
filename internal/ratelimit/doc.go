// Package ratelimit provides in-process keyed rate limiting for the API
// routes: per-IP for public endpoints and per-user for authenticated ones.
//
// Design decision: Limits live in process memory rather than a shared store.
// The service runs as a single instance per region and the limits exist to
// blunt abuse, not to enforce exact global quotas, so the occasional reset
// on deploy is acceptable.
package ratelimit
