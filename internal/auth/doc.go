// Package auth verifies the bearer tokens protecting the authenticated API
// routes. Tokens are HS256 JWTs minted by the account system; the subject
// claim carries the user ID that keys rate limits and checkout attribution.
package auth
