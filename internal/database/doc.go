// Package database provides SQLite-based storage for billing state.
//
// This package implements the BillingDB, which stores:
//   - Subscriptions mirrored from Stripe (the reconciled local cache)
//   - Persisted webhook event deliveries and their processing state
//   - Sync run records for the reconciliation jobs
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// Stripe remains the source of truth for subscription state; every write
// here comes from a webhook event or a reconciliation job, never from
// request handlers inventing state.
package database
