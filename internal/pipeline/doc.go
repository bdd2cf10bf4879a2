// Package pipeline executes the billing reconciliation jobs.
//
// Each job (check-expirations, recover-webhooks, reconcile) is implemented
// as a Step that fans out over its records and accumulates counters on a
// SyncRun. The Runner wraps a step execution with sync-run bookkeeping so
// the HTTP cron endpoints and the sync CLI command share one engine.
//
// Design decision: Steps follow the partial-failure contract: a single
// record's error increments the run's error counter and the loop continues.
// A step only returns an error when it cannot start at all (e.g. the
// candidate query fails), because half a reconciliation is strictly better
// than none.
package pipeline
