package model

import (
	"time"

	"github.com/google/uuid"
)

// SyncJob names one reconciliation job. The names double as the cron route
// suffixes (/api/cron/<job>) and CLI arguments.
type SyncJob string

const (
	// JobCheckExpirations scans for subscriptions past their period end and
	// confirms their real state against Stripe.
	JobCheckExpirations SyncJob = "check-expirations"
	// JobRecoverWebhooks retries pending and failed webhook events.
	JobRecoverWebhooks SyncJob = "recover-webhooks"
	// JobReconcile diffs every non-terminal local subscription against
	// Stripe and repairs drift.
	JobReconcile SyncJob = "reconcile"
)

// AllSyncJobs lists every reconciliation job in default execution order.
// recover-webhooks runs before reconcile so replayed events land before the
// full diff; check-expirations runs first because it is the cheapest.
var AllSyncJobs = []SyncJob{
	JobCheckExpirations,
	JobRecoverWebhooks,
	JobReconcile,
}

// String returns the job name.
func (j SyncJob) String() string {
	return string(j)
}

// ParseSyncJob validates a job name.
func ParseSyncJob(s string) (SyncJob, bool) {
	for _, j := range AllSyncJobs {
		if string(j) == s {
			return j, true
		}
	}
	return "", false
}

// SyncRun records the outcome of one reconciliation job execution.
// Counters follow the partial-failure contract: a failing record increments
// Errors and the loop continues; a run only fails as a whole when it cannot
// start (e.g. the database is unreachable).
type SyncRun struct {
	// ID is the run's UUID, returned to cron callers as syncRunId.
	ID string `json:"sync_run_id"`

	// Job is the reconciliation job that ran.
	Job SyncJob `json:"job"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Processed counts records examined.
	Processed int `json:"processed"`

	// Fixed counts records whose local state was corrected
	// (check-expirations and reconcile).
	Fixed int `json:"fixed,omitempty"`

	// Recovered counts webhook events successfully replayed
	// (recover-webhooks).
	Recovered int `json:"recovered,omitempty"`

	// Unrecoverable counts webhook events that exhausted their retry
	// budget during this run (recover-webhooks).
	Unrecoverable int `json:"unrecoverable,omitempty"`

	// Errors counts records that failed without stopping the run.
	Errors int `json:"errors,omitempty"`
}

// NewSyncRun creates a SyncRun for the given job with a fresh UUID and the
// start time set to now.
func NewSyncRun(job SyncJob) *SyncRun {
	return &SyncRun{
		ID:        uuid.NewString(),
		Job:       job,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the run's end time.
func (r *SyncRun) Finish() {
	r.FinishedAt = time.Now().UTC()
}

// Duration returns the run's elapsed time, zero if the run has not finished.
func (r *SyncRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether every examined record was handled cleanly.
func (r *SyncRun) Succeeded() bool {
	return r.Errors == 0
}
