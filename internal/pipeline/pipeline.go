package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonit-dev/pixelperfect/internal/database"
	"github.com/jonit-dev/pixelperfect/internal/model"
)

// Step defines one reconciliation job.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state (clients, concurrency)
// 2. It provides a Job() method for routing and logging
// 3. It's more extensible for future jobs
type Step interface {
	// Run executes the job, accumulating counters on the run.
	// Record-level failures increment run.Errors and do not abort; only a
	// failure to start (e.g. a candidate query error) is returned.
	Run(ctx context.Context, run *model.SyncRun) error

	// Job returns the job this step implements.
	Job() model.SyncJob
}

// Runner executes steps with sync-run bookkeeping.
type Runner struct {
	db     *database.BillingDB
	logger *slog.Logger
	steps  map[model.SyncJob]Step
	order  []model.SyncJob
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets a custom logger for the runner.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner over the given database.
// Steps are registered with Register.
func NewRunner(db *database.BillingDB, opts ...RunnerOption) *Runner {
	r := &Runner{
		db:    db,
		steps: make(map[model.SyncJob]Step),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Register adds a step, replacing any previous step for the same job.
func (r *Runner) Register(step Step) {
	job := step.Job()
	if _, exists := r.steps[job]; !exists {
		r.order = append(r.order, job)
	}
	r.steps[job] = step
}

// Jobs returns the registered jobs in registration order.
func (r *Runner) Jobs() []model.SyncJob {
	return append([]model.SyncJob(nil), r.order...)
}

// Execute runs one job: it records the run start, executes the step, and
// persists the final counters. The returned SyncRun is always non-nil when
// the run started, even if the step failed partway.
func (r *Runner) Execute(ctx context.Context, job model.SyncJob) (*model.SyncRun, error) {
	step, ok := r.steps[job]
	if !ok {
		return nil, fmt.Errorf("no step registered for job %s", job)
	}

	run := model.NewSyncRun(job)
	if err := r.db.InsertSyncRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record sync run: %w", err)
	}

	r.logger.Info("sync run started",
		"job", job,
		"sync_run_id", run.ID)

	stepErr := step.Run(ctx, run)

	run.Finish()
	if err := r.db.FinishSyncRun(ctx, run); err != nil {
		r.logger.Error("failed to persist sync run result",
			"job", job,
			"sync_run_id", run.ID,
			"error", err)
	}

	if stepErr != nil {
		r.logger.Error("sync run failed",
			"job", job,
			"sync_run_id", run.ID,
			"error", stepErr)
		return run, stepErr
	}

	r.logger.Info("sync run finished",
		"job", job,
		"sync_run_id", run.ID,
		"processed", run.Processed,
		"fixed", run.Fixed,
		"recovered", run.Recovered,
		"unrecoverable", run.Unrecoverable,
		"errors", run.Errors,
		"duration", run.Duration())

	return run, nil
}

// ExecuteAll runs every registered job in registration order and returns
// their runs. A failing job does not stop the remaining jobs; its error is
// reflected in the run counters and the last error is returned.
func (r *Runner) ExecuteAll(ctx context.Context) ([]*model.SyncRun, error) {
	var runs []*model.SyncRun
	var lastErr error

	for _, job := range r.order {
		select {
		case <-ctx.Done():
			return runs, ctx.Err()
		default:
		}

		run, err := r.Execute(ctx, job)
		if run != nil {
			runs = append(runs, run)
		}
		if err != nil {
			lastErr = err
		}
	}

	return runs, lastErr
}
