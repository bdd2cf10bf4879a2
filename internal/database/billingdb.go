package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jonit-dev/pixelperfect/internal/model"
)

// BillingDB provides SQLite-based storage for subscriptions, webhook events,
// and sync runs.
//
// Design decision: We use a single database file rather than one per concern.
// Webhook recovery and reconciliation touch subscriptions and events in the
// same run, and a single file keeps those writes in one WAL and one backup.
type BillingDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures BillingDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a BillingDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*BillingDB, error) {
	dbPath := filepath.Join(dbDir, "pixelperfect.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; multiple readers go through WAL.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	bdb := &BillingDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := bdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return bdb, nil
}

// Close closes the database connection.
func (bdb *BillingDB) Close() error {
	return bdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (bdb *BillingDB) createTables() error {
	schema := `
	-- Subscriptions mirror Stripe subscription state
	CREATE TABLE IF NOT EXISTS subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		stripe_customer_id TEXT NOT NULL,
		stripe_subscription_id TEXT NOT NULL UNIQUE,
		price_id TEXT NOT NULL,
		status TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL DEFAULT 'usd',
		current_period_end DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_subs_user ON subscriptions(user_id);
	CREATE INDEX IF NOT EXISTS idx_subs_status ON subscriptions(status);
	CREATE INDEX IF NOT EXISTS idx_subs_period_end ON subscriptions(current_period_end);

	-- Webhook events persist Stripe deliveries for idempotent processing
	CREATE TABLE IF NOT EXISTS webhook_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stripe_event_id TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		received_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_events_status ON webhook_events(status);
	CREATE INDEX IF NOT EXISTS idx_events_received ON webhook_events(received_at);

	-- Sync runs record reconciliation job executions
	CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		job TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		processed INTEGER NOT NULL DEFAULT 0,
		fixed INTEGER NOT NULL DEFAULT 0,
		recovered INTEGER NOT NULL DEFAULT 0,
		unrecoverable INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_job ON sync_runs(job);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON sync_runs(started_at);
	`

	_, err := bdb.db.ExecContext(context.Background(), schema)
	return err
}

// UpsertSubscription inserts or updates a subscription keyed by its Stripe
// subscription ID. Webhook handlers and the reconcile job both funnel
// through here, so out-of-order updates converge on the latest Stripe state.
func (bdb *BillingDB) UpsertSubscription(ctx context.Context, sub *model.Subscription) (int64, error) {
	if err := sub.Validate(); err != nil {
		return 0, fmt.Errorf("invalid subscription: %w", err)
	}

	query := `
	INSERT INTO subscriptions (user_id, stripe_customer_id, stripe_subscription_id, price_id, status, amount, currency, current_period_end)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(stripe_subscription_id) DO UPDATE SET
		user_id = excluded.user_id,
		stripe_customer_id = excluded.stripe_customer_id,
		price_id = excluded.price_id,
		status = excluded.status,
		amount = excluded.amount,
		currency = excluded.currency,
		current_period_end = excluded.current_period_end,
		updated_at = CURRENT_TIMESTAMP
	`

	result, err := bdb.db.ExecContext(ctx, query,
		sub.UserID,
		sub.StripeCustomerID,
		sub.StripeSubscriptionID,
		sub.PriceID,
		string(sub.Status),
		sub.Amount.String(),
		sub.Currency,
		formatTime(sub.CurrentPeriodEnd),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return result.LastInsertId()
}

// GetSubscription retrieves a subscription by its Stripe subscription ID.
// Returns (nil, nil) when no row exists.
func (bdb *BillingDB) GetSubscription(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error) {
	query := subscriptionSelect + ` WHERE stripe_subscription_id = ?`
	row := bdb.db.QueryRowContext(ctx, query, stripeSubscriptionID)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// GetSubscriptionsByUser retrieves all subscriptions belonging to a user,
// newest first.
func (bdb *BillingDB) GetSubscriptionsByUser(ctx context.Context, userID string) ([]*model.Subscription, error) {
	query := subscriptionSelect + ` WHERE user_id = ? ORDER BY created_at DESC`
	return bdb.querySubscriptions(ctx, query, userID)
}

// ExpirationCandidates returns entitled subscriptions whose paid period
// ended before now. The check-expirations job confirms each against Stripe
// before changing anything locally.
func (bdb *BillingDB) ExpirationCandidates(ctx context.Context, now time.Time) ([]*model.Subscription, error) {
	query := subscriptionSelect + `
	WHERE status IN (?, ?) AND current_period_end IS NOT NULL AND current_period_end < ?
	ORDER BY current_period_end ASC`
	return bdb.querySubscriptions(ctx, query,
		string(model.StatusActive),
		string(model.StatusTrialing),
		formatTime(now),
	)
}

// NonTerminalSubscriptions returns every subscription the reconcile job
// should diff against Stripe.
func (bdb *BillingDB) NonTerminalSubscriptions(ctx context.Context) ([]*model.Subscription, error) {
	query := subscriptionSelect + `
	WHERE status NOT IN (?, ?)
	ORDER BY updated_at ASC`
	return bdb.querySubscriptions(ctx, query,
		string(model.StatusCanceled),
		string(model.StatusExpired),
	)
}

// UpdateSubscriptionStatus sets the status of a subscription by Stripe
// subscription ID.
func (bdb *BillingDB) UpdateSubscriptionStatus(ctx context.Context, stripeSubscriptionID string, status model.SubscriptionStatus) error {
	query := `
	UPDATE subscriptions
	SET status = ?, updated_at = CURRENT_TIMESTAMP
	WHERE stripe_subscription_id = ?
	`

	result, err := bdb.db.ExecContext(ctx, query, string(status), stripeSubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("subscription %s not found", stripeSubscriptionID)
	}
	return nil
}

// subscriptionSelect is the shared column list for subscription queries.
const subscriptionSelect = `
	SELECT id, user_id, stripe_customer_id, stripe_subscription_id, price_id, status, amount, currency, current_period_end, created_at, updated_at
	FROM subscriptions`

// rowScanner abstracts *sql.Row and *sql.Rows for scanSubscription.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSubscription scans one subscription row.
func scanSubscription(row rowScanner) (*model.Subscription, error) {
	var sub model.Subscription
	var status, amount string
	var periodEnd, createdAt, updatedAt sql.NullString

	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.StripeCustomerID,
		&sub.StripeSubscriptionID,
		&sub.PriceID,
		&status,
		&amount,
		&sub.Currency,
		&periodEnd,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := model.ParseSubscriptionStatus(status)
	if err != nil {
		return nil, fmt.Errorf("stored subscription %s: %w", sub.StripeSubscriptionID, err)
	}
	sub.Status = parsed

	sub.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("stored subscription %s has bad amount %q: %w", sub.StripeSubscriptionID, amount, err)
	}

	if periodEnd.Valid {
		sub.CurrentPeriodEnd = parseTimestamp(periodEnd.String)
	}
	if createdAt.Valid {
		sub.CreatedAt = parseTimestamp(createdAt.String)
	}
	if updatedAt.Valid {
		sub.UpdatedAt = parseTimestamp(updatedAt.String)
	}

	return &sub, nil
}

// querySubscriptions runs a subscription query and scans all rows.
func (bdb *BillingDB) querySubscriptions(ctx context.Context, query string, args ...any) ([]*model.Subscription, error) {
	rows, err := bdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var results []*model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		results = append(results, sub)
	}

	return results, rows.Err()
}

// InsertWebhookEvent persists a webhook delivery, ignoring duplicates by
// Stripe event ID. Returns true when the row was inserted, false when the
// event was already stored (a Stripe redelivery).
func (bdb *BillingDB) InsertWebhookEvent(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	if err := event.Validate(); err != nil {
		return false, fmt.Errorf("invalid webhook event: %w", err)
	}

	query := `
	INSERT INTO webhook_events (stripe_event_id, type, payload, status, attempts, last_error)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(stripe_event_id) DO NOTHING
	`

	result, err := bdb.db.ExecContext(ctx, query,
		event.StripeEventID,
		event.Type,
		string(event.Payload),
		string(model.EventPending),
		event.Attempts,
		event.LastError,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert webhook event: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check insert result: %w", err)
	}
	return affected > 0, nil
}

// GetWebhookEvent retrieves a webhook event by its Stripe event ID.
// Returns (nil, nil) when no row exists.
func (bdb *BillingDB) GetWebhookEvent(ctx context.Context, stripeEventID string) (*model.WebhookEvent, error) {
	query := webhookEventSelect + ` WHERE stripe_event_id = ?`
	row := bdb.db.QueryRowContext(ctx, query, stripeEventID)

	event, err := scanWebhookEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}
	return event, nil
}

// RecoverableWebhookEvents returns pending and failed events that still have
// retry budget, oldest first so recovery replays in delivery order.
func (bdb *BillingDB) RecoverableWebhookEvents(ctx context.Context) ([]*model.WebhookEvent, error) {
	query := webhookEventSelect + `
	WHERE status IN (?, ?) AND attempts < ?
	ORDER BY received_at ASC`

	rows, err := bdb.db.QueryContext(ctx, query,
		string(model.EventPending),
		string(model.EventFailed),
		model.MaxWebhookAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook events: %w", err)
	}
	defer rows.Close()

	var results []*model.WebhookEvent
	for rows.Next() {
		event, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook event: %w", err)
		}
		results = append(results, event)
	}

	return results, rows.Err()
}

// MarkWebhookEventProcessed records a successful processing attempt.
func (bdb *BillingDB) MarkWebhookEventProcessed(ctx context.Context, stripeEventID string) error {
	query := `
	UPDATE webhook_events
	SET status = ?, attempts = attempts + 1, last_error = '', processed_at = CURRENT_TIMESTAMP
	WHERE stripe_event_id = ?
	`
	return bdb.updateWebhookEvent(ctx, query, string(model.EventProcessed), stripeEventID)
}

// MarkWebhookEventFailed records a failed processing attempt. When the
// attempt count reaches the retry cap the event goes straight to
// unrecoverable so recovery queries stop returning it.
func (bdb *BillingDB) MarkWebhookEventFailed(ctx context.Context, stripeEventID, lastError string) error {
	query := `
	UPDATE webhook_events
	SET attempts = attempts + 1,
		last_error = ?,
		status = CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END
	WHERE stripe_event_id = ?
	`
	return bdb.updateWebhookEvent(ctx, query,
		lastError,
		model.MaxWebhookAttempts,
		string(model.EventUnrecoverable),
		string(model.EventFailed),
		stripeEventID,
	)
}

// updateWebhookEvent runs an update that must affect exactly one event row.
func (bdb *BillingDB) updateWebhookEvent(ctx context.Context, query string, args ...any) error {
	result, err := bdb.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update webhook event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return errors.New("webhook event not found")
	}
	return nil
}

// webhookEventSelect is the shared column list for webhook event queries.
const webhookEventSelect = `
	SELECT id, stripe_event_id, type, payload, status, attempts, last_error, received_at, processed_at
	FROM webhook_events`

// scanWebhookEvent scans one webhook event row.
func scanWebhookEvent(row rowScanner) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	var payload, status string
	var lastError, receivedAt, processedAt sql.NullString

	err := row.Scan(
		&event.ID,
		&event.StripeEventID,
		&event.Type,
		&payload,
		&status,
		&event.Attempts,
		&lastError,
		&receivedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Payload = []byte(payload)
	event.Status = model.WebhookEventStatus(status)
	if lastError.Valid {
		event.LastError = lastError.String
	}
	if receivedAt.Valid {
		event.ReceivedAt = parseTimestamp(receivedAt.String)
	}
	if processedAt.Valid && processedAt.String != "" {
		event.ProcessedAt = parseTimestamp(processedAt.String)
	}

	return &event, nil
}

// InsertSyncRun records the start of a reconciliation job run.
func (bdb *BillingDB) InsertSyncRun(ctx context.Context, run *model.SyncRun) error {
	query := `
	INSERT INTO sync_runs (id, job, started_at)
	VALUES (?, ?, ?)
	`

	_, err := bdb.db.ExecContext(ctx, query,
		run.ID,
		string(run.Job),
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

// FinishSyncRun stores a run's final counters and end time.
func (bdb *BillingDB) FinishSyncRun(ctx context.Context, run *model.SyncRun) error {
	query := `
	UPDATE sync_runs
	SET finished_at = ?, processed = ?, fixed = ?, recovered = ?, unrecoverable = ?, errors = ?
	WHERE id = ?
	`

	result, err := bdb.db.ExecContext(ctx, query,
		formatTime(run.FinishedAt),
		run.Processed,
		run.Fixed,
		run.Recovered,
		run.Unrecoverable,
		run.Errors,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sync run %s not found", run.ID)
	}
	return nil
}

// GetSyncRun retrieves a sync run by ID. Returns (nil, nil) when no row exists.
func (bdb *BillingDB) GetSyncRun(ctx context.Context, id string) (*model.SyncRun, error) {
	query := `
	SELECT id, job, started_at, finished_at, processed, fixed, recovered, unrecoverable, errors
	FROM sync_runs
	WHERE id = ?
	`

	var run model.SyncRun
	var job string
	var startedAt string
	var finishedAt sql.NullString

	err := bdb.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&job,
		&startedAt,
		&finishedAt,
		&run.Processed,
		&run.Fixed,
		&run.Recovered,
		&run.Unrecoverable,
		&run.Errors,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync run: %w", err)
	}

	run.Job = model.SyncJob(job)
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid && finishedAt.String != "" {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}

	return &run, nil
}

// RecentSyncRuns returns the latest runs for a job, newest first.
func (bdb *BillingDB) RecentSyncRuns(ctx context.Context, job model.SyncJob, limit int) ([]*model.SyncRun, error) {
	query := `
	SELECT id, job, started_at, finished_at, processed, fixed, recovered, unrecoverable, errors
	FROM sync_runs
	WHERE job = ?
	ORDER BY started_at DESC
	LIMIT ?
	`

	rows, err := bdb.db.QueryContext(ctx, query, string(job), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var results []*model.SyncRun
	for rows.Next() {
		var run model.SyncRun
		var jobName, startedAt string
		var finishedAt sql.NullString

		err := rows.Scan(
			&run.ID,
			&jobName,
			&startedAt,
			&finishedAt,
			&run.Processed,
			&run.Fixed,
			&run.Recovered,
			&run.Unrecoverable,
			&run.Errors,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}

		run.Job = model.SyncJob(jobName)
		run.StartedAt = parseTimestamp(startedAt)
		if finishedAt.Valid && finishedAt.String != "" {
			run.FinishedAt = parseTimestamp(finishedAt.String)
		}
		results = append(results, &run)
	}

	return results, rows.Err()
}

// formatTime renders a time for storage, empty for the zero time so NULL
// columns stay NULL.
func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
