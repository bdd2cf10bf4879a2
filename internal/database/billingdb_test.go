package database

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jonit-dev/pixelperfect/internal/model"
)

// openTestDB opens a BillingDB in a temp directory and closes it on cleanup.
func openTestDB(t *testing.T) *BillingDB {
	t.Helper()

	bdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := bdb.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return bdb
}

func testSubscription(stripeID string) *model.Subscription {
	return &model.Subscription{
		UserID:               "user_1",
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: stripeID,
		PriceID:              "price_basic",
		Status:               model.StatusActive,
		Amount:               decimal.RequireFromString("9.99"),
		Currency:             "usd",
		CurrentPeriodEnd:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

// TestOpen tests database creation behavior.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database when allowed", func(t *testing.T) {
		t.Parallel()

		bdb, err := Open(t.TempDir(), DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer bdb.Close() //nolint:errcheck
	})

	t.Run("refuses to create when not allowed", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false}
		if _, err := Open(t.TempDir(), opts); err == nil {
			t.Error("Open() expected error for missing database")
		}
	})
}

// TestUpsertSubscription tests insert and conflict-update paths.
func TestUpsertSubscription(t *testing.T) {
	t.Parallel()

	bdb := openTestDB(t)
	ctx := context.Background()

	sub := testSubscription("sub_1")
	if _, err := bdb.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("UpsertSubscription() error = %v", err)
	}

	t.Run("round trips fields", func(t *testing.T) {
		got, err := bdb.GetSubscription(ctx, "sub_1")
		if err != nil {
			t.Fatalf("GetSubscription() error = %v", err)
		}
		if got == nil {
			t.Fatal("GetSubscription() = nil, want row")
		}
		if got.UserID != "user_1" || got.PriceID != "price_basic" {
			t.Errorf("fields = %+v", got)
		}
		if got.Status != model.StatusActive {
			t.Errorf("Status = %v", got.Status)
		}
		if !got.Amount.Equal(decimal.RequireFromString("9.99")) {
			t.Errorf("Amount = %v, want 9.99", got.Amount)
		}
		if !got.CurrentPeriodEnd.Equal(sub.CurrentPeriodEnd) {
			t.Errorf("CurrentPeriodEnd = %v, want %v", got.CurrentPeriodEnd, sub.CurrentPeriodEnd)
		}
	})

	t.Run("conflict updates in place", func(t *testing.T) {
		updated := testSubscription("sub_1")
		updated.Status = model.StatusPastDue
		updated.Amount = decimal.RequireFromString("19.99")
		if _, err := bdb.UpsertSubscription(ctx, updated); err != nil {
			t.Fatalf("UpsertSubscription() error = %v", err)
		}

		got, err := bdb.GetSubscription(ctx, "sub_1")
		if err != nil {
			t.Fatalf("GetSubscription() error = %v", err)
		}
		if got.Status != model.StatusPastDue {
			t.Errorf("Status = %v, want past_due", got.Status)
		}
		if !got.Amount.Equal(decimal.RequireFromString("19.99")) {
			t.Errorf("Amount = %v, want 19.99", got.Amount)
		}

		// Still a single row for the user.
		subs, err := bdb.GetSubscriptionsByUser(ctx, "user_1")
		if err != nil {
			t.Fatalf("GetSubscriptionsByUser() error = %v", err)
		}
		if len(subs) != 1 {
			t.Errorf("row count = %d, want 1", len(subs))
		}
	})

	t.Run("rejects invalid subscription", func(t *testing.T) {
		bad := testSubscription("")
		if _, err := bdb.UpsertSubscription(ctx, bad); err == nil {
			t.Error("UpsertSubscription() expected validation error")
		}
	})
}

// TestGetSubscriptionNotFound tests the (nil, nil) contract.
func TestGetSubscriptionNotFound(t *testing.T) {
	t.Parallel()

	bdb := openTestDB(t)
	got, err := bdb.GetSubscription(context.Background(), "sub_missing")
	if err != nil {
		t.Fatalf("GetSubscription() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetSubscription() = %+v, want nil", got)
	}
}

// TestExpirationCandidates tests the expired-candidate query.
func TestExpirationCandidates(t *testing.T) {
	t.Parallel()

	bdb := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	past := testSubscription("sub_past")
	past.CurrentPeriodEnd = now.Add(-24 * time.Hour)

	future := testSubscription("sub_future")
	future.CurrentPeriodEnd = now.Add(24 * time.Hour)

	canceledPast := testSubscription("sub_canceled")
	canceledPast.Status = model.StatusCanceled
	canceledPast.CurrentPeriodEnd = now.Add(-24 * time.Hour)

	trialingPast := testSubscription("sub_trial")
	trialingPast.Status = model.StatusTrialing
	trialingPast.CurrentPeriodEnd = now.Add(-48 * time.Hour)

	for _, sub := range []*model.Subscription{past, future, canceledPast, trialingPast} {
		if _, err := bdb.UpsertSubscription(ctx, sub); err != nil {
			t.Fatalf("UpsertSubscription(%s) error = %v", sub.StripeSubscriptionID, err)
		}
	}

	candidates, err := bdb.ExpirationCandidates(ctx, now)
	if err != nil {
		t.Fatalf("ExpirationCandidates() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidate count = %d, want 2 (%+v)", len(candidates), candidates)
	}
	// Oldest period end first.
	if candidates[0].StripeSubscriptionID != "sub_trial" {
		t.Errorf("candidates[0] = %s, want sub_trial", candidates[0].StripeSubscriptionID)
	}
	if candidates[1].StripeSubscriptionID != "sub_past" {
		t.Errorf("candidates[1] = %s, want sub_past", candidates[1].StripeSubscriptionID)
	}
}

// TestNonTerminalSubscriptions tests the reconcile candidate query.
func TestNonTerminalSubscriptions(t *testing.T) {
	t.Parallel()

	bdb := openTestDB(t)
	ctx := context.Background()

	active := testSubscription("sub_active")
	canceled := testSubscription("sub_canceled")
	canceled.Status = model.StatusCanceled
	expired := testSubscription("sub_expired")
	expired.Status = model.StatusExpired

	for _, sub := range []*model.Subscription{active, canceled, expired} {
		if _, err := bdb.UpsertSubscription(ctx, sub); err != nil {
			t.Fatalf("UpsertSubscription(%s) error = %v", sub.StripeSubscriptionID, err)
		}
	}

	subs, err := bdb.NonTerminalSubscriptions(ctx)
	if err != nil {
		t.Fatalf("NonTerminalSubscriptions() error = %v", err)
	}
	if len(subs) != 1 || subs[0].StripeSubscriptionID != "sub_active" {
		t.Errorf("NonTerminalSubscriptions() = %+v, want only sub_active", subs)
	}
}

// TestUpdateSubscriptionStatus tests targeted status updates.
func TestUpdateSubscriptionStatus(t *testing.T) {
	t.Parallel()

	bdb := openTestDB(t)
	ctx := context.Background()

	if _, err := bdb.UpsertSubscription(ctx, testSubscription("sub_1")); err != nil {
		t.Fatalf("UpsertSubscription() error = %v", err)
	}

	if err := bdb.UpdateSubscriptionStatus(ctx, "sub_1", model.StatusExpired); err != nil {
		t.Fatalf("UpdateSubscriptionStatus() error = %v", err)
	}
	got, err := bdb.GetSubscription(ctx, "sub_1")
	if err != nil {
		t.Fatalf("GetSubscription() error = %v", err)
	}
	if got.Status != model.StatusExpired {
		t.Errorf("Status = %v, want expired", got.Status)
	}

	if err := bdb.UpdateSubscriptionStatus(ctx, "sub_missing", model.StatusExpired); err == nil {
		t.Error("UpdateSubscriptionStatus() expected error for missing row")
	}
}

// TestInsertWebhookEvent tests idempotent event persistence.
func TestInsertWebhookEvent(t *testing.T) {
	t.Parallel()

	bdb := openTestDB(t)
	ctx := context.Background()

	event := &model.WebhookEvent{
		StripeEventID: "evt_1",
		Type:          "customer.subscription.updated",
		Payload:       []byte(`{"id":"evt_1"}`),
	}

	inserted, err := bdb.InsertWebhookEvent(ctx, event)
	if err != nil {
		t.Fatalf("InsertWebhookEvent() error = %v", err)
	}
	if !inserted {
		t.Error("InsertWebhookEvent() = false, want true for first delivery")
	}

	// Redelivery of the same event is dropped.
	inserted, err = bdb.InsertWebhookEvent(ctx, event)
	if err != nil {
		t.Fatalf("InsertWebhookEvent() error = %v", err)
	}
	if inserted {
		t.Error("InsertWebhookEvent() = true, want false for duplicate")
	}

	got, err := bdb.GetWebhookEvent(ctx, "evt_1")
	if err != nil {
		t.Fatalf("GetWebhookEvent() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetWebhookEvent() = nil, want row")
	}
	if got.Status != model.EventPending {
		t.Errorf("Status = %v, want pending", got.Status)
	}
	if string(got.Payload) != `{"id":"evt_1"}` {
		t.Errorf("Payload = %s", got.Payload)
	}
}

// TestWebhookEventLifecycle tests processed/failed/unrecoverable transitions.
func TestWebhookEventLifecycle(t *testing.T) {
	t.Parallel()

	bdb := openTestDB(t)
	ctx := context.Background()

	event := &model.WebhookEvent{
		StripeEventID: "evt_1",
		Type:          "invoice.payment_failed",
		Payload:       []byte(`{}`),
	}
	if _, err := bdb.InsertWebhookEvent(ctx, event); err != nil {
		t.Fatalf("InsertWebhookEvent() error = %v", err)
	}

	t.Run("failure increments attempts and keeps recoverable", func(t *testing.T) {
		if err := bdb.MarkWebhookEventFailed(ctx, "evt_1", "db busy"); err != nil {
			t.Fatalf("MarkWebhookEventFailed() error = %v", err)
		}

		got, err := bdb.GetWebhookEvent(ctx, "evt_1")
		if err != nil {
			t.Fatalf("GetWebhookEvent() error = %v", err)
		}
		if got.Status != model.EventFailed || got.Attempts != 1 || got.LastError != "db busy" {
			t.Errorf("event = %+v", got)
		}

		recoverable, err := bdb.RecoverableWebhookEvents(ctx)
		if err != nil {
			t.Fatalf("RecoverableWebhookEvents() error = %v", err)
		}
		if len(recoverable) != 1 {
			t.Errorf("recoverable count = %d, want 1", len(recoverable))
		}
	})

	t.Run("exhausting attempts marks unrecoverable", func(t *testing.T) {
		for i := 0; i < model.MaxWebhookAttempts-1; i++ {
			if err := bdb.MarkWebhookEventFailed(ctx, "evt_1", "still failing"); err != nil {
				t.Fatalf("MarkWebhookEventFailed() error = %v", err)
			}
		}

		got, err := bdb.GetWebhookEvent(ctx, "evt_1")
		if err != nil {
			t.Fatalf("GetWebhookEvent() error = %v", err)
		}
		if got.Status != model.EventUnrecoverable {
			t.Errorf("Status = %v, want unrecoverable", got.Status)
		}
		if got.Attempts != model.MaxWebhookAttempts {
			t.Errorf("Attempts = %d, want %d", got.Attempts, model.MaxWebhookAttempts)
		}

		recoverable, err := bdb.RecoverableWebhookEvents(ctx)
		if err != nil {
			t.Fatalf("RecoverableWebhookEvents() error = %v", err)
		}
		if len(recoverable) != 0 {
			t.Errorf("recoverable count = %d, want 0", len(recoverable))
		}
	})

	t.Run("processed event records timestamp", func(t *testing.T) {
		ok := &model.WebhookEvent{
			StripeEventID: "evt_2",
			Type:          "checkout.session.completed",
			Payload:       []byte(`{}`),
		}
		if _, err := bdb.InsertWebhookEvent(ctx, ok); err != nil {
			t.Fatalf("InsertWebhookEvent() error = %v", err)
		}
		if err := bdb.MarkWebhookEventProcessed(ctx, "evt_2"); err != nil {
			t.Fatalf("MarkWebhookEventProcessed() error = %v", err)
		}

		got, err := bdb.GetWebhookEvent(ctx, "evt_2")
		if err != nil {
			t.Fatalf("GetWebhookEvent() error = %v", err)
		}
		if got.Status != model.EventProcessed {
			t.Errorf("Status = %v, want processed", got.Status)
		}
		if got.ProcessedAt.IsZero() {
			t.Error("ProcessedAt is zero, want set")
		}
	})
}

// TestSyncRunPersistence tests insert, finish, and lookup of sync runs.
func TestSyncRunPersistence(t *testing.T) {
	t.Parallel()

	bdb := openTestDB(t)
	ctx := context.Background()

	run := model.NewSyncRun(model.JobCheckExpirations)
	if err := bdb.InsertSyncRun(ctx, run); err != nil {
		t.Fatalf("InsertSyncRun() error = %v", err)
	}

	run.Processed = 10
	run.Fixed = 3
	run.Errors = 1
	run.Finish()
	if err := bdb.FinishSyncRun(ctx, run); err != nil {
		t.Fatalf("FinishSyncRun() error = %v", err)
	}

	got, err := bdb.GetSyncRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetSyncRun() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetSyncRun() = nil, want row")
	}
	if got.Job != model.JobCheckExpirations {
		t.Errorf("Job = %v", got.Job)
	}
	if got.Processed != 10 || got.Fixed != 3 || got.Errors != 1 {
		t.Errorf("counters = %+v", got)
	}
	if got.FinishedAt.IsZero() {
		t.Error("FinishedAt is zero, want set")
	}

	t.Run("missing run returns nil", func(t *testing.T) {
		got, err := bdb.GetSyncRun(ctx, "no-such-run")
		if err != nil {
			t.Fatalf("GetSyncRun() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetSyncRun() = %+v, want nil", got)
		}
	})

	t.Run("finish of unknown run errors", func(t *testing.T) {
		missing := model.NewSyncRun(model.JobReconcile)
		missing.Finish()
		if err := bdb.FinishSyncRun(ctx, missing); err == nil {
			t.Error("FinishSyncRun() expected error for unknown run")
		}
	})
}

// TestRecentSyncRuns tests per-job history listing.
func TestRecentSyncRuns(t *testing.T) {
	t.Parallel()

	bdb := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run := model.NewSyncRun(model.JobRecoverWebhooks)
		run.StartedAt = time.Date(2026, 8, 20+i, 0, 0, 0, 0, time.UTC)
		if err := bdb.InsertSyncRun(ctx, run); err != nil {
			t.Fatalf("InsertSyncRun() error = %v", err)
		}
	}
	other := model.NewSyncRun(model.JobReconcile)
	if err := bdb.InsertSyncRun(ctx, other); err != nil {
		t.Fatalf("InsertSyncRun() error = %v", err)
	}

	runs, err := bdb.RecentSyncRuns(ctx, model.JobRecoverWebhooks, 2)
	if err != nil {
		t.Fatalf("RecentSyncRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("run count = %d, want 2", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("runs not newest first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
}
