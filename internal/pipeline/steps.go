package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonit-dev/pixelperfect/internal/billing"
	"github.com/jonit-dev/pixelperfect/internal/database"
	"github.com/jonit-dev/pixelperfect/internal/model"
	"github.com/jonit-dev/pixelperfect/internal/stripe"
)

// StripeAPI is the slice of the Stripe client the reconciliation steps use.
type StripeAPI interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
}

// StepConfig carries the dependencies shared by all steps.
type StepConfig struct {
	DB          *database.BillingDB
	Stripe      StripeAPI
	Applier     *billing.Applier
	Logger      *slog.Logger
	Concurrency int
}

// logger returns the configured logger or the default.
func (c StepConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// CheckExpirationsStep finds entitled subscriptions past their period end
// and confirms their real state against Stripe before fixing local status.
type CheckExpirationsStep struct {
	cfg StepConfig
}

// NewCheckExpirationsStep creates the check-expirations step.
func NewCheckExpirationsStep(cfg StepConfig) *CheckExpirationsStep {
	return &CheckExpirationsStep{cfg: cfg}
}

// Job implements Step.
func (s *CheckExpirationsStep) Job() model.SyncJob {
	return model.JobCheckExpirations
}

// Run implements Step.
func (s *CheckExpirationsStep) Run(ctx context.Context, run *model.SyncRun) error {
	candidates, err := s.cfg.DB.ExpirationCandidates(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to query expiration candidates: %w", err)
	}
	run.Processed = len(candidates)

	var mu sync.Mutex
	logger := s.cfg.logger()

	failed := forEachRecord(ctx, s.cfg.Concurrency, candidates,
		func(ctx context.Context, sub *model.Subscription) error {
			fixed, err := s.checkOne(ctx, sub)
			if err != nil {
				return err
			}
			if fixed {
				mu.Lock()
				run.Fixed++
				mu.Unlock()
			}
			return nil
		},
		func(sub *model.Subscription, err error) {
			logger.Warn("expiration check failed",
				"subscription", sub.StripeSubscriptionID,
				"error", err)
		})

	run.Errors = failed
	return nil
}

// checkOne confirms one candidate against Stripe. Returns whether the local
// row was changed.
func (s *CheckExpirationsStep) checkOne(ctx context.Context, sub *model.Subscription) (bool, error) {
	remote, err := s.cfg.Stripe.GetSubscription(ctx, sub.StripeSubscriptionID)
	if stripe.IsNotFound(err) {
		// Gone on Stripe's side entirely; the local row lapses.
		if err := s.cfg.DB.UpdateSubscriptionStatus(ctx, sub.StripeSubscriptionID, model.StatusExpired); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	status, err := model.ParseSubscriptionStatus(remote.Status)
	if err != nil {
		return false, fmt.Errorf("subscription %s: %w", sub.StripeSubscriptionID, err)
	}

	switch {
	case status.IsEntitled() && remote.PeriodEnd().After(time.Now()):
		// Renewed since our snapshot; refresh the period end via upsert.
		refreshed, err := s.cfg.Applier.SubscriptionFromRemote(ctx, remote, sub.UserID)
		if err != nil {
			return false, err
		}
		if _, err := s.cfg.DB.UpsertSubscription(ctx, refreshed); err != nil {
			return false, err
		}
		return true, nil
	case status == model.StatusCanceled:
		if sub.Status == model.StatusCanceled {
			return false, nil
		}
		return true, s.cfg.DB.UpdateSubscriptionStatus(ctx, sub.StripeSubscriptionID, model.StatusCanceled)
	case !status.IsEntitled():
		// Not renewed and not explicitly canceled: locally expired.
		return true, s.cfg.DB.UpdateSubscriptionStatus(ctx, sub.StripeSubscriptionID, model.StatusExpired)
	default:
		// Entitled on Stripe but the period end we hold already passed;
		// trust Stripe and refresh.
		refreshed, err := s.cfg.Applier.SubscriptionFromRemote(ctx, remote, sub.UserID)
		if err != nil {
			return false, err
		}
		if _, err := s.cfg.DB.UpsertSubscription(ctx, refreshed); err != nil {
			return false, err
		}
		return true, nil
	}
}

// RecoverWebhooksStep re-applies pending and failed webhook events until
// they process or exhaust their retry budget.
type RecoverWebhooksStep struct {
	cfg StepConfig
}

// NewRecoverWebhooksStep creates the recover-webhooks step.
func NewRecoverWebhooksStep(cfg StepConfig) *RecoverWebhooksStep {
	return &RecoverWebhooksStep{cfg: cfg}
}

// Job implements Step.
func (s *RecoverWebhooksStep) Job() model.SyncJob {
	return model.JobRecoverWebhooks
}

// Run implements Step.
func (s *RecoverWebhooksStep) Run(ctx context.Context, run *model.SyncRun) error {
	events, err := s.cfg.DB.RecoverableWebhookEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to query recoverable events: %w", err)
	}
	run.Processed = len(events)

	var mu sync.Mutex
	logger := s.cfg.logger()

	failed := forEachRecord(ctx, s.cfg.Concurrency, events,
		func(ctx context.Context, event *model.WebhookEvent) error {
			applyErr := s.cfg.Applier.ApplyEvent(ctx, event)
			if applyErr == nil || errors.Is(applyErr, billing.ErrUnhandledEventType) {
				// Unhandled types are marked processed: retrying an event we
				// will never handle just burns its budget.
				if err := s.cfg.DB.MarkWebhookEventProcessed(ctx, event.StripeEventID); err != nil {
					return err
				}
				mu.Lock()
				run.Recovered++
				mu.Unlock()
				return nil
			}

			if err := s.cfg.DB.MarkWebhookEventFailed(ctx, event.StripeEventID, applyErr.Error()); err != nil {
				return err
			}
			if event.Attempts+1 >= model.MaxWebhookAttempts {
				mu.Lock()
				run.Unrecoverable++
				mu.Unlock()
				logger.Error("webhook event exhausted retry budget",
					"event", event.StripeEventID,
					"type", event.Type,
					"error", applyErr)
				return nil
			}
			return applyErr
		},
		func(event *model.WebhookEvent, err error) {
			logger.Warn("webhook recovery failed",
				"event", event.StripeEventID,
				"type", event.Type,
				"error", err)
		})

	run.Errors = failed
	return nil
}

// ReconcileStep diffs every non-terminal local subscription against Stripe
// and repairs drift.
type ReconcileStep struct {
	cfg StepConfig
}

// NewReconcileStep creates the reconcile step.
func NewReconcileStep(cfg StepConfig) *ReconcileStep {
	return &ReconcileStep{cfg: cfg}
}

// Job implements Step.
func (s *ReconcileStep) Job() model.SyncJob {
	return model.JobReconcile
}

// Run implements Step.
func (s *ReconcileStep) Run(ctx context.Context, run *model.SyncRun) error {
	subs, err := s.cfg.DB.NonTerminalSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to query subscriptions: %w", err)
	}
	run.Processed = len(subs)

	var mu sync.Mutex
	logger := s.cfg.logger()

	failed := forEachRecord(ctx, s.cfg.Concurrency, subs,
		func(ctx context.Context, sub *model.Subscription) error {
			fixed, err := s.reconcileOne(ctx, sub)
			if err != nil {
				return err
			}
			if fixed {
				mu.Lock()
				run.Fixed++
				mu.Unlock()
			}
			return nil
		},
		func(sub *model.Subscription, err error) {
			logger.Warn("reconcile failed",
				"subscription", sub.StripeSubscriptionID,
				"error", err)
		})

	run.Errors = failed
	return nil
}

// reconcileOne fetches Stripe's view of one subscription and upserts any
// differences. Returns whether the local row was changed.
func (s *ReconcileStep) reconcileOne(ctx context.Context, sub *model.Subscription) (bool, error) {
	remote, err := s.cfg.Stripe.GetSubscription(ctx, sub.StripeSubscriptionID)
	if stripe.IsNotFound(err) {
		if err := s.cfg.DB.UpdateSubscriptionStatus(ctx, sub.StripeSubscriptionID, model.StatusExpired); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	refreshed, err := s.cfg.Applier.SubscriptionFromRemote(ctx, remote, sub.UserID)
	if err != nil {
		return false, err
	}

	if !subscriptionDiffers(sub, refreshed) {
		return false, nil
	}
	if _, err := s.cfg.DB.UpsertSubscription(ctx, refreshed); err != nil {
		return false, err
	}
	return true, nil
}

// subscriptionDiffers reports whether the Stripe view disagrees with the
// local row on any reconciled field.
func subscriptionDiffers(local, remote *model.Subscription) bool {
	return local.Status != remote.Status ||
		local.PriceID != remote.PriceID ||
		!local.Amount.Equal(remote.Amount) ||
		local.Currency != remote.Currency ||
		!local.CurrentPeriodEnd.Equal(remote.CurrentPeriodEnd)
}
