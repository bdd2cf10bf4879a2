package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jonit-dev/pixelperfect/internal/database"
	"github.com/jonit-dev/pixelperfect/internal/events"
	"github.com/jonit-dev/pixelperfect/internal/model"
	"github.com/jonit-dev/pixelperfect/internal/stripe"
)

// Event application errors.
var (
	// ErrUnhandledEventType is returned for event types the applier does not
	// process. Callers mark these processed rather than failed; retrying
	// cannot help.
	ErrUnhandledEventType = errors.New("unhandled stripe event type")
	// ErrNoSubscriptionRef is returned when an event names no subscription.
	ErrNoSubscriptionRef = errors.New("event references no subscription")
	// ErrNoUserAttribution is returned when a subscription cannot be tied to
	// a user.
	ErrNoUserAttribution = errors.New("subscription has no user attribution")
)

// StripeAPI is the slice of the Stripe client the applier needs.
type StripeAPI interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
}

// Applier applies persisted webhook events to the billing database and
// publishes the resulting lifecycle changes.
type Applier struct {
	db        *database.BillingDB
	stripe    StripeAPI
	publisher events.Publisher
	logger    *slog.Logger
}

// NewApplier creates an Applier.
func NewApplier(db *database.BillingDB, stripeAPI StripeAPI, publisher events.Publisher, logger *slog.Logger) *Applier {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{
		db:        db,
		stripe:    stripeAPI,
		publisher: publisher,
		logger:    logger,
	}
}

// eventEnvelope is the outer shape of a Stripe event payload.
type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// checkoutSession is the data.object of checkout.session.completed.
type checkoutSession struct {
	ID                string            `json:"id"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// subscriptionObject is the data.object of customer.subscription.* events.
type subscriptionObject struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Items            struct {
		Data []struct {
			Price struct {
				ID         string `json:"id"`
				UnitAmount int64  `json:"unit_amount"`
				Currency   string `json:"currency"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// invoiceObject is the data.object of invoice.* events.
type invoiceObject struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
}

// ApplyEvent applies one webhook event's side effects.
//
// Idempotent by construction: every write is an upsert keyed by the Stripe
// subscription ID, so the same event applied twice converges. Callers
// translate the error into the event row's status (processed / failed /
// unrecoverable).
func (a *Applier) ApplyEvent(ctx context.Context, event *model.WebhookEvent) error {
	var envelope eventEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return fmt.Errorf("failed to parse event payload: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		return a.applyCheckoutCompleted(ctx, event, envelope.Data.Object)
	case "customer.subscription.created",
		"customer.subscription.updated":
		return a.applySubscriptionChange(ctx, event, envelope.Data.Object)
	case "customer.subscription.deleted":
		return a.applySubscriptionDeleted(ctx, event, envelope.Data.Object)
	case "invoice.payment_failed":
		return a.applyPaymentFailed(ctx, event, envelope.Data.Object)
	default:
		return fmt.Errorf("%w: %s", ErrUnhandledEventType, event.Type)
	}
}

// applyCheckoutCompleted records the subscription created by a completed
// checkout. The session object carries only the subscription ID, so the
// authoritative state comes from a Stripe fetch.
func (a *Applier) applyCheckoutCompleted(ctx context.Context, event *model.WebhookEvent, object json.RawMessage) error {
	var session checkoutSession
	if err := json.Unmarshal(object, &session); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}
	if session.Subscription == "" {
		return ErrNoSubscriptionRef
	}

	userID := session.ClientReferenceID
	if userID == "" {
		userID = session.Metadata["user_id"]
	}

	remote, err := a.stripe.GetSubscription(ctx, session.Subscription)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription %s: %w", session.Subscription, err)
	}

	sub, err := a.subscriptionFromRemote(ctx, remote, userID)
	if err != nil {
		return err
	}
	return a.upsertAndPublish(ctx, sub, "subscription.created", event.StripeEventID)
}

// applySubscriptionChange upserts local state from a subscription event
// object.
func (a *Applier) applySubscriptionChange(ctx context.Context, event *model.WebhookEvent, object json.RawMessage) error {
	var remote subscriptionObject
	if err := json.Unmarshal(object, &remote); err != nil {
		return fmt.Errorf("failed to parse subscription object: %w", err)
	}
	if remote.ID == "" {
		return ErrNoSubscriptionRef
	}

	status, err := model.ParseSubscriptionStatus(remote.Status)
	if err != nil {
		return fmt.Errorf("subscription %s: %w", remote.ID, err)
	}

	sub := &model.Subscription{
		UserID:               remote.Metadata["user_id"],
		StripeCustomerID:     remote.Customer,
		StripeSubscriptionID: remote.ID,
		Status:               status,
	}
	if remote.CurrentPeriodEnd > 0 {
		sub.CurrentPeriodEnd = time.Unix(remote.CurrentPeriodEnd, 0).UTC()
	}
	if len(remote.Items.Data) > 0 {
		price := remote.Items.Data[0].Price
		sub.PriceID = price.ID
		sub.Amount = model.AmountFromMinorUnits(price.UnitAmount)
		sub.Currency = price.Currency
	}

	if err := a.fillUserID(ctx, sub); err != nil {
		return err
	}
	return a.upsertAndPublish(ctx, sub, "subscription.updated", event.StripeEventID)
}

// applySubscriptionDeleted marks the subscription canceled.
func (a *Applier) applySubscriptionDeleted(ctx context.Context, event *model.WebhookEvent, object json.RawMessage) error {
	var remote subscriptionObject
	if err := json.Unmarshal(object, &remote); err != nil {
		return fmt.Errorf("failed to parse subscription object: %w", err)
	}
	if remote.ID == "" {
		return ErrNoSubscriptionRef
	}

	existing, err := a.db.GetSubscription(ctx, remote.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		// Deletion of a subscription we never stored: nothing to cancel.
		a.logger.Debug("deletion for unknown subscription", "subscription", remote.ID)
		return nil
	}

	if err := a.db.UpdateSubscriptionStatus(ctx, remote.ID, model.StatusCanceled); err != nil {
		return err
	}
	existing.Status = model.StatusCanceled
	a.publish(ctx, existing, "subscription.canceled", event.StripeEventID)
	return nil
}

// applyPaymentFailed marks the invoiced subscription past due.
func (a *Applier) applyPaymentFailed(ctx context.Context, event *model.WebhookEvent, object json.RawMessage) error {
	var invoice invoiceObject
	if err := json.Unmarshal(object, &invoice); err != nil {
		return fmt.Errorf("failed to parse invoice object: %w", err)
	}
	if invoice.Subscription == "" {
		return ErrNoSubscriptionRef
	}

	existing, err := a.db.GetSubscription(ctx, invoice.Subscription)
	if err != nil {
		return err
	}
	if existing == nil {
		// The subscription event may arrive after the invoice event; leave
		// the row to be created by it or by reconciliation.
		a.logger.Debug("payment failure for unknown subscription", "subscription", invoice.Subscription)
		return nil
	}
	if existing.Status.IsTerminal() {
		return nil
	}

	if err := a.db.UpdateSubscriptionStatus(ctx, invoice.Subscription, model.StatusPastDue); err != nil {
		return err
	}
	existing.Status = model.StatusPastDue
	a.publish(ctx, existing, "subscription.past_due", event.StripeEventID)
	return nil
}

// SubscriptionFromRemote converts a fetched Stripe subscription into the
// local model. The reconcile job uses it too.
func (a *Applier) SubscriptionFromRemote(ctx context.Context, remote *stripe.Subscription, userID string) (*model.Subscription, error) {
	return a.subscriptionFromRemote(ctx, remote, userID)
}

func (a *Applier) subscriptionFromRemote(ctx context.Context, remote *stripe.Subscription, userID string) (*model.Subscription, error) {
	status, err := model.ParseSubscriptionStatus(remote.Status)
	if err != nil {
		return nil, fmt.Errorf("subscription %s: %w", remote.ID, err)
	}

	sub := &model.Subscription{
		UserID:               userID,
		StripeCustomerID:     remote.Customer,
		StripeSubscriptionID: remote.ID,
		PriceID:              remote.PriceID(),
		Status:               status,
		CurrentPeriodEnd:     remote.PeriodEnd(),
	}
	if sub.UserID == "" {
		sub.UserID = remote.Metadata["user_id"]
	}
	if len(remote.Items.Data) > 0 {
		price := remote.Items.Data[0].Price
		sub.Amount = model.AmountFromMinorUnits(price.UnitAmount)
		sub.Currency = price.Currency
	}

	if err := a.fillUserID(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// fillUserID resolves the owning user for a subscription that arrived
// without attribution, falling back to the stored row. Stripe objects only
// carry our user ID when checkout set it in metadata, so updates to old
// subscriptions lean on the existing row.
func (a *Applier) fillUserID(ctx context.Context, sub *model.Subscription) error {
	if sub.UserID != "" {
		return nil
	}

	existing, err := a.db.GetSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		return err
	}
	if existing == nil || existing.UserID == "" {
		return fmt.Errorf("%w: %s", ErrNoUserAttribution, sub.StripeSubscriptionID)
	}
	sub.UserID = existing.UserID
	return nil
}

// upsertAndPublish writes the subscription and emits a lifecycle event.
func (a *Applier) upsertAndPublish(ctx context.Context, sub *model.Subscription, eventType, stripeEventID string) error {
	if _, err := a.db.UpsertSubscription(ctx, sub); err != nil {
		return err
	}
	a.publish(ctx, sub, eventType, stripeEventID)
	return nil
}

// publish emits a lifecycle event, logging instead of failing on error.
func (a *Applier) publish(ctx context.Context, sub *model.Subscription, eventType, stripeEventID string) {
	err := a.publisher.Publish(ctx, events.SubscriptionEvent{
		EventType:     eventType,
		StripeEventID: stripeEventID,
		Subscription:  sub,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		a.logger.Warn("failed to publish subscription event",
			"event_type", eventType,
			"subscription", sub.StripeSubscriptionID,
			"error", err)
	}
}
