package model

import (
	"errors"
	"time"
)

// Webhook event errors.
var (
	// ErrEmptyEventID is returned when the Stripe event ID is empty.
	ErrEmptyEventID = errors.New("stripe event id cannot be empty")
	// ErrEmptyEventType is returned when the event type is empty.
	ErrEmptyEventType = errors.New("stripe event type cannot be empty")
)

// MaxWebhookAttempts caps how many times the recover-webhooks job retries a
// failed event before marking it unrecoverable. Five attempts spread over
// the cron schedule covers transient database and Stripe outages; events
// still failing after that need human attention, not more retries.
const MaxWebhookAttempts = 5

// WebhookEventStatus is the processing state of a persisted webhook delivery.
type WebhookEventStatus string

const (
	// EventPending is a stored event not yet applied.
	EventPending WebhookEventStatus = "pending"
	// EventProcessed is an event whose side effects were applied.
	EventProcessed WebhookEventStatus = "processed"
	// EventFailed is an event whose handler errored; the recover-webhooks
	// job retries these until MaxWebhookAttempts.
	EventFailed WebhookEventStatus = "failed"
	// EventUnrecoverable is an event that exhausted its retry budget.
	EventUnrecoverable WebhookEventStatus = "unrecoverable"
)

// String returns the status as stored and serialized.
func (s WebhookEventStatus) String() string {
	return string(s)
}

// WebhookEvent is a persisted Stripe webhook delivery.
//
// Design decision: Events are persisted before their side effects run, and
// the webhook endpoint acknowledges Stripe once the row exists. Recovery is
// therefore driven by our own cron job rather than Stripe's redelivery,
// which keeps retry cadence and the unrecoverable cutoff under our control
// and makes processing idempotent by event ID.
type WebhookEvent struct {
	// ID is the local database row ID.
	ID int64 `json:"id"`

	// StripeEventID is the Stripe event ("evt_..."), unique. Duplicate
	// deliveries are dropped on insert.
	StripeEventID string `json:"stripe_event_id"`

	// Type is the Stripe event type ("customer.subscription.updated").
	Type string `json:"type"`

	// Payload is the raw event JSON as delivered.
	Payload []byte `json:"-"`

	// Status is the processing state.
	Status WebhookEventStatus `json:"status"`

	// Attempts counts processing attempts, including the initial inline one.
	Attempts int `json:"attempts"`

	// LastError is the most recent handler error message, empty on success.
	LastError string `json:"last_error,omitempty"`

	// ReceivedAt is when the delivery was persisted.
	ReceivedAt time.Time `json:"received_at"`

	// ProcessedAt is when the event reached a processed state, zero otherwise.
	ProcessedAt time.Time `json:"processed_at,omitzero"`
}

// Validate checks the fields required before persisting.
func (e *WebhookEvent) Validate() error {
	if e.StripeEventID == "" {
		return ErrEmptyEventID
	}
	if e.Type == "" {
		return ErrEmptyEventType
	}
	return nil
}

// Exhausted reports whether the event has used up its retry budget.
func (e *WebhookEvent) Exhausted() bool {
	return e.Attempts >= MaxWebhookAttempts
}
