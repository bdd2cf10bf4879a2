package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Subscription errors.
var (
	// ErrEmptySubscriptionID is returned when the Stripe subscription ID is empty.
	ErrEmptySubscriptionID = errors.New("stripe subscription id cannot be empty")
	// ErrEmptyUserID is returned when the owning user ID is empty.
	ErrEmptyUserID = errors.New("user id cannot be empty")
	// ErrUnknownSubscriptionStatus is returned for statuses outside the known set.
	ErrUnknownSubscriptionStatus = errors.New("unknown subscription status")
)

// SubscriptionStatus is the lifecycle state of a subscription. The values
// mirror Stripe's subscription statuses plus a local "expired" state that
// the check-expirations job assigns when a period lapses without renewal.
//
// Design decision: We use string constants rather than iota because these
// values round-trip through the database and JSON API responses, and the
// Stripe API already defines the canonical string forms.
type SubscriptionStatus string

const (
	// StatusActive is a paid, current subscription.
	StatusActive SubscriptionStatus = "active"
	// StatusTrialing is a subscription inside its trial window.
	StatusTrialing SubscriptionStatus = "trialing"
	// StatusPastDue is a subscription with a failed renewal payment that
	// Stripe is still retrying.
	StatusPastDue SubscriptionStatus = "past_due"
	// StatusCanceled is a subscription the customer or Stripe terminated.
	StatusCanceled SubscriptionStatus = "canceled"
	// StatusExpired is the local terminal state for subscriptions whose
	// period end passed and Stripe confirms no renewal. Stripe itself has
	// no "expired" status; this exists so dashboards can distinguish
	// lapsed subscriptions from explicitly canceled ones.
	StatusExpired SubscriptionStatus = "expired"
	// StatusIncomplete is a subscription whose initial payment has not
	// completed yet.
	StatusIncomplete SubscriptionStatus = "incomplete"
)

// allSubscriptionStatuses is the known status set, used by ParseSubscriptionStatus.
var allSubscriptionStatuses = []SubscriptionStatus{
	StatusActive,
	StatusTrialing,
	StatusPastDue,
	StatusCanceled,
	StatusExpired,
	StatusIncomplete,
}

// String returns the status as stored and serialized.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsEntitled reports whether the status grants product access.
// Past-due keeps access while Stripe retries payment; this matches the
// grace-period behavior customers expect from card failures.
func (s SubscriptionStatus) IsEntitled() bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is an end state that reconciliation
// never transitions out of locally. Stripe remains the source of truth, so
// the reconcile job may still resurrect a subscription Stripe reports active.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCanceled || s == StatusExpired
}

// ParseSubscriptionStatus validates a status string.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	for _, known := range allSubscriptionStatuses {
		if string(known) == s {
			return known, nil
		}
	}
	return "", ErrUnknownSubscriptionStatus
}

// Subscription mirrors one Stripe subscription in the local database.
// Stripe is the source of truth; rows here are a reconciled cache that the
// dashboard and entitlement checks read without a Stripe round trip.
type Subscription struct {
	// ID is the local database row ID.
	ID int64 `json:"id"`

	// UserID identifies the owning user (JWT subject).
	UserID string `json:"user_id"`

	// StripeCustomerID is the Stripe customer ("cus_...").
	StripeCustomerID string `json:"stripe_customer_id"`

	// StripeSubscriptionID is the Stripe subscription ("sub_..."), unique.
	StripeSubscriptionID string `json:"stripe_subscription_id"`

	// PriceID is the Stripe price the subscription bills against.
	PriceID string `json:"price_id"`

	// Status is the reconciled lifecycle state.
	Status SubscriptionStatus `json:"status"`

	// Amount is the recurring charge in major currency units.
	// Decimal avoids the float rounding drift that plagues money math;
	// Stripe reports integer minor units and this field stores the
	// converted value (e.g. 999 cents -> 9.99).
	Amount decimal.Decimal `json:"amount"`

	// Currency is the ISO 4217 lowercase currency code ("usd").
	Currency string `json:"currency"`

	// CurrentPeriodEnd is when the paid period lapses. The
	// check-expirations job scans for entitled rows past this time.
	CurrentPeriodEnd time.Time `json:"current_period_end"`

	// CreatedAt and UpdatedAt are local bookkeeping timestamps.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields required before persisting.
func (s *Subscription) Validate() error {
	if s.StripeSubscriptionID == "" {
		return ErrEmptySubscriptionID
	}
	if s.UserID == "" {
		return ErrEmptyUserID
	}
	if _, err := ParseSubscriptionStatus(string(s.Status)); err != nil {
		return err
	}
	return nil
}

// AmountFromMinorUnits converts Stripe's integer minor-unit amount into the
// decimal major-unit form stored on Subscription (999 -> 9.99).
func AmountFromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}
