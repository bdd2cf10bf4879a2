package stripe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// DefaultBaseURL is the Stripe API origin.
const DefaultBaseURL = "https://api.stripe.com"

// DefaultTimeout bounds one API round trip. Checkout session creation sits
// on the request path, so a hung Stripe call must not hold a user request
// longer than this.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a Stripe response we read. Real
// responses are a few KB; the cap guards against a misbehaving proxy.
const maxResponseBytes = 1 << 20

// ErrMissingAPIKey is returned by NewClient when no secret key is configured.
var ErrMissingAPIKey = errors.New("stripe api key cannot be empty")

// APIError is a structured error returned by the Stripe API.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Code is Stripe's machine-readable error code ("resource_missing").
	Code string

	// Type is Stripe's error class ("invalid_request_error").
	Type string

	// Message is Stripe's human-readable description.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: %s (status=%d, code=%s)", e.Message, e.StatusCode, e.Code)
}

// Client calls the Stripe REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API origin. Tests point this at an httptest
// server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a Stripe client authenticated with the given secret key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CheckoutSession is the subset of Stripe's Checkout Session object the
// checkout endpoint returns to clients.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutSessionParams describes the session to create.
type CheckoutSessionParams struct {
	// PriceID is the recurring price to subscribe to.
	PriceID string

	// SuccessURL and CancelURL are where Stripe redirects after checkout.
	SuccessURL string
	CancelURL  string

	// ClientReferenceID ties the session back to our user ID so the
	// checkout.session.completed webhook can attribute the subscription.
	ClientReferenceID string

	// Metadata is attached to the session verbatim.
	Metadata map[string]string
}

// CreateCheckoutSession creates a subscription-mode Checkout Session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.ClientReferenceID != "" {
		form.Set("client_reference_id", params.ClientReferenceID)
	}
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var session CheckoutSession
	if err := c.post(ctx, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Price is the subset of Stripe's Price object checkout validation needs.
type Price struct {
	ID         string `json:"id"`
	Active     bool   `json:"active"`
	Currency   string `json:"currency"`
	UnitAmount int64  `json:"unit_amount"`

	// Recurring is nil for one-time prices. The checkout endpoint rejects
	// those with INVALID_PRICE.
	Recurring *PriceRecurring `json:"recurring"`
}

// PriceRecurring describes a price's billing interval.
type PriceRecurring struct {
	Interval string `json:"interval"`
}

// IsRecurring reports whether the price bills on a subscription interval.
func (p *Price) IsRecurring() bool {
	return p.Recurring != nil && p.Recurring.Interval != ""
}

// GetPrice fetches a price by ID.
func (c *Client) GetPrice(ctx context.Context, priceID string) (*Price, error) {
	var price Price
	if err := c.get(ctx, "/v1/prices/"+url.PathEscape(priceID), &price); err != nil {
		return nil, err
	}
	return &price, nil
}

// Subscription is the subset of Stripe's Subscription object reconciliation
// reads.
type Subscription struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Items            struct {
		Data []struct {
			Price Price `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// PriceID returns the subscription's first item price ID, empty when Stripe
// returned no items.
func (s *Subscription) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

// PeriodEnd returns the current period end as a time.
func (s *Subscription) PeriodEnd() time.Time {
	if s.CurrentPeriodEnd == 0 {
		return time.Time{}
	}
	return time.Unix(s.CurrentPeriodEnd, 0).UTC()
}

// GetSubscription fetches a subscription by ID.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	if err := c.get(ctx, "/v1/subscriptions/"+url.PathEscape(subscriptionID), &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// IsNotFound reports whether an error is a Stripe resource_missing error.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "resource_missing"
}

// get performs an authenticated GET and decodes the response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, out)
}

// post performs an authenticated form-encoded POST and decodes the response
// into out.
func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

// do executes a request, maps non-2xx responses to APIError, and decodes
// successful bodies.
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode stripe response: %w", err)
	}
	return nil
}

// parseAPIError decodes Stripe's {"error": {...}} envelope.
func parseAPIError(statusCode int, body []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		return &APIError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected response (status %d)", statusCode),
		}
	}
	return &APIError{
		StatusCode: statusCode,
		Code:       envelope.Error.Code,
		Type:       envelope.Error.Type,
		Message:    envelope.Error.Message,
	}
}
