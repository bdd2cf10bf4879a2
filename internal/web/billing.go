package web

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/jonit-dev/pixelperfect/internal/billing"
	"github.com/jonit-dev/pixelperfect/internal/model"
	"github.com/jonit-dev/pixelperfect/internal/stripe"
)

// Request body caps. Checkout bodies are a handful of fields; webhook payloads
// carry full Stripe objects and get more room.
const (
	maxCheckoutBody = 16 << 10
	maxWebhookBody  = 1 << 20
)

// checkoutRequest is the POST /api/checkout body.
type checkoutRequest struct {
	PriceID    string            `json:"priceId"`
	SuccessURL string            `json:"successUrl"`
	CancelURL  string            `json:"cancelUrl"`
	Metadata   map[string]string `json:"metadata"`
}

// errorBody builds the structured error envelope used by the checkout
// endpoint: {"error": {"code": ..., "message": ..., "fields": ...}}.
func errorBody(code, message string, fields map[string]string) gin.H {
	inner := gin.H{"code": code, "message": message}
	if len(fields) > 0 {
		inner["fields"] = fields
	}
	return gin.H{"error": inner}
}

// handleCheckout creates a Stripe Checkout Session for the authenticated
// user. The price must exist and bill on a recurring interval.
func (s *Server) handleCheckout(c *gin.Context) {
	userID := c.GetString(contextUserID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCheckoutBody)
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "Request body is not valid JSON", nil))
		return
	}

	if fields := validateCheckout(req); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "Request validation failed", fields))
		return
	}

	ctx := c.Request.Context()
	price, err := s.stripe.GetPrice(ctx, req.PriceID)
	if stripe.IsNotFound(err) {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_PRICE", "The selected price does not exist", nil))
		return
	}
	if err != nil {
		s.logger.Error("price lookup failed", "price", req.PriceID, "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL_ERROR", "Internal server error", nil))
		return
	}
	if !price.Active || !price.IsRecurring() {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_PRICE", "The selected price is not an active recurring price", nil))
		return
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = s.cfg.BaseURL + "/dashboard?checkout=success"
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = s.cfg.BaseURL + "/pricing?checkout=canceled"
	}

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	// The user attribution comes from the verified token, never the body.
	metadata["user_id"] = userID

	session, err := s.stripe.CreateCheckoutSession(ctx, stripe.CheckoutSessionParams{
		PriceID:           req.PriceID,
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		ClientReferenceID: userID,
		Metadata:          metadata,
	})
	if err != nil {
		s.logger.Error("checkout session creation failed", "user", userID, "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL_ERROR", "Internal server error", nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":       session.URL,
		"sessionId": session.ID,
	})
}

// validateCheckout returns per-field validation messages, empty when valid.
func validateCheckout(req checkoutRequest) map[string]string {
	fields := make(map[string]string)
	if req.PriceID == "" {
		fields["priceId"] = "priceId is required"
	}
	if req.SuccessURL != "" && !isHTTPURL(req.SuccessURL) {
		fields["successUrl"] = "successUrl must be an absolute http(s) URL"
	}
	if req.CancelURL != "" && !isHTTPURL(req.CancelURL) {
		fields["cancelUrl"] = "cancelUrl must be an absolute http(s) URL"
	}
	return fields
}

// isHTTPURL reports whether s looks like an absolute http(s) URL.
func isHTTPURL(s string) bool {
	return len(s) > 8 && (s[:7] == "http://" || s[:8] == "https://")
}

// handleStripeWebhook verifies, persists, and applies one Stripe event.
//
// The endpoint acknowledges with 200 once the event row is stored even when
// applying it fails: the recover-webhooks job is the retry mechanism, not
// Stripe's redelivery.
func (s *Server) handleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
		return
	}

	sigErr := stripe.VerifySignature(payload, c.GetHeader("Stripe-Signature"),
		s.cfg.StripeWebhookSecret, s.cfg.WebhookTolerance, time.Now())
	if sigErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.ID == "" || envelope.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload"})
		return
	}

	ctx := c.Request.Context()
	event := &model.WebhookEvent{
		StripeEventID: envelope.ID,
		Type:          envelope.Type,
		Payload:       payload,
	}

	inserted, err := s.db.InsertWebhookEvent(ctx, event)
	if err != nil {
		s.logger.Error("webhook event persistence failed", "event", envelope.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !inserted {
		// Stripe redelivered an event we already hold.
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	applyErr := s.applier.ApplyEvent(ctx, event)
	switch {
	case applyErr == nil, errors.Is(applyErr, billing.ErrUnhandledEventType):
		if err := s.db.MarkWebhookEventProcessed(ctx, envelope.ID); err != nil {
			s.logger.Error("webhook event status update failed", "event", envelope.ID, "error", err)
		}
	default:
		s.logger.Warn("webhook event application failed, queued for recovery",
			"event", envelope.ID,
			"type", envelope.Type,
			"error", applyErr)
		if err := s.db.MarkWebhookEventFailed(ctx, envelope.ID, applyErr.Error()); err != nil {
			s.logger.Error("webhook event status update failed", "event", envelope.ID, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handleCronJob runs one reconciliation job and reports its counters.
func (s *Server) handleCronJob(c *gin.Context) {
	job, ok := model.ParseSyncJob(c.Param("job"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	run, err := s.runner.Execute(c.Request.Context(), job)
	if err != nil {
		s.logger.Error("sync job failed", "job", job, "error", err)
		body := gin.H{"success": false, "error": "Sync job failed"}
		if run != nil {
			body["syncRunId"] = run.ID
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	body := gin.H{
		"success":   run.Succeeded(),
		"processed": run.Processed,
		"syncRunId": run.ID,
	}
	if job == model.JobRecoverWebhooks {
		body["recovered"] = run.Recovered
		body["unrecoverable"] = run.Unrecoverable
	} else {
		body["fixed"] = run.Fixed
	}
	if run.Errors > 0 {
		body["errors"] = run.Errors
	}
	c.JSON(http.StatusOK, body)
}
