package web

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jonit-dev/pixelperfect/internal/billing"
	"github.com/jonit-dev/pixelperfect/internal/config"
	"github.com/jonit-dev/pixelperfect/internal/content"
	"github.com/jonit-dev/pixelperfect/internal/database"
	"github.com/jonit-dev/pixelperfect/internal/events"
	"github.com/jonit-dev/pixelperfect/internal/pipeline"
	"github.com/jonit-dev/pixelperfect/internal/stripe"
)

// toolsFixture is a minimal tools data file for handler tests.
const toolsFixture = `{
	"category": "tools",
	"pages": [
		{
			"slug": "upscale-image-to-4k",
			"title": {"en": "Upscale Image to 4K", "es": "Escalar imagen a 4K"},
			"description": {"en": "Turn any photo into crisp 4K."},
			"keyword": "upscale image to 4k",
			"scale_factor": 4,
			"updated_at": "2026-07-01T00:00:00Z"
		}
	],
	"meta": {"total_pages": 1, "last_updated": "2026-07-01T00:00:00Z"}
}`

// fakeStripe serves canned prices and subscriptions and records checkout
// session requests.
type fakeStripe struct {
	mu            sync.Mutex
	prices        map[string]*stripe.Price
	subscriptions map[string]*stripe.Subscription
	sessions      []stripe.CheckoutSessionParams
	sessionErr    error
}

func (f *fakeStripe) GetPrice(_ context.Context, id string) (*stripe.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.prices[id]
	if !ok {
		return nil, &stripe.APIError{StatusCode: 404, Code: "resource_missing", Message: "No such price"}
	}
	return price, nil
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, params stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	f.sessions = append(f.sessions, params)
	return &stripe.CheckoutSession{
		ID:  "cs_test_1",
		URL: "https://checkout.stripe.com/c/pay/cs_test_1",
	}, nil
}

func (f *fakeStripe) GetSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subscriptions[id]
	if !ok {
		return nil, &stripe.APIError{StatusCode: 404, Code: "resource_missing", Message: "No such subscription"}
	}
	return sub, nil
}

// testEnv bundles the server under test with its collaborators.
type testEnv struct {
	server *Server
	cfg    *config.Config
	db     *database.BillingDB
	api    *fakeStripe
}

// newTestEnv builds a fully wired server on temp storage. The configure
// callback runs before construction so tests can tighten limits or origins.
func newTestEnv(t *testing.T, configure func(*config.Config)) *testEnv {
	t.Helper()

	contentDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(contentDir, "tools.json"), []byte(toolsFixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg := config.NewConfig()
	cfg.BaseURL = "https://example.com"
	cfg.ContentDir = contentDir
	cfg.StripeSecretKey = "sk_test_123"
	cfg.StripeWebhookSecret = "whsec_test"
	cfg.CronSecret = "cron-secret"
	cfg.JWTSecret = "jwt-test-secret"
	cfg.PublicRateLimit = 1000
	cfg.UserRateLimit = 1000
	if configure != nil {
		configure(cfg)
	}

	store, err := content.NewStore(contentDir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := &fakeStripe{
		prices:        make(map[string]*stripe.Price),
		subscriptions: make(map[string]*stripe.Subscription),
	}
	applier := billing.NewApplier(db, api, events.NopPublisher{}, logger)

	runner := pipeline.NewRunner(db, pipeline.WithLogger(logger))
	stepCfg := pipeline.StepConfig{
		DB:          db,
		Stripe:      api,
		Applier:     applier,
		Logger:      logger,
		Concurrency: 2,
	}
	runner.Register(pipeline.NewCheckExpirationsStep(stepCfg))
	runner.Register(pipeline.NewRecoverWebhooksStep(stepCfg))
	runner.Register(pipeline.NewReconcileStep(stepCfg))

	server, err := NewServer(cfg, Dependencies{
		Store:   store,
		DB:      db,
		Stripe:  api,
		Applier: applier,
		Runner:  runner,
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	return &testEnv{server: server, cfg: cfg, db: db, api: api}
}

// signToken issues an HS256 token for the test JWT secret.
func signToken(t *testing.T, secret, userID string, expiresIn time.Duration) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(expiresIn).Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// decodeBody unmarshals a JSON response body.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v\n%s", err, w.Body.String())
	}
	return body
}
