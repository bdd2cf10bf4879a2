package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonit-dev/pixelperfect/internal/auth"
	"github.com/jonit-dev/pixelperfect/internal/billing"
	"github.com/jonit-dev/pixelperfect/internal/config"
	"github.com/jonit-dev/pixelperfect/internal/content"
	"github.com/jonit-dev/pixelperfect/internal/database"
	"github.com/jonit-dev/pixelperfect/internal/pipeline"
	"github.com/jonit-dev/pixelperfect/internal/ratelimit"
	"github.com/jonit-dev/pixelperfect/internal/seo"
	"github.com/jonit-dev/pixelperfect/internal/stripe"
)

// StripeAPI is the slice of the Stripe client the checkout endpoint uses.
type StripeAPI interface {
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetPrice(ctx context.Context, priceID string) (*stripe.Price, error)
}

// Dependencies are the wired components the server serves from.
type Dependencies struct {
	Store   *content.Store
	DB      *database.BillingDB
	Stripe  StripeAPI
	Applier *billing.Applier
	Runner  *pipeline.Runner
	Logger  *slog.Logger
}

// Server is the PixelPerfect HTTP server.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	store   *content.Store
	seo     *seo.Generator
	db      *database.BillingDB
	stripe  StripeAPI
	applier *billing.Applier
	runner  *pipeline.Runner

	verifier *auth.Verifier

	// publicLimiter is keyed by client IP, userLimiter by user ID.
	publicLimiter *ratelimit.Limiter
	userLimiter   *ratelimit.Limiter

	router *gin.Engine
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:           cfg,
		logger:        logger,
		store:         deps.Store,
		seo:           seo.NewGenerator(cfg.BaseURL),
		db:            deps.DB,
		stripe:        deps.Stripe,
		applier:       deps.Applier,
		runner:        deps.Runner,
		verifier:      verifier,
		publicLimiter: ratelimit.NewLimiter(cfg.PublicRateLimit),
		userLimiter:   ratelimit.NewLimiter(cfg.UserRateLimit),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog(), s.securityHeaders(), s.cors(), s.locale())

	router.GET("/healthz", s.handleHealth)
	router.GET("/sitemap.xml", s.handleSitemapIndex)
	router.GET("/sitemaps/:file", s.handleCategorySitemap)

	api := router.Group("/api")
	{
		api.POST("/checkout", s.requireUser(), s.rateLimitUser(), s.handleCheckout)
		api.POST("/webhooks/stripe", s.rateLimitIP(), s.handleStripeWebhook)

		cron := api.Group("/cron", s.requireCronSecret())
		cron.POST("/:job", s.handleCronJob)
	}

	// Page routes carry locale prefixes ("/es/tools/..."), which cannot be
	// expressed as gin route parameters without colliding with the fixed
	// routes above. A single fallback handler parses the path itself.
	router.GET("/", s.handlePage)
	router.NoRoute(s.handlePage)

	s.router = router
	return s, nil
}

// Handler returns the server's HTTP handler for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLog logs each request at debug level after it completes.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
