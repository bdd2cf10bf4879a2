package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonit-dev/pixelperfect/internal/billing"
	"github.com/jonit-dev/pixelperfect/internal/config"
	"github.com/jonit-dev/pixelperfect/internal/database"
	"github.com/jonit-dev/pixelperfect/internal/events"
	"github.com/jonit-dev/pixelperfect/internal/log"
	"github.com/jonit-dev/pixelperfect/internal/pipeline"
	"github.com/jonit-dev/pixelperfect/internal/stripe"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the sanitizing structured logger. All CLI logging goes
// through the secure handler so Stripe keys and tokens never reach the logs.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// buildConfig assembles configuration in precedence order: defaults, then the
// deployment file, then environment secrets, then explicit flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	explicitConfigPath := configPath != ""
	foundPath := config.FindConfigFile(configPath)
	if foundPath != "" {
		file, err := config.LoadConfigFile(foundPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", foundPath, err)
		}
		file.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg.ApplyEnvOverrides()

	if flag := cmd.Flags().Lookup("listen"); flag != nil && flag.Changed {
		cfg.ListenAddress = flag.Value.String()
	}
	if flag := cmd.Flags().Lookup("base-url"); flag != nil && flag.Changed {
		cfg.BaseURL = flag.Value.String()
	}
	if flag := cmd.Flags().Lookup("content-dir"); flag != nil && flag.Changed {
		cfg.ContentDir = flag.Value.String()
	}
	if flag := cmd.Flags().Lookup("db-dir"); flag != nil && flag.Changed {
		cfg.DBDir = flag.Value.String()
	}
	if flag := cmd.Flags().Lookup("watch"); flag != nil && flag.Changed {
		cfg.WatchContent = flag.Value.String() == "true"
	}

	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// billingComponents bundles the wired billing stack shared by serve and sync.
type billingComponents struct {
	db        *database.BillingDB
	stripe    *stripe.Client
	publisher events.Publisher
	applier   *billing.Applier
	runner    *pipeline.Runner
}

// newBillingComponents opens the database and wires the Stripe client, event
// publisher, applier, and the reconciliation job runner.
func newBillingComponents(cfg *config.Config, logger *slog.Logger) (*billingComponents, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	opts := []stripe.Option{stripe.WithTimeout(cfg.StripeTimeout)}
	if cfg.StripeBaseURL != "" {
		opts = append(opts, stripe.WithBaseURL(cfg.StripeBaseURL))
	}
	client, err := stripe.NewClient(cfg.StripeSecretKey, opts...)
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("billing event publishing enabled",
			"brokers", len(cfg.KafkaBrokers),
			"topic", cfg.KafkaTopic)
	}

	applier := billing.NewApplier(db, client, publisher, logger)

	runner := pipeline.NewRunner(db, pipeline.WithLogger(logger))
	stepCfg := pipeline.StepConfig{
		DB:          db,
		Stripe:      client,
		Applier:     applier,
		Logger:      logger,
		Concurrency: cfg.SyncConcurrency,
	}
	runner.Register(pipeline.NewCheckExpirationsStep(stepCfg))
	runner.Register(pipeline.NewRecoverWebhooksStep(stepCfg))
	runner.Register(pipeline.NewReconcileStep(stepCfg))

	return &billingComponents{
		db:        db,
		stripe:    client,
		publisher: publisher,
		applier:   applier,
		runner:    runner,
	}, nil
}

// close releases the components' resources.
func (c *billingComponents) close(logger *slog.Logger) {
	if err := c.publisher.Close(); err != nil {
		logger.Error("failed to close event publisher", "error", err)
	}
	if err := c.db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}
