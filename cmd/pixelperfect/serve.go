package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonit-dev/pixelperfect/internal/config"
	"github.com/jonit-dev/pixelperfect/internal/content"
	"github.com/jonit-dev/pixelperfect/internal/web"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the PixelPerfect HTTP server",
		Long: `Serve runs the HTTP server: localized content routes, sitemaps, the
checkout and webhook endpoints, and the cron-triggered sync jobs.

The server shuts down gracefully on SIGINT or SIGTERM, draining in-flight
requests before closing the listener.

Examples:
  # Serve with defaults (reads .pixelperfect.yml if present)
  pixelperfect serve

  # Bind a different address and content directory
  pixelperfect serve --listen :9000 --content-dir ./content

  # Hot-reload content data files on change
  pixelperfect serve --watch`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pixelperfect.yml in current or config directory)")
	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address for the HTTP server to listen on")
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Canonical site origin used in sitemaps and redirect URLs")
	cmd.Flags().String("content-dir", config.DefaultContentDir,
		"Directory holding pSEO content data files")
	cmd.Flags().String("db-dir", "",
		"Directory for the billing database (default: XDG data directory)")
	cmd.Flags().BoolP("watch", "w", false,
		"Reload content data files when they change on disk")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, logger)
}

// runServe wires the components and runs the server until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := content.NewStore(cfg.ContentDir)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}
	logger.Info("content loaded", "dir", cfg.ContentDir, "pages", store.PageCount())

	components, err := newBillingComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.close(logger)

	server, err := web.NewServer(cfg, web.Dependencies{
		Store:   store,
		DB:      components.db,
		Stripe:  components.stripe,
		Applier: components.applier,
		Runner:  components.runner,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if cfg.WatchContent {
		watcher, err := content.NewWatcher(store, logger)
		if err != nil {
			return fmt.Errorf("failed to start content watcher: %w", err)
		}
		defer watcher.Close() //nolint:errcheck
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("content watcher stopped", "error", err)
			}
		}()
		logger.Info("content hot reload enabled")
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.ListenAddress, "baseURL", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
