package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for PixelPerfect.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pixelperfect",
		Short: "Marketing site and billing service for the PixelPerfect upscaler",
		Long: `PixelPerfect serves the image-upscaler marketing site and its billing
backend: localized pSEO content pages, XML sitemaps with hreflang
alternates, Stripe subscription checkout, webhook ingestion, and the
reconciliation jobs that keep local subscription state in sync with Stripe.

Secrets are read from the environment: STRIPE_SECRET_KEY,
STRIPE_WEBHOOK_SECRET, CRON_SECRET, JWT_SECRET, and optionally
KAFKA_BROKERS.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
