package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonit-dev/pixelperfect/internal/config"
	"github.com/jonit-dev/pixelperfect/internal/model"
	"github.com/jonit-dev/pixelperfect/internal/report"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [job...]",
		Short: "Run billing reconciliation jobs",
		Long: `Sync runs the billing reconciliation jobs against Stripe and prints a
report of what was repaired.

Jobs:
  check-expirations  confirm subscriptions past their period end against Stripe
  recover-webhooks   re-apply webhook events that failed to process
  reconcile          diff every active subscription against Stripe

With no arguments all jobs run in order. These are the same jobs the
/api/cron/* endpoints trigger; running them from the CLI is useful for
backfills and debugging.

Examples:
  # Run every job
  pixelperfect sync

  # Run one job and print a JSON report
  pixelperfect sync recover-webhooks --json

  # Write a Markdown report to a file
  pixelperfect sync --markdown -o sync-report.md`,
		Args: cobra.ArbitraryArgs,
		RunE: runSyncCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pixelperfect.yml in current or config directory)")
	cmd.Flags().String("db-dir", "",
		"Directory for the billing database (default: XDG data directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runSyncCmd executes the sync command.
func runSyncCmd(cmd *cobra.Command, args []string) error {
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOut && markdownOut {
		return errors.New("--json and --markdown are mutually exclusive")
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	jobs, err := parseJobArgs(args)
	if err != nil {
		return err
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	// Sync only talks to Stripe and the database; the web-serving secrets
	// are not required here.
	if cfg.StripeSecretKey == "" {
		return config.ErrNoStripeKey
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := newBillingComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.close(logger)

	var runs []*model.SyncRun
	var runErr error
	for _, job := range jobs {
		run, err := components.runner.Execute(ctx, job)
		if run != nil {
			runs = append(runs, run)
		}
		if err != nil {
			logger.Error("sync job failed", "job", job, "error", err)
			runErr = err
		}
	}

	if err := outputReport(runs, jsonOut, markdownOut, outputPath); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("sync finished with failures: %w", runErr)
	}
	return nil
}

// parseJobArgs validates job name arguments, defaulting to all jobs.
func parseJobArgs(args []string) ([]model.SyncJob, error) {
	if len(args) == 0 {
		return model.AllSyncJobs, nil
	}

	jobs := make([]model.SyncJob, 0, len(args))
	for _, arg := range args {
		job, ok := model.ParseSyncJob(arg)
		if !ok {
			return nil, fmt.Errorf("unknown sync job %q (valid: %v)", arg, model.AllSyncJobs)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// outputReport writes the run report in the requested format.
func outputReport(runs []*model.SyncRun, jsonOut, markdownOut bool, outputPath string) error {
	var output *os.File
	if outputPath != "" {
		dir := filepath.Dir(outputPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case jsonOut:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case markdownOut:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output)
	}

	_, err := writer.Write(runs)
	return err
}
