package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonit-dev/pixelperfect/internal/content"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the pSEO content data files",
		Long: `Validate checks every content data file for structural defects:
malformed JSON, category mismatches, stale page counts, duplicate or
empty slugs, and pages missing a default-locale title or update time.

All files are checked and every violation is reported in one pass, so
the exit status reflects the whole content set rather than the first
broken file.

Examples:
  # Validate the default content directory
  pixelperfect validate

  # Validate a staging export
  pixelperfect validate --content-dir ./staging/data`,
		Args: cobra.NoArgs,
		RunE: runValidateCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pixelperfect.yml in current or config directory)")
	cmd.Flags().String("content-dir", "",
		"Directory holding pSEO content data files")

	return cmd
}

// runValidateCmd executes the validate command.
func runValidateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	violations, err := content.ValidateDir(cfg.ContentDir)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(violations) == 0 {
		fmt.Fprintf(out, "Content in %s is valid.\n", cfg.ContentDir)
		return nil
	}

	for _, v := range violations {
		fmt.Fprintln(out, v.String())
	}
	return fmt.Errorf("%d content violation(s) found in %s", len(violations), cfg.ContentDir)
}
