package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonit-dev/pixelperfect/internal/config"
)

//go:embed templates/pixelperfect.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new PixelPerfect configuration file",
		Long: `Initialize creates a new .pixelperfect.yml configuration file in the
current directory.

The generated file includes:
- Default settings for the listen address, base URL, and content directory
- Commented examples for CORS origins and rate limits
- Documentation for all available options

Secrets never belong in this file; they are read from the environment
(STRIPE_SECRET_KEY, STRIPE_WEBHOOK_SECRET, CRON_SECRET, JWT_SECRET).

Examples:
  # Create .pixelperfect.yml in current directory
  pixelperfect init

  # Create config file at a specific path
  pixelperfect init -o deploy/pixelperfect.yml

  # Force overwrite existing file
  pixelperfect init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	data, err := configTemplate.ReadFile("templates/pixelperfect.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write configuration file
	if err := os.WriteFile(outputPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure deployment settings such as:")
	fmt.Fprintln(out, "  - Listen address and canonical base URL")
	fmt.Fprintln(out, "  - CORS origins for the API routes")
	fmt.Fprintln(out, "  - Rate limits and sync concurrency")
	fmt.Fprintln(out, "\nSecrets are read from the environment, never from this file.")

	return nil
}
