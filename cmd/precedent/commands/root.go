package commands

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"precedent/internal/app"
	"precedent/internal/config"
	"precedent/internal/tui"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// Flags shared by every command.
var (
	configPath   string
	backendURL   string
	outputFormat string
	quiet        bool
)

// NewRootCmd creates the root command. Without a subcommand it opens the shell.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "precedent",
		Short: "Search and grow your team's decision memory",
		Long: `Precedent is a client for an institutional memory service.

Ask why past decisions were made, filter by team, and feed new project
docs, meeting notes, or emails into memory. Run without a subcommand to
open the interactive shell.

Examples:
  precedent
  precedent search --team Engineering "Why did we choose Postgres?"
  precedent ingest ./notes/q3-review.md
  precedent history --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(outputFormat)
		},
		RunE: runShell,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default ./precedent.yaml or the user config dir)")
	cmd.PersistentFlags().StringVar(&backendURL, "backend-url", "", "Memory backend base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", formatText, "Output format: text or json")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print results")

	cmd.AddCommand(
		NewSearchCmd(),
		NewIngestCmd(),
		NewHistoryCmd(),
		NewDocumentCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func runShell(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Start(cmd.Context()); err != nil {
		return err
	}
	return tui.Run(cmd.Context(), a)
}

// loadApp reads config, applies flag overrides and wires the components.
func loadApp() (*app.App, error) {
	_ = godotenv.Load()

	var (
		cfg *config.AppConfig
		err error
	)
	if configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if backendURL != "" {
		cfg.Backend.BaseURL = backendURL
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --backend-url: %w", err)
		}
	}
	return app.New(cfg, app.Options{})
}

func validateFormat(f string) error {
	switch f {
	case formatText, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q (want %s or %s)", f, formatText, formatJSON)
}
