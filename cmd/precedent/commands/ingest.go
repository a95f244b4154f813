package commands

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"precedent/internal/tui"
)

// NewIngestCmd creates the ingest command.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Add a document to the memory",
		Long: `Upload one project doc, meeting note or email for ingestion.

The backend extracts the decisions it contains. Accepted extensions are
a hint from config; the backend has the final word on what it parses.

Examples:
  precedent ingest ./notes/q3-review.md
  precedent ingest --backend-url http://memory:8000 decisions.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			path := args[0]
			if !a.Upload.Accepts(path) && !quiet {
				color.New(color.FgYellow).Fprintf(out, "%s is not a usual memory document; sending it anyway\n", filepath.Base(path))
			}
			if !quiet {
				fmt.Fprintln(out, tui.UploadingMessage)
			}
			if _, err := a.Upload.Upload(cmd.Context(), path); err != nil {
				color.New(color.FgRed).Fprintln(out, tui.ErrorMessage)
				return err
			}
			color.New(color.FgGreen).Fprintln(out, tui.SuccessMessage)
			return nil
		},
	}
	return cmd
}
