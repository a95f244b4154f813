package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"precedent/internal/domain"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List documents already ingested",
		Long: `List every document the memory has ingested, as reported by the backend.

Unlike the shell, which hides the list when the backend cannot be reached,
this command reports the failure.

Examples:
  precedent history
  precedent history --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if t := a.Config.RequestTimeout(); t > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, t)
				defer cancel()
			}
			files, err := a.Client.ListUploads(ctx)
			if err != nil {
				return fmt.Errorf("listing uploads: %w", err)
			}

			out := cmd.OutOrStdout()
			if outputFormat == formatJSON {
				if files == nil {
					files = []domain.UploadedFileRecord{}
				}
				data, err := json.MarshalIndent(files, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling JSON: %w", err)
				}
				fmt.Fprintf(out, "%s\n", data)
				return nil
			}

			if len(files) == 0 {
				if !quiet {
					fmt.Fprintln(out, "Nothing ingested yet.")
				}
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "FILENAME\tUPLOADED\tBY\n")
			fmt.Fprintf(w, "--------\t--------\t--\n")
			for _, f := range files {
				fmt.Fprintf(w, "%s\t%s\t%s\n", truncate(f.Filename, 48), f.UploadTime, f.UploadedBy)
			}
			w.Flush()
			if !quiet {
				fmt.Fprintf(out, "\n%d document(s)\n", len(files))
			}
			return nil
		},
	}
	return cmd
}
