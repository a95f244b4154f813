package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewDocumentCmd creates the document command.
func NewDocumentCmd() *cobra.Command {
	var (
		output  string
		urlOnly bool
	)
	cmd := &cobra.Command{
		Use:   "document <source-file>",
		Short: "Download the source document behind a decision",
		Long: `Fetch the original document a decision was extracted from.

The source name is the one shown under "Source" in search results.
Use -o - to write to stdout, or --url to only print the link.

Examples:
  precedent document db-review.pdf
  precedent document -o review.pdf "reviews/db review.pdf"
  precedent document --url db-review.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			source := args[0]
			out := cmd.OutOrStdout()
			if urlOnly {
				fmt.Fprintln(out, a.Client.DocumentURL(source))
				return nil
			}

			var w io.Writer = out
			target := output
			if target == "" {
				target = filepath.Base(source)
			}
			if target != "-" {
				f, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("creating %s: %w", target, err)
				}
				defer f.Close()
				w = f
			}

			n, err := a.Client.FetchDocument(cmd.Context(), source, w)
			if err != nil {
				if target != "-" {
					_ = os.Remove(target)
				}
				return fmt.Errorf("fetching %s: %w", source, err)
			}
			if target != "-" && !quiet {
				color.New(color.FgGreen).Fprintf(out, "Saved %s to %s\n", humanize.Bytes(uint64(n)), target)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the document (default: its base name, - for stdout)")
	cmd.Flags().BoolVar(&urlOnly, "url", false, "Print the retrieval link instead of downloading")
	return cmd
}
