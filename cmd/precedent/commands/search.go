package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"precedent/internal/domain"
	"precedent/internal/search"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var (
		team  string
		limit int
		year  int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Ask the memory about past decisions",
		Long: `Search the decision memory with a natural-language question.

Results come back in the order the backend ranks them, each with its
relevance, rationale, alternatives considered and a link to the source.

Examples:
  precedent search "Why did we choose Postgres?"
  precedent search --team Engineering --limit 5 "database migration"
  precedent search --format json "pricing change"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("limit must be positive, got %d", limit)
			}
			q := domain.Query{Text: strings.Join(args, " "), TeamFilter: team, Limit: limit, Year: year}
			if q.Blank() {
				return fmt.Errorf("query must not be blank")
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.Search.Submit(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("%s: %w", search.FailureMessage, err)
			}

			out := cmd.OutOrStdout()
			if outputFormat == formatJSON {
				if results == nil {
					results = []domain.SearchResult{}
				}
				data, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling JSON: %w", err)
				}
				fmt.Fprintf(out, "%s\n", data)
				return nil
			}

			if len(results) == 0 {
				color.New(color.FgYellow).Fprintln(out, search.NoResultsMessage)
				return nil
			}
			r := a.Renderer
			r.Query = q.Text
			fmt.Fprintln(out, r.Cards(results))
			if !quiet {
				fmt.Fprintf(out, "\nFound %d decision(s)\n", len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "Only search decisions made by this team")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results to return (default from config)")
	cmd.Flags().IntVar(&year, "year", 0, "Only search decisions from this year")
	return cmd
}
