package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/open-collect/numisync/internal/enrich"
	"github.com/open-collect/numisync/pkg/numista"
)

var (
	searchRecordID int64
	searchIssuer   string
	searchCategory string
	searchLimit    int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the catalog for coin types",
	Long:  "Searches the catalog with a free-text query, or with --record scores the results against a stored record the way enrichment would.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnrich(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if searchRecordID > 0 {
			rec, err := env.Store.GetByID(ctx, searchRecordID)
			if err != nil {
				return eris.Wrapf(err, "load record %d", searchRecordID)
			}
			candidates, err := env.Pipeline.SearchCandidates(ctx, *rec)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				fmt.Fprintln(os.Stderr, "No matches found.")
				return nil
			}
			if searchLimit > 0 && len(candidates) > searchLimit {
				candidates = candidates[:searchLimit]
			}
			formatCandidates(os.Stdout, candidates)
			return nil
		}

		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return eris.New("a query or --record is required")
		}

		var opts []numista.SearchOption
		if searchIssuer != "" {
			opts = append(opts, numista.WithIssuer(searchIssuer))
		}
		if searchCategory != "" {
			opts = append(opts, numista.WithCategory(searchCategory))
		}

		resp, err := env.Catalog.SearchTypes(ctx, query, opts...)
		if err != nil {
			return eris.Wrapf(err, "search %q", query)
		}
		if len(resp.Types) == 0 {
			fmt.Fprintln(os.Stderr, "No matches found.")
			return nil
		}

		types := resp.Types
		if searchLimit > 0 && len(types) > searchLimit {
			types = types[:searchLimit]
		}
		candidates := make([]enrich.Candidate, 0, len(types))
		for _, t := range types {
			candidates = append(candidates, enrich.Candidate{Type: t})
		}
		formatTypes(os.Stdout, candidates)
		fmt.Fprintf(os.Stdout, "\n%d of %d result(s) shown.\n", len(types), resp.Count)
		return nil
	},
}

func init() {
	searchCmd.Flags().Int64Var(&searchRecordID, "record", 0, "score results against this stored record")
	searchCmd.Flags().StringVar(&searchIssuer, "issuer", "", "restrict to an issuer code (e.g. etats-unis)")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "restrict to a category (coin, banknote, exonumia)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "max number of results to display")
	rootCmd.AddCommand(searchCmd)
}

// formatTypes is formatCandidates without the confidence column, for
// free-text searches with no record to score against.
func formatTypes(out io.Writer, candidates []enrich.Candidate) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tTITLE\tISSUER\tYEARS")
	for _, c := range candidates {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			c.Type.ID, c.Type.Title, c.Type.Issuer.Name, yearRange(c.Type))
	}
	w.Flush()
}
