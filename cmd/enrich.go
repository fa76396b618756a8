package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/open-collect/numisync/internal/enrich"
	"github.com/open-collect/numisync/internal/match"
	"github.com/open-collect/numisync/pkg/numista"
)

var enrichTypeID int

var enrichCmd = &cobra.Command{
	Use:   "enrich <record-id>",
	Short: "Enrich one record from the catalog",
	Long:  "Searches the catalog for the record, auto-selects a match above the confidence threshold, and merges catalog data into empty fields. Use --type to force a catalog type after reviewing candidates.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Errorf("invalid record id %q", args[0])
		}

		env, err := initEnrich(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if enrichTypeID > 0 {
			rec, err := env.Store.GetByID(ctx, id)
			if err != nil {
				return eris.Wrapf(err, "load record %d", id)
			}
			res := &enrich.Result{RecordID: id, CatalogID: enrichTypeID}
			if err := env.Pipeline.Apply(ctx, rec, enrichTypeID, res); err != nil {
				return err
			}
			printEnrichResult(os.Stdout, res)
			return nil
		}

		res, err := env.Pipeline.Enrich(ctx, id)
		if err != nil {
			return err
		}
		printEnrichResult(os.Stdout, res)
		return nil
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichTypeID, "type", 0, "catalog type ID to apply, skipping the search")
	rootCmd.AddCommand(enrichCmd)
}

func printEnrichResult(out io.Writer, res *enrich.Result) {
	switch {
	case res.NoMatch:
		fmt.Fprintf(out, "Record %d: no catalog matches found.\n", res.RecordID)
	case res.NeedsReview:
		fmt.Fprintf(out, "Record %d: no candidate cleared the auto-select threshold. Re-run with --type after picking one:\n\n", res.RecordID)
		formatCandidates(out, res.Candidates)
	default:
		fmt.Fprintf(out, "Record %d: merged %d field(s) from type %d (confidence %d).\n",
			res.RecordID, res.FieldsMerged, res.CatalogID, res.Confidence)
		printIssueOutcome(out, res.Issue)
	}
}

func printIssueOutcome(out io.Writer, ir match.IssueResult) {
	switch ir.Outcome {
	case match.OutcomeAutoMatched:
		is := ir.Issue
		fmt.Fprintf(out, "Issue: matched %d %s (id %d).\n", is.CalendarYear(), is.MintLetter, is.ID)
	case match.OutcomeUserPick:
		fmt.Fprintf(out, "Issue: %d candidates need review:\n\n", len(ir.Options))
		formatIssueOptions(out, ir.Options)
	case match.OutcomeNoIssues:
		fmt.Fprintln(out, "Issue: the catalog has no issue history for this type.")
	}
}

// formatCandidates writes a tabular candidate list.
func formatCandidates(out io.Writer, candidates []enrich.Candidate) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tCONF\tTITLE\tISSUER\tYEARS")
	for _, c := range candidates {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n",
			c.Type.ID, c.Confidence, c.Type.Title, c.Type.Issuer.Name, yearRange(c.Type))
	}
	w.Flush()
}

func formatIssueOptions(out io.Writer, options []numista.Issue) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ISSUE\tYEAR\tMARK\tCOMMENT\tMINTAGE")
	for _, is := range options {
		mintage := ""
		if is.Mintage > 0 {
			mintage = strconv.FormatInt(is.Mintage, 10)
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n",
			is.ID, is.CalendarYear(), is.MintLetter, is.Comment, mintage)
	}
	w.Flush()
}

func yearRange(t numista.Type) string {
	switch {
	case t.MinYear == 0 && t.MaxYear == 0:
		return ""
	case t.MinYear == t.MaxYear:
		return strconv.Itoa(t.MinYear)
	default:
		return fmt.Sprintf("%d-%d", t.MinYear, t.MaxYear)
	}
}
