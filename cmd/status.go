package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/open-collect/numisync/internal/enrichnote"
	"github.com/open-collect/numisync/internal/model"
	"github.com/open-collect/numisync/internal/store"
)

var (
	statusCountry string
	statusLimit   int
)

var statusCmd = &cobra.Command{
	Use:   "status [record-id]",
	Short: "Show enrichment status of records",
	Long:  "Without arguments lists every record with its overall enrichment status. With a record ID shows the per-section breakdown and pricing freshness.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		codec := enrichnote.NewCodec()

		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return eris.Errorf("invalid record id %q", args[0])
			}
			rec, err := st.GetByID(ctx, id)
			if err != nil {
				return eris.Wrapf(err, "load record %d", id)
			}
			formatRecordStatus(os.Stdout, codec, *rec, cfg.Enrich.FetchPricing)
			return nil
		}

		records, err := st.All(ctx, store.Filter{Country: statusCountry, Limit: statusLimit})
		if err != nil {
			return eris.Wrap(err, "list records")
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No records found.")
			return nil
		}
		formatStatusList(os.Stdout, codec, records, cfg.Enrich.FetchPricing)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusCountry, "country", "", "only list records from this country")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 0, "max number of records to display")
	rootCmd.AddCommand(statusCmd)
}

// formatStatusList writes one line per record: id, title, catalog link,
// and the rolled-up status.
func formatStatusList(out io.Writer, codec *enrichnote.Codec, records []model.Record, wantPricing bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCOUNTRY\tCATALOG\tSTATUS")
	for _, rec := range records {
		_, meta := codec.Decode(rec.Note)
		catalog := ""
		if rec.CatalogID > 0 {
			catalog = strconv.Itoa(rec.CatalogID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			rec.ID, rec.Title, rec.Country, catalog,
			enrichnote.Overall(meta, true, wantPricing))
	}
	w.Flush()
}

// formatRecordStatus writes the section-by-section breakdown for one
// record.
func formatRecordStatus(out io.Writer, codec *enrichnote.Codec, rec model.Record, wantPricing bool) {
	_, meta := codec.Decode(rec.Note)

	fmt.Fprintf(out, "Record %d: %s", rec.ID, rec.Title)
	if rec.CatalogID > 0 {
		fmt.Fprintf(out, " (catalog type %d)", rec.CatalogID)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Overall: %s\n\n", enrichnote.Overall(meta, true, wantPricing))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SECTION\tSTATUS\tUPDATED\tDETAIL")
	for _, name := range []string{enrichnote.SectionBasic, enrichnote.SectionIssue, enrichnote.SectionPricing} {
		sec := sectionOf(meta, name)
		updated := ""
		if !sec.Timestamp.IsZero() {
			updated = sec.Timestamp.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, sec.Status, updated, sec.Detail)
	}
	w.Flush()

	fmt.Fprintf(out, "\nPricing freshness: %s\n", codec.PricingFreshness(meta))
}

func sectionOf(meta enrichnote.Metadata, name string) enrichnote.Section {
	switch name {
	case enrichnote.SectionIssue:
		return meta.IssueData
	case enrichnote.SectionPricing:
		return meta.PricingData
	default:
		return meta.BasicData
	}
}
