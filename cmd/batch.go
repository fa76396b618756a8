package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/open-collect/numisync/internal/enrich"
	"github.com/open-collect/numisync/internal/store"
)

var (
	batchLimit   int
	batchCountry string
	batchAll     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch enrich unenriched records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnrich(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Pipeline.RunBatch(ctx, enrich.BatchOptions{
			Filter: store.Filter{
				Country:    batchCountry,
				Unenriched: !batchAll,
			},
			Limit:         batchLimit,
			Concurrency:   cfg.Batch.MaxConcurrentRecords,
			RetryAttempts: cfg.Batch.RetryAttempts,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout,
			"Processed %d record(s): %d merged, %d need review, %d no match, %d failed.\n",
			summary.Processed, summary.Merged, summary.NeedsReview, summary.NoMatch, summary.Failed)
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 100, "max number of records to process")
	batchCmd.Flags().StringVar(&batchCountry, "country", "", "only process records from this country")
	batchCmd.Flags().BoolVar(&batchAll, "all", false, "include records already linked to a catalog type")
	rootCmd.AddCommand(batchCmd)
}
