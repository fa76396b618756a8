package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/open-collect/numisync/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the catalog response cache",
	Long:  "Commands for the shared API cache: entry counts, monthly quota accounting, pruning, and cross-process lock diagnostics.",
}

// -- cache stats --

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache contents and monthly API usage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, lock, err := initCache(cmd.Context())
		if err != nil {
			return err
		}
		defer lock.Release()

		stats := c.GetStats()
		usage := c.MonthlyUsage()

		fmt.Fprintf(os.Stdout, "Cache: %s\n", stats.Path)
		fmt.Fprintf(os.Stdout, "Entries: %d\n", stats.Entries)
		fmt.Fprintf(os.Stdout, "Monthly usage: %d / %d\n", usage.Total, c.MonthlyLimit())
		for endpoint, n := range usage.PerEndpoint {
			fmt.Fprintf(os.Stdout, "  %s: %d\n", endpoint, n)
		}
		return nil
	},
}

// -- cache prune --

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop expired entries and stale usage months",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, lock, err := initCache(cmd.Context())
		if err != nil {
			return err
		}
		defer lock.Release()

		before := c.GetStats().Entries
		c.Prune()
		after := c.GetStats().Entries
		fmt.Fprintf(os.Stdout, "Pruned %d expired entr(ies), %d remain.\n", before-after, after)
		return nil
	},
}

// -- cache set-limit --

var cacheSetLimitCmd = &cobra.Command{
	Use:   "set-limit <n>",
	Short: "Set the monthly API request budget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return eris.Errorf("invalid limit %q", args[0])
		}

		c, lock, err := initCache(cmd.Context())
		if err != nil {
			return err
		}
		defer lock.Release()

		c.SetMonthlyLimit(n)
		fmt.Fprintf(os.Stdout, "Monthly limit set to %d.\n", c.MonthlyLimit())
		return nil
	},
}

// -- cache set-usage --

var cacheSetUsageCmd = &cobra.Command{
	Use:   "set-usage <n>",
	Short: "Overwrite this month's usage total",
	Long:  "Reconciles the local counter with the provider's dashboard, e.g. after requests were made from another machine.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return eris.Errorf("invalid usage total %q", args[0])
		}

		c, lock, err := initCache(cmd.Context())
		if err != nil {
			return err
		}
		defer lock.Release()

		c.SetMonthlyUsageTotal(n)
		fmt.Fprintf(os.Stdout, "Monthly usage set to %d.\n", c.MonthlyTotal())
		return nil
	},
}

// -- cache lock-status --

var cacheLockStatusCmd = &cobra.Command{
	Use:   "lock-status",
	Short: "Show who holds the cache lock",
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, rec := cache.CheckStatus(cache.LockPath(cfg.Cache.Path))

		fmt.Fprintf(os.Stdout, "Lock: %s\n", cache.LockPath(cfg.Cache.Path))
		fmt.Fprintf(os.Stdout, "Status: %s\n", status)
		if rec != nil {
			fmt.Fprintf(os.Stdout, "Holder: pid %d on %s since %s\n",
				rec.PID, rec.Hostname, rec.AcquiredAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheSetLimitCmd)
	cacheCmd.AddCommand(cacheSetUsageCmd)
	cacheCmd.AddCommand(cacheLockStatusCmd)
	rootCmd.AddCommand(cacheCmd)
}
