package main

import (
	"errors"
	"fmt"

	"diarykeeper/pkg/ui"

	"github.com/spf13/cobra"
)

var backfillConcurrency int

var backfillCmd = &cobra.Command{
	Use:   "backfill <site...>",
	Short: "Fetch the body of posts saved without one",
	Long: `Fetch the detail page of every catalogued post whose content is empty and
store the body. No other field of an existing post is touched.`,
	Example: `  diarykeeper backfill Sakurazaka46 --concurrency 4`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().IntVar(&backfillConcurrency, "concurrency", 0, "detail pages fetched at once (default from config)")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	sites, err := resolveSites(cfg, args, false)
	if err != nil {
		return err
	}

	concurrency := backfillConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Crawl.BackfillConcurrency
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner := newRunner(cfg, newClient(cfg))
	var errs []error
	for _, site := range sites {
		summary, err := runner.Backfill(ctx, site, concurrency)
		if err != nil {
			ui.PrintError(fmt.Sprintf("Backfill of %s failed", site.ID), err)
			errs = append(errs, err)
			continue
		}
		ui.PrintBar(site.ID, summary.Filled, summary.Missing)
		if summary.Failed > 0 {
			ui.PrintWarning(fmt.Sprintf("%d posts could not be filled", summary.Failed))
		}
	}
	return errors.Join(errs...)
}
