package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"diarykeeper/pkg/crawler"
	"diarykeeper/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	crawlAll   bool
	crawlLanes int
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [site...]",
	Short: "Fetch new posts and update the site snapshots",
	Long: `Crawl the diary listings of one or more sites and add every post not yet
in the snapshot. Each lane walks its own share of the listing pages and stops
at the first post it already knows, so a routine run only touches the newest
pages.

The snapshot is rewritten only when the crawl found new posts.`,
	Example: `  # Crawl every configured site
  diarykeeper crawl --all

  # Crawl two sites with four lanes each
  diarykeeper crawl Hinatazaka46 Sakurazaka46 --lanes 4`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().BoolVar(&crawlAll, "all", false, "crawl every configured site")
	crawlCmd.Flags().IntVar(&crawlLanes, "lanes", 0, "concurrent lanes per site (default from config)")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if crawlLanes > 0 {
		flags["lanes"] = crawlLanes
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if crawlLanes > 0 {
		for i := range cfg.Sites {
			cfg.Sites[i].Lanes = crawlLanes
		}
	}

	sites, err := resolveSites(cfg, args, crawlAll)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner := newRunner(cfg, newClient(cfg))
	ui.PrintHighlight("[CRAWLING]")
	summaries, err := runner.RunAll(ctx, sites)
	printRunSummaries(summaries)
	if err != nil {
		return err
	}
	ui.PrintSuccess("Crawl finished")
	return nil
}

func printRunSummaries(summaries []crawler.RunSummary) {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		if s.Site == "" {
			continue
		}
		saved := "no"
		if s.Persisted {
			saved = "yes"
		}
		rows = append(rows, []string{
			s.Site,
			strconv.Itoa(s.Before),
			strconv.Itoa(s.New()),
			saved,
			laneStops(s.Lanes),
			s.Duration.Round(10 * time.Millisecond).String(),
		})
	}
	if len(rows) == 0 {
		return
	}
	ui.PrintTable([]string{"Site", "Known", "New", "Saved", "Lanes", "Took"}, rows)
}

// laneStops renders why each lane stopped, e.g. "0:duplicate@3 1:empty_page@8"
func laneStops(lanes []crawler.LaneResult) string {
	parts := make([]string, 0, len(lanes))
	for _, l := range lanes {
		parts = append(parts, fmt.Sprintf("%d:%s@%d", l.Lane, l.Stop, l.LastPage))
	}
	return strings.Join(parts, " ")
}
