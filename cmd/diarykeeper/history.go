package main

import (
	"fmt"
	"strconv"

	"diarykeeper/pkg/archive"
	"diarykeeper/pkg/config"
	"diarykeeper/pkg/credentials"
	"diarykeeper/pkg/fetch"
	"diarykeeper/pkg/history"
	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/ui"

	"github.com/spf13/cobra"
)

var historyCode string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Crawl and export photo-history collections",
	Long: `Photo-history collections are numbered photo sets published on the fan club
pages of Hinatazaka46 and Sakurazaka46. They are kept in a separate snapshot
next to the diary snapshot of the site.`,
}

var historyCrawlCmd = &cobra.Command{
	Use:     "crawl <site>",
	Short:   "Fetch collections not yet in the history snapshot",
	Example: `  diarykeeper history crawl Hinatazaka46`,
	Args:    cobra.ExactArgs(1),
	RunE:    runHistoryCrawl,
}

var historyListCmd = &cobra.Command{
	Use:   "list <site>",
	Short: "List the collections in the history snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryList,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <site>",
	Short: "Package history collections into a zip archive",
	Long: `Download every image of the stored history collections and package them
into one zip archive, one folder per collection. Each image is dated from the
collection number and its position inside the collection.`,
	Example: `  # Export a single collection
  diarykeeper history export Hinatazaka46 --code fc_photo_12`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryExport,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyCrawlCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)

	historyExportCmd.Flags().StringVar(&historyCode, "code", "", "export only the collection with this code")
}

func historySite(cfg *config.Config, id string) (*config.SiteConfig, error) {
	site, err := cfg.Site(id)
	if err != nil {
		return nil, err
	}
	if site.History == nil {
		return nil, fmt.Errorf("site %s has no photo history", site.ID)
	}
	return site, nil
}

func runHistoryCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	site, err := historySite(cfg, args[0])
	if err != nil {
		return err
	}

	cookies := site.Cookies
	if manager, err := credentials.NewManager(""); err == nil {
		if stored, err := manager.Cookies(site.ID); err == nil {
			cookies = fetch.MergeCookies(site.Cookies, stored)
		}
	}

	crawler, err := history.NewCrawler(site, newClient(cfg), cookies, logger.GetLogger())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	ui.PrintHighlight("[SCANNING HISTORY]")
	cols, added, err := crawler.Update(ctx, cfg.HistoryPath(site))
	if err != nil {
		return err
	}
	ui.PrintInfo(site.ID, fmt.Sprintf("%d collections, %d new", len(cols), added))
	return nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	site, err := historySite(cfg, args[0])
	if err != nil {
		return err
	}
	cols, err := history.Load(cfg.HistoryPath(site))
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		ui.PrintWarning("No collections stored, run 'diarykeeper history crawl " + site.ID + "'")
		return nil
	}

	rows := make([][]string, 0, len(cols))
	for _, c := range cols {
		day := "-"
		if date, err := archive.CollectionDate(cfg.History, c.Index); err == nil {
			day = date.Format("2006-01-02")
		}
		rows = append(rows, []string{strconv.Itoa(c.Index), c.Code, c.Title, strconv.Itoa(len(c.Images)), day})
	}
	ui.PrintTable([]string{"#", "Code", "Title", "Photos", "Dated"}, rows)
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	site, err := historySite(cfg, args[0])
	if err != nil {
		return err
	}
	cols, err := history.Load(cfg.HistoryPath(site))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	archiver := archive.NewArchiver(cfg.Archive, newClient(cfg), logger.GetLogger())
	entries, err := archiver.ArchiveHistory(ctx, cfg.History, cols, historyCode)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ui.PrintWarning("Nothing to export")
		return nil
	}
	return exportEntries(ctx, cfg, entries)
}
