package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"diarykeeper/pkg/archive"
	"diarykeeper/pkg/catalog"
	"diarykeeper/pkg/config"
	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/models"
	"diarykeeper/pkg/storage"
	"diarykeeper/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	exportMember      string
	exportGroup       string
	exportBlog        string
	exportDate        string
	exportRefresh     bool
	exportOutput      string
	exportSink        string
	exportFileName    string
	exportConcurrency int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Package recent images into a zip archive",
	Long: `Download the images of recent posts and package them into one zip archive.

By default every member on the desired member list is exported, limited to
posts from the last seven days. A single member can be exported in full with
--member and --group. Images keep the post time as their modified time.`,
	Example: `  # Export desired members' posts since a given day
  diarykeeper export --date 20250101

  # Export everything one member has posted
  diarykeeper export --member "小坂菜緒" --group Hinatazaka46

  # Crawl first, then upload the archive to S3
  diarykeeper export --refresh --sink s3`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportMember, "member", "", "export a single member")
	exportCmd.Flags().StringVar(&exportGroup, "group", "", "site of the member given with --member")
	exportCmd.Flags().StringVar(&exportBlog, "blog", "", "export a single post by ID")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "earliest post day as yyyyMMdd (default: seven days ago)")
	exportCmd.Flags().BoolVar(&exportRefresh, "refresh", false, "crawl every site before exporting")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output directory for the local sink")
	exportCmd.Flags().StringVar(&exportSink, "sink", "", "archive destination (local or s3)")
	exportCmd.Flags().StringVar(&exportFileName, "file-name", "", "archive file name")
	exportCmd.Flags().IntVar(&exportConcurrency, "concurrency", 0, "images downloaded at once")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportMember != "" && exportGroup == "" {
		return fmt.Errorf("--member requires --group")
	}

	cfg, err := loadConfig(map[string]interface{}{
		"output":      exportOutput,
		"sink":        exportSink,
		"file-name":   exportFileName,
		"concurrency": exportConcurrency,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := newClient(cfg)
	if exportRefresh {
		ui.PrintHighlight("[CRAWLING]")
		summaries, err := newRunner(cfg, client).RunAll(ctx, allSites(cfg))
		printRunSummaries(summaries)
		if err != nil {
			return err
		}
	}

	opts := archive.Options{PostID: exportBlog}
	if exportMember == "" {
		if exportDate != "" {
			if opts.Cutoff, err = models.ParseCutoff(exportDate); err != nil {
				return err
			}
		} else {
			opts.Cutoff = time.Now().In(models.SiteZone).Add(-cfg.Archive.DefaultWindow)
		}
	}

	pick, err := memberFilter(cfg)
	if err != nil {
		return err
	}

	archiver := archive.NewArchiver(cfg.Archive, client, logger.GetLogger())
	var entries []archive.Entry
	for _, site := range allSites(cfg) {
		if exportMember != "" && !strings.EqualFold(site.ID, exportGroup) {
			continue
		}
		snapshot, err := catalog.LoadSnapshot(cfg.SnapshotPath(site))
		if err != nil {
			return err
		}
		members := selectMembers(snapshot, pick)
		if len(members) == 0 {
			continue
		}
		siteEntries, err := archiver.Archive(ctx, site, members, opts)
		if err != nil {
			return err
		}
		entries = append(entries, siteEntries...)
	}

	if len(entries) == 0 {
		ui.PrintWarning("Nothing to export")
		return nil
	}
	return exportEntries(ctx, cfg, entries)
}

// memberFilter decides which member names are exported
func memberFilter(cfg *config.Config) (func(string) bool, error) {
	if exportMember != "" {
		return func(name string) bool { return name == exportMember }, nil
	}
	desired, err := catalog.LoadDesiredList(cfg.DesiredMembersPath())
	if err != nil {
		return nil, err
	}
	if len(desired.Names()) == 0 {
		return nil, fmt.Errorf("desired member list is empty, add names with 'diarykeeper members add'")
	}
	return desired.Contains, nil
}

func selectMembers(snapshot []models.Member, pick func(string) bool) []models.Member {
	var out []models.Member
	for _, m := range snapshot {
		if pick(m.Name) {
			out = append(out, m)
		}
	}
	return out
}

// exportEntries zips entries and hands the archive to the configured sink
func exportEntries(ctx context.Context, cfg *config.Config, entries []archive.Entry) error {
	sink, err := storage.NewSink(ctx, cfg)
	if err != nil {
		return err
	}
	summary, err := archive.Export(ctx, sink, cfg.Archive.FileName, entries)
	if err != nil {
		return err
	}
	logger.GetLogger().InfoWithFields("Archive exported", map[string]interface{}{
		"files":    summary.Files,
		"bytes":    summary.Bytes,
		"location": summary.Location,
	})
	ui.PrintSuccess("Exported " + summary.String())
	return nil
}

func allSites(cfg *config.Config) []*config.SiteConfig {
	sites, _ := resolveSites(cfg, nil, true)
	return sites
}
