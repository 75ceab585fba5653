package archive

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"diarykeeper/internal/downloader"
	"diarykeeper/pkg/config"
	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/models"
	"diarykeeper/pkg/retry"
)

// Entry is one file ready to be packaged
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// zipEpoch is the earliest time a zip header can hold
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Options narrows what Archive collects
type Options struct {
	// Cutoff keeps posts dated at or after it; zero keeps every post
	Cutoff time.Time
	// PostID restricts the archive to a single post when set
	PostID string
}

// Archiver fetches the images of catalogued posts on a bounded worker pool
type Archiver struct {
	cfg     config.ArchiveConfig
	fetcher downloader.AssetFetcher
	logger  logger.Logger
}

// NewArchiver creates an archiver
func NewArchiver(cfg config.ArchiveConfig, fetcher downloader.AssetFetcher, log logger.Logger) *Archiver {
	return &Archiver{cfg: cfg, fetcher: fetcher, logger: logger.OrDefault(log)}
}

// Archive fetches every allowed image of the selected posts of members and
// returns the entries that downloaded, in post then image order. Failed
// downloads are logged and left out; they never fail the whole archive.
func (a *Archiver) Archive(ctx context.Context, site *config.SiteConfig, members []models.Member, opts Options) ([]Entry, error) {
	home, err := url.Parse(site.Home() + "/")
	if err != nil {
		return nil, fmt.Errorf("site %s: invalid home page: %w", site.ID, err)
	}

	var jobs []downloader.Job
	for _, m := range members {
		folder := path.Join(site.ArchiveFolder, m.Name)
		for _, p := range m.Posts {
			if !selected(p, opts) {
				continue
			}
			modified := a.fileTime(p.Timestamp)
			for _, ref := range p.Images {
				u, ok := imageURL(home, ref)
				if !ok {
					continue
				}
				jobs = append(jobs, downloader.Job{
					URL:      u.String(),
					Name:     path.Join(folder, FileName(u.Path, p.ID)),
					Modified: modified,
				})
			}
		}
	}

	entries := a.run(ctx, jobs)
	a.logger.InfoWithFields("Archive assembled", map[string]interface{}{
		"site":    site.ID,
		"members": len(members),
		"images":  len(jobs),
		"entries": len(entries),
	})
	return entries, ctx.Err()
}

func (a *Archiver) run(ctx context.Context, jobs []downloader.Job) []Entry {
	results := downloader.FetchAll(ctx, a.cfg.Concurrency, a.fetcher,
		retry.Fixed(a.cfg.RetryAttempts, a.cfg.RetryDelay), jobs, a.logger)

	entries := make([]Entry, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		entries = append(entries, Entry{Name: r.Job.Name, Data: r.Data, Modified: r.Job.Modified})
	}
	if failed > 0 {
		a.logger.WarnWithFields("Some images could not be archived", map[string]interface{}{
			"failed": failed,
			"total":  len(jobs),
		})
	}
	return entries
}

// fileTime is the archive modification time of images from a post dated ts.
// Undated posts get the zip epoch so they sort before every dated one.
func (a *Archiver) fileTime(ts models.Timestamp) time.Time {
	if ts.IsZero() {
		return zipEpoch
	}
	return ts.Add(a.cfg.FileTimeOffset)
}

func selected(p models.Post, opts Options) bool {
	if opts.PostID != "" && p.ID != opts.PostID {
		return false
	}
	if !opts.Cutoff.IsZero() && (p.Timestamp.IsZero() || p.Timestamp.Before(opts.Cutoff)) {
		return false
	}
	return true
}

// imageURL resolves ref against home and reports whether it names an archivable image
func imageURL(home *url.URL, ref string) (*url.URL, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, false
	}
	u = home.ResolveReference(u)
	return u, AllowedExtension(path.Ext(u.Path))
}
