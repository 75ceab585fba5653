package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"diarykeeper/pkg/catalog"
	"diarykeeper/pkg/config"
	"diarykeeper/pkg/fetch"
	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/retry"
	"diarykeeper/pkg/source"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// CookieProvider supplies stored session cookies for a site
type CookieProvider interface {
	Cookies(site string) ([]config.Cookie, error)
}

// RunSummary reports one crawl run
type RunSummary struct {
	Site      string
	Before    int
	After     int
	Persisted bool
	Lanes     []LaneResult
	Duration  time.Duration
}

// New returns the number of posts added by the run
func (s RunSummary) New() int {
	return s.After - s.Before
}

// Runner loads a site's snapshot, crawls it and persists the result
type Runner struct {
	cfg       *config.Config
	fetcher   source.Fetcher
	cookies   CookieProvider
	scheduler *Scheduler
	retry     *retry.Config
	logger    logger.Logger

	build func(site *config.SiteConfig, cookies []config.Cookie) (source.ListingSource, error)
}

// NewRunner creates a runner. cookies may be nil.
func NewRunner(cfg *config.Config, fetcher source.Fetcher, cookies CookieProvider, log logger.Logger) *Runner {
	log = logger.OrDefault(log)
	r := &Runner{
		cfg:       cfg,
		fetcher:   fetcher,
		cookies:   cookies,
		scheduler: NewScheduler(log),
		retry:     retry.DefaultConfig(),
		logger:    log,
	}
	r.retry.Logger = log
	r.build = func(site *config.SiteConfig, cookies []config.Cookie) (source.ListingSource, error) {
		return source.New(site, r.fetcher, cookies, r.logger)
	}
	return r
}

// Source builds the ListingSource for a site with configured and stored cookies merged
func (r *Runner) Source(site *config.SiteConfig) (source.ListingSource, error) {
	cookies := site.Cookies
	if r.cookies != nil {
		stored, err := r.cookies.Cookies(site.ID)
		if err != nil {
			r.logger.WithError(err).WarnWithFields("stored cookies unavailable", map[string]interface{}{"site": site.ID})
		} else {
			cookies = fetch.MergeCookies(cookies, stored)
		}
	}
	return r.build(site, cookies)
}

// Run crawls one site. The snapshot is rewritten only when the catalog grew.
func (r *Runner) Run(ctx context.Context, site *config.SiteConfig) (RunSummary, error) {
	start := time.Now()
	summary := RunSummary{Site: site.ID}
	path := r.cfg.SnapshotPath(site)

	snapshot, err := catalog.LoadSnapshot(path)
	if err != nil {
		return summary, err
	}
	cat := catalog.FromMembers(snapshot)
	summary.Before = cat.Count()

	src, err := r.Source(site)
	if err != nil {
		return summary, err
	}

	lanes, crawlErr := r.scheduler.Crawl(ctx, src, cat)
	summary.Lanes = lanes
	summary.After = cat.Count()

	// A cancelled run still keeps what it extracted
	if catalog.CountNew(snapshot, cat) > 0 {
		if _, err := catalog.Persist(cat, site.ID, path, site.UmbrellaMap()); err != nil {
			return summary, fmt.Errorf("site %s: %w", site.ID, err)
		}
		summary.Persisted = true
	}
	summary.Duration = time.Since(start)

	r.logger.InfoWithFields("crawl finished", map[string]interface{}{
		"site":      site.ID,
		"before":    summary.Before,
		"after":     summary.After,
		"persisted": summary.Persisted,
		"duration":  summary.Duration,
	})
	return summary, crawlErr
}

// RunAll crawls every site concurrently and returns summaries in input order
func (r *Runner) RunAll(ctx context.Context, sites []*config.SiteConfig) ([]RunSummary, error) {
	summaries := make([]RunSummary, len(sites))
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	for i, site := range sites {
		i, site := i, site
		g.Go(func() error {
			summary, err := r.Run(ctx, site)
			summaries[i] = summary
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", site.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return summaries, joinErrors(errs)
}

// BackfillSummary reports a content backfill
type BackfillSummary struct {
	Site      string
	Missing   int
	Filled    int
	Failed    int
	Persisted bool
}

// Backfill fetches the body of every catalogued post that has none, with at
// most concurrency detail requests in flight, then rewrites the snapshot.
func (r *Runner) Backfill(ctx context.Context, site *config.SiteConfig, concurrency int) (BackfillSummary, error) {
	summary := BackfillSummary{Site: site.ID}
	if concurrency < 1 {
		concurrency = 1
	}
	path := r.cfg.SnapshotPath(site)

	snapshot, err := catalog.LoadSnapshot(path)
	if err != nil {
		return summary, err
	}
	cat := catalog.FromMembers(snapshot)

	src, err := r.Source(site)
	if err != nil {
		return summary, err
	}
	cs, ok := src.(source.ContentSource)
	if !ok || site.Detail.URL == "" {
		return summary, fmt.Errorf("site %s does not support content backfill", site.ID)
	}

	missing := cat.MissingContent()
	summary.Missing = len(missing)
	log := r.logger.WithField("site", site.ID)
	log.InfoWithFields("backfilling post content", map[string]interface{}{
		"missing":     len(missing),
		"concurrency": concurrency,
	})

	var (
		mu  sync.Mutex
		sem = semaphore.NewWeighted(int64(concurrency))
	)
	for _, id := range missing {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		go func(id string) {
			defer sem.Release(1)
			content, err := retry.DoWithResult(ctx, func(ctx context.Context) (string, error) {
				return cs.Content(ctx, id)
			}, r.retry)
			mu.Lock()
			defer mu.Unlock()
			if err != nil || !cat.FillContent(id, content) {
				summary.Failed++
				log.WithError(err).DebugWithFields("content backfill failed", map[string]interface{}{"post_id": id})
				return
			}
			summary.Filled++
		}(id)
	}
	// Wait for in-flight fetches
	if err := sem.Acquire(context.Background(), int64(concurrency)); err == nil {
		sem.Release(int64(concurrency))
	}

	if summary.Filled > 0 {
		if _, err := catalog.Persist(cat, site.ID, path, site.UmbrellaMap()); err != nil {
			return summary, fmt.Errorf("site %s: %w", site.ID, err)
		}
		summary.Persisted = true
	}
	return summary, ctx.Err()
}
