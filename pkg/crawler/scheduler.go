package crawler

import (
	"context"
	"errors"
	"time"

	"diarykeeper/pkg/catalog"
	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/source"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxPage is the hard page ceiling for a lane
const DefaultMaxPage = 1000

// StopReason says why a lane ended
type StopReason string

const (
	StopCeiling   StopReason = "page_ceiling"
	StopEmpty     StopReason = "empty_page"
	StopFetch     StopReason = "fetch_failed"
	StopDuplicate StopReason = "duplicate"
	StopStructure StopReason = "structure"
	StopCancelled StopReason = "cancelled"
)

// LaneResult reports what one lane did
type LaneResult struct {
	Lane     int
	Pages    int
	Inserted int
	LastPage int
	Stop     StopReason
	Err      error
}

// Scheduler drives concurrent pagination lanes over a ListingSource
type Scheduler struct {
	logger logger.Logger
}

// NewScheduler creates a scheduler
func NewScheduler(log logger.Logger) *Scheduler {
	return &Scheduler{logger: logger.OrDefault(log)}
}

// Crawl runs the site's lanes against cat until every lane stops. Lane i
// visits FirstPage+i, FirstPage+i+L, ... up to MaxPage, where L is the lane
// count, so lanes never share a page. New posts are added to cat in place;
// nothing already in it is modified. Only cancellation of ctx is reported
// as an error; everything else ends a single lane.
//
// A lane stops at the first post already in cat. This assumes listings are
// newest first and never reordered; a post back-filled behind a known one is
// missed until it moves ahead of it.
func (s *Scheduler) Crawl(ctx context.Context, src source.ListingSource, cat *catalog.Catalog) ([]LaneResult, error) {
	site := src.Site()
	lanes := site.Lanes
	if lanes < 1 {
		lanes = 1
	}
	maxPage := site.MaxPage
	if maxPage <= 0 {
		maxPage = DefaultMaxPage
	}

	log := s.logger.WithField("site", site.ID)
	logger.LogComponentStart(log, "scheduler", map[string]interface{}{
		"lanes":    lanes,
		"max_page": maxPage,
		"known":    cat.Count(),
	})

	results := make([]LaneResult, lanes)
	// Plain Group: one lane stopping must not cancel the others
	var g errgroup.Group
	for lane := 0; lane < lanes; lane++ {
		lane := lane
		g.Go(func() error {
			results[lane] = s.runLane(ctx, src, cat, lane, site.FirstPage+lane, lanes, maxPage, log)
			if results[lane].Stop == StopCancelled {
				return ctx.Err()
			}
			return nil
		})
	}
	err := g.Wait()

	inserted := 0
	for _, r := range results {
		inserted += r.Inserted
	}
	logger.LogComponentStop(log, "scheduler", "all lanes stopped")
	logger.LogMetrics(log, "crawl", map[string]interface{}{
		"new_posts": inserted,
		"total":     cat.Count(),
	})
	return results, err
}

func (s *Scheduler) runLane(ctx context.Context, src source.ListingSource, cat *catalog.Catalog, lane, first, step, maxPage int, log logger.Logger) LaneResult {
	result := LaneResult{Lane: lane, Stop: StopCeiling}
	log = log.WithField("lane", lane)

	for page := first; page <= maxPage; page += step {
		if ctx.Err() != nil {
			result.Stop = StopCancelled
			return result
		}
		result.LastPage = page

		entries, err := src.FetchPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				result.Stop = StopCancelled
				return result
			}
			log.WithError(err).InfoWithFields("listing fetch failed, lane finished", map[string]interface{}{"page": page})
			result.Stop, result.Err = StopFetch, err
			return result
		}
		if len(entries) == 0 {
			log.DebugWithFields("no entries on page, lane finished", map[string]interface{}{"page": page})
			result.Stop = StopEmpty
			return result
		}
		result.Pages++

		for _, entry := range entries {
			start := time.Now()
			post, err := src.Extract(ctx, entry, page, cat.Has)
			switch {
			case errors.Is(err, source.ErrSkip):
				continue
			case errors.Is(err, source.ErrDuplicate):
				log.DebugWithFields("known post reached, lane finished", map[string]interface{}{"page": page})
				result.Stop = StopDuplicate
				return result
			case err != nil:
				if ctx.Err() != nil {
					result.Stop = StopCancelled
					return result
				}
				log.WithError(err).ErrorWithFields("post extraction failed, lane finished", map[string]interface{}{"page": page})
				result.Stop, result.Err = StopStructure, err
				return result
			}

			if !cat.InsertIfAbsent(post) {
				result.Stop = StopDuplicate
				return result
			}
			result.Inserted++
			logger.LogPost(log, src.Site().ID, post.ID, post.Author, len(post.Images), page, lane, time.Since(start))
		}
	}
	return result
}
