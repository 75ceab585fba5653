package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"diarykeeper/pkg/config"
	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/models"
	"diarykeeper/pkg/storage"

	"github.com/PuerkitoBio/goquery"
)

// thumbnailSegment is the resize path segment removed to reach the full-size image
const thumbnailSegment = "/750_750_102400"

// ErrStructure means a collection page did not have the expected layout
var ErrStructure = errors.New("unexpected history page structure")

// Fetcher is the page fetcher contract the crawlers consume
type Fetcher interface {
	Document(ctx context.Context, url string, cookies []config.Cookie) (*goquery.Document, error)
	JSON(ctx context.Context, url string, cookies []config.Cookie, target interface{}) error
}

// collector reads one collection. ok is false when the collection exists
// but holds nothing worth keeping.
type collector interface {
	collect(ctx context.Context, index int, code, url string) (col models.HistoryCollection, ok bool, err error)
}

// Crawler discovers a site's history collections by probing index numbers
type Crawler struct {
	site      *config.SiteConfig
	collector collector
	logger    logger.Logger
}

// NewCrawler builds the crawler matching the site's history kind
func NewCrawler(site *config.SiteConfig, fetcher Fetcher, cookies []config.Cookie, log logger.Logger) (*Crawler, error) {
	if site.History == nil {
		return nil, fmt.Errorf("site %s has no history collections", site.ID)
	}
	log = logger.OrDefault(log).WithFields(map[string]interface{}{"site": site.ID, "component": "history"})

	c := &Crawler{site: site, logger: log}
	switch site.History.Kind {
	case config.HistoryAPI:
		c.collector = &apiCollector{fetcher: fetcher, cookies: cookies}
	case config.HistoryHTML:
		c.collector = &htmlCollector{fetcher: fetcher, cookies: cookies}
	default:
		return nil, fmt.Errorf("site %s: unsupported history kind %q", site.ID, site.History.Kind)
	}
	return c, nil
}

// Bounds returns the index range probed given the indexes already known
func (c *Crawler) Bounds(known []models.HistoryCollection) (first, last int) {
	h := c.site.History
	highest := 0
	for _, col := range known {
		if col.Index > highest {
			highest = col.Index
		}
	}
	last = highest + h.ScanAhead
	if last < h.MinLastIndex {
		last = h.MinLastIndex
	}
	return h.FirstIndex, last
}

// Crawl probes every unknown index in Bounds and returns known plus the new
// collections, sorted by index, along with how many were added. The first
// fetch or layout failure ends the probe; what was gathered so far is kept.
func (c *Crawler) Crawl(ctx context.Context, known []models.HistoryCollection) ([]models.HistoryCollection, int, error) {
	seen := make(map[int]bool, len(known))
	for _, col := range known {
		seen[col.Index] = true
	}
	out := append([]models.HistoryCollection(nil), known...)
	first, last := c.Bounds(known)

	added := 0
	for index := first; index <= last; index++ {
		if seen[index] {
			continue
		}
		if err := ctx.Err(); err != nil {
			Sort(out)
			return out, added, err
		}

		code, url := c.site.HistoryURL(index)
		col, ok, err := c.collector.collect(ctx, index, code, url)
		if err != nil {
			c.logger.WithError(err).InfoWithFields("history probe stopped", map[string]interface{}{
				"index": index,
				"code":  code,
			})
			break
		}
		if !ok {
			continue
		}
		out = append(out, col)
		added++
		c.logger.InfoWithFields("history collection found", map[string]interface{}{
			"index":  index,
			"title":  col.Title,
			"images": len(col.Images),
		})
	}

	Sort(out)
	return out, added, nil
}

// Sort orders collections by index
func Sort(cols []models.HistoryCollection) {
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Index < cols[j].Index })
}

// Load reads a history snapshot; a missing file is empty
func Load(path string) ([]models.HistoryCollection, error) {
	var cols []models.HistoryCollection
	if _, err := storage.ReadJSON(path, &cols); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return cols, nil
}

// Save atomically rewrites a history snapshot sorted by index
func Save(path string, cols []models.HistoryCollection) error {
	if cols == nil {
		cols = []models.HistoryCollection{}
	}
	Sort(cols)
	if err := storage.WriteJSON(path, cols); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Update loads the snapshot at path, crawls for new collections and saves
// the result when anything was added
func (c *Crawler) Update(ctx context.Context, path string) ([]models.HistoryCollection, int, error) {
	known, err := Load(path)
	if err != nil {
		return nil, 0, err
	}
	cols, added, crawlErr := c.Crawl(ctx, known)
	if added > 0 {
		if err := Save(path, cols); err != nil {
			return cols, added, err
		}
	}
	return cols, added, crawlErr
}

func fullSize(src string) string {
	return strings.ReplaceAll(strings.TrimSpace(src), thumbnailSegment, "")
}
