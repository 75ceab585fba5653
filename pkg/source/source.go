package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"diarykeeper/pkg/config"
	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrDuplicate means the entry's post ID is already in the catalog
	ErrDuplicate = errors.New("post already in catalog")
	// ErrSkip means the entry is listing noise with no detail link
	ErrSkip = errors.New("listing entry has no detail link")
	// ErrStructure means an expected element was missing or the detail page could not be read
	ErrStructure = errors.New("unexpected page structure")
)

// Fetcher is the page fetcher contract the sources consume
type Fetcher interface {
	Document(ctx context.Context, url string, cookies []config.Cookie) (*goquery.Document, error)
	JSONP(ctx context.Context, url string, cookies []config.Cookie, target interface{}) error
}

// Entry is one item of a listing page, opaque to everything but the source that produced it
type Entry interface{}

// ListingSource is a site's paginated diary listing
type ListingSource interface {
	// Site returns the site definition the source was built from
	Site() *config.SiteConfig
	// FetchPage returns the entries of one listing page in document order.
	// An empty result means the listing is exhausted.
	FetchPage(ctx context.Context, page int) ([]Entry, error)
	// Extract turns an entry into a post. known reports whether an ID is
	// already catalogued; such entries yield ErrDuplicate.
	Extract(ctx context.Context, entry Entry, page int, known func(id string) bool) (models.Post, error)
}

// ContentSource can re-read the body markup of an already catalogued post
type ContentSource interface {
	Content(ctx context.Context, id string) (string, error)
}

// New builds the ListingSource for a site definition
func New(site *config.SiteConfig, fetcher Fetcher, cookies []config.Cookie, log logger.Logger) (ListingSource, error) {
	switch site.Kind {
	case config.KindHTML:
		return NewHTMLSource(site, fetcher, cookies, log)
	case config.KindJSONP:
		return NewJSONPSource(site, fetcher, cookies, log), nil
	default:
		return nil, fmt.Errorf("site %s: unsupported kind %q", site.ID, site.Kind)
	}
}

// imageFilter drops empty and deny-listed image references
type imageFilter map[string]struct{}

func newImageFilter(ignore []string) imageFilter {
	f := make(imageFilter, len(ignore))
	for _, src := range ignore {
		f[src] = struct{}{}
	}
	return f
}

// images collects img src attributes below sel in document order
func (f imageFilter) images(sel *goquery.Selection) []string {
	out := []string{}
	if sel == nil {
		return out
	}
	sel.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			return
		}
		if _, ignored := f[src]; ignored {
			return
		}
		out = append(out, src)
	})
	return out
}

// imagesInMarkup parses an HTML fragment and collects its images
func (f imageFilter) imagesInMarkup(markup string) []string {
	if strings.TrimSpace(markup) == "" {
		return []string{}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return []string{}
	}
	return f.images(doc.Selection)
}

func text(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(sel.Find(selector).First().Text())
}
