package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"diarykeeper/pkg/config"
	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

// HTMLSource reads a server-rendered listing with CSS selectors
type HTMLSource struct {
	site    *config.SiteConfig
	fetcher Fetcher
	cookies []config.Cookie
	home    *url.URL
	filter  imageFilter
	logger  logger.Logger
}

// NewHTMLSource creates a source for an html-kind site
func NewHTMLSource(site *config.SiteConfig, fetcher Fetcher, cookies []config.Cookie, log logger.Logger) (*HTMLSource, error) {
	home, err := url.Parse(site.Home() + "/")
	if err != nil {
		return nil, fmt.Errorf("site %s: invalid home page: %w", site.ID, err)
	}
	return &HTMLSource{
		site:    site,
		fetcher: fetcher,
		cookies: cookies,
		home:    home,
		filter:  newImageFilter(site.IgnoreImages),
		logger:  logger.OrDefault(log).WithField("site", site.ID),
	}, nil
}

func (s *HTMLSource) Site() *config.SiteConfig { return s.site }

func (s *HTMLSource) FetchPage(ctx context.Context, page int) ([]Entry, error) {
	doc, err := s.fetcher.Document(ctx, s.site.ListPageURL(page), s.cookies)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	doc.Find(s.site.Listing.Entry).Each(func(_ int, sel *goquery.Selection) {
		if s.site.Listing.ExactClass != "" && sel.AttrOr("class", "") != s.site.Listing.ExactClass {
			return
		}
		entries = append(entries, sel)
	})
	return entries, nil
}

func (s *HTMLSource) Extract(ctx context.Context, entry Entry, page int, known func(id string) bool) (models.Post, error) {
	sel, ok := entry.(*goquery.Selection)
	if !ok {
		return models.Post{}, fmt.Errorf("html source got %T entry", entry)
	}

	href, _ := sel.Find(s.site.Listing.Link).First().Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return models.Post{}, ErrSkip
	}
	ref, err := url.Parse(href)
	if err != nil {
		return models.Post{}, ErrSkip
	}
	detailURL := s.home.ResolveReference(ref)
	id := models.PostIDFromPath(detailURL.Path)
	if id == "" {
		return models.Post{}, ErrSkip
	}
	if known(id) {
		return models.Post{}, ErrDuplicate
	}

	author := models.StripSpace(text(sel, s.site.Listing.Author))
	if author == "" {
		author = "Unknown"
	}
	title := text(sel, s.site.Listing.Title)
	dateText := text(sel, s.site.Listing.Date)

	var body *goquery.Selection
	if s.site.Listing.Body != "" {
		if found := sel.Find(s.site.Listing.Body).First(); found.Length() > 0 {
			body = found
		}
	}
	images := s.filter.images(body)

	switch s.site.Detail.Mode {
	case config.DetailAlways:
		doc, err := s.detail(ctx, detailURL)
		if err != nil {
			return models.Post{}, fmt.Errorf("%w: post %s: %v", ErrStructure, id, err)
		}
		for _, required := range s.site.Detail.Require {
			if doc.Find(required).Length() == 0 {
				return models.Post{}, fmt.Errorf("%w: post %s: %q not found", ErrStructure, id, required)
			}
		}
		detailBody := doc.Find(s.site.Detail.Body).First()
		if detailBody.Length() == 0 {
			return models.Post{}, fmt.Errorf("%w: post %s: %q not found", ErrStructure, id, s.site.Detail.Body)
		}
		body = detailBody
		images = s.filter.images(body)
		if d := text(doc.Selection, s.site.Detail.Date); d != "" {
			dateText = d
		}
		if t := text(doc.Selection, s.site.Detail.Title); t != "" {
			title = t
		}

	case config.DetailThreshold:
		if len(images) > s.site.Detail.ImageThreshold {
			s.logger.WarnWithFields("image count above threshold, reading detail page", map[string]interface{}{
				"post_id": id,
				"images":  len(images),
			})
			doc, err := s.detail(ctx, detailURL)
			if err == nil {
				if detailBody := doc.Find(s.site.Detail.Body).First(); detailBody.Length() > 0 {
					body = detailBody
					images = s.filter.images(body)
				}
			} else {
				s.logger.WithError(err).WarnWithFields("detail page unavailable, keeping listing images", map[string]interface{}{
					"post_id": id,
				})
			}
		}
	}

	post := models.Post{
		ID:        id,
		Author:    author,
		Title:     title,
		Timestamp: models.ParseTimestamp(dateText, s.site.DateLayout, s.site.JapanTime),
		Images:    images,
	}
	if post.Timestamp.IsZero() {
		s.logger.WarnWithFields("unparsable post date", map[string]interface{}{
			"post_id": id,
			"date":    dateText,
		})
	}
	if s.site.KeepContent && body != nil {
		post.Content, _ = body.Html()
	}
	return post, nil
}

// Content re-reads the body markup of a catalogued post from its detail page
func (s *HTMLSource) Content(ctx context.Context, id string) (string, error) {
	raw := s.site.DetailURL(id)
	if raw == "" || s.site.Detail.Body == "" {
		return "", fmt.Errorf("site %s has no detail page template", s.site.ID)
	}
	doc, err := s.fetcher.Document(ctx, raw, s.cookies)
	if err != nil {
		return "", err
	}
	body := doc.Find(s.site.Detail.Body).First()
	if body.Length() == 0 {
		return "", fmt.Errorf("%w: post %s: %q not found", ErrStructure, id, s.site.Detail.Body)
	}
	return body.Html()
}

func (s *HTMLSource) detail(ctx context.Context, u *url.URL) (*goquery.Document, error) {
	target := u.String()
	if s.site.Detail.URLSuffix != "" && u.RawQuery == "" {
		target += s.site.Detail.URLSuffix
	}
	start := time.Now()
	doc, err := s.fetcher.Document(ctx, target, s.cookies)
	if err == nil {
		s.logger.DebugWithFields("detail page read", map[string]interface{}{
			"url":      target,
			"duration": time.Since(start),
		})
	}
	return doc, err
}
