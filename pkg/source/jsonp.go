package source

import (
	"context"
	"fmt"

	"diarykeeper/pkg/config"
	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/models"
)

// Record is one post in a JSONP listing feed
type Record struct {
	Code  string `json:"code"`
	Title string `json:"title"`
	Name  string `json:"name"`
	Date  string `json:"date"`
	Text  string `json:"text"`
}

type recordList struct {
	Data []Record `json:"data"`
}

// JSONPSource reads a callback-wrapped JSON listing paged by offset
type JSONPSource struct {
	site    *config.SiteConfig
	fetcher Fetcher
	cookies []config.Cookie
	filter  imageFilter
	logger  logger.Logger
}

// NewJSONPSource creates a source for a jsonp-kind site
func NewJSONPSource(site *config.SiteConfig, fetcher Fetcher, cookies []config.Cookie, log logger.Logger) *JSONPSource {
	return &JSONPSource{
		site:    site,
		fetcher: fetcher,
		cookies: cookies,
		filter:  newImageFilter(site.IgnoreImages),
		logger:  logger.OrDefault(log).WithField("site", site.ID),
	}
}

func (s *JSONPSource) Site() *config.SiteConfig { return s.site }

func (s *JSONPSource) FetchPage(ctx context.Context, page int) ([]Entry, error) {
	var list recordList
	if err := s.fetcher.JSONP(ctx, s.site.ListPageURL(page), s.cookies, &list); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(list.Data))
	for _, rec := range list.Data {
		entries = append(entries, rec)
	}
	return entries, nil
}

func (s *JSONPSource) Extract(ctx context.Context, entry Entry, page int, known func(id string) bool) (models.Post, error) {
	rec, ok := entry.(Record)
	if !ok {
		return models.Post{}, fmt.Errorf("jsonp source got %T entry", entry)
	}
	if rec.Code == "" {
		return models.Post{}, ErrSkip
	}
	if known(rec.Code) {
		return models.Post{}, ErrDuplicate
	}

	author := models.StripSpace(rec.Name)
	if author == "" {
		author = "Unknown"
	}
	post := models.Post{
		ID:        rec.Code,
		Author:    author,
		Title:     rec.Title,
		Timestamp: models.ParseTimestamp(rec.Date, s.site.DateLayout, s.site.JapanTime),
		Images:    s.filter.imagesInMarkup(rec.Text),
	}
	if post.Timestamp.IsZero() {
		s.logger.WarnWithFields("unparsable post date", map[string]interface{}{
			"post_id": rec.Code,
			"date":    rec.Date,
		})
	}
	if s.site.KeepContent {
		post.Content = rec.Text
	}
	return post, nil
}
