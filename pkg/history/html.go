package history

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"diarykeeper/pkg/config"
	"diarykeeper/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

const (
	containerSelector = "div.sakura-history-detail-list"
	titleSelector     = "div.headarea"
	introSelector     = "p.lead"
	photoSelector     = "span.c-thumb-img"
	photoAttr         = "data-download-image-path"
)

// htmlCollector reads collections from a contents page
type htmlCollector struct {
	fetcher Fetcher
	cookies []config.Cookie
}

func (h *htmlCollector) collect(ctx context.Context, index int, code, pageURL string) (models.HistoryCollection, bool, error) {
	doc, err := h.fetcher.Document(ctx, pageURL, h.cookies)
	if err != nil {
		return models.HistoryCollection{}, false, err
	}
	container := doc.Find(containerSelector).First()
	if container.Length() == 0 {
		return models.HistoryCollection{}, false, fmt.Errorf("%w: %s missing", ErrStructure, containerSelector)
	}

	col := models.HistoryCollection{
		Index:  index,
		Code:   code,
		Title:  strings.TrimSpace(doc.Find(titleSelector).First().Text()),
		Intro:  strings.TrimSpace(doc.Find(introSelector).First().Text()),
		Images: []models.HistoryImage{},
	}
	container.Find(photoSelector).Each(func(i int, s *goquery.Selection) {
		src := fullSize(s.AttrOr(photoAttr, ""))
		if src == "" {
			return
		}
		col.Images = append(col.Images, models.HistoryImage{
			PhotoIndex: i,
			ImageSrc:   absolute(doc.Url, src),
			Title:      fmt.Sprintf("%s_%d.jpg", code, i),
		})
	})
	return col, true, nil
}

func absolute(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
