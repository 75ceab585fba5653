package history

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"diarykeeper/pkg/config"
	"diarykeeper/pkg/fetch"
	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/models"
	"diarykeeper/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requestLog struct {
	mu    sync.Mutex
	codes []string
}

func (r *requestLog) add(code string) {
	r.mu.Lock()
	r.codes = append(r.codes, code)
	r.mu.Unlock()
}

func (r *requestLog) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.codes...)
}

func siteFor(t *testing.T, id, home string) *config.SiteConfig {
	t.Helper()
	site, err := config.DefaultConfig().Site(id)
	require.NoError(t, err)
	site.HomePage = home
	return site
}

func newClient() *fetch.Client {
	return fetch.NewClient(config.DefaultConfig().Fetch, ratelimit.Unlimited{}, logger.NewNopLogger())
}

const apiCollection = `{"history_photo":[
 {"title":"デビュー前[1/2]","image_src":"https://cdn.example.com/img/750_750_102400/a.jpg","code":"h0101"},
 {"title":"デビュー前[2/2]","image_src":"https://cdn.example.com/img/750_750_102400/b.jpg","code":1102}
]}`

func TestAPICrawl(t *testing.T) {
	seen := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("ct")
		seen.add(code)
		w.Header().Set("Content-Type", "application/json")
		switch code {
		case "fc_photo_1", "fc_photo_3":
			fmt.Fprint(w, apiCollection)
		case "fc_photo_2":
			fmt.Fprint(w, `{"history_photo":[]}`)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c, err := NewCrawler(siteFor(t, "Hinatazaka46", srv.URL), newClient(), nil, logger.NewNopLogger())
	require.NoError(t, err)

	cols, added, err := c.Crawl(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"fc_photo_1", "fc_photo_2", "fc_photo_3", "fc_photo_4"}, seen.list())

	require.Len(t, cols, 2)
	col := cols[0]
	assert.Equal(t, 1, col.Index)
	assert.Equal(t, "fc_photo_1", col.Code)
	assert.Equal(t, "デビュー前", col.Title)
	require.Len(t, col.Images, 2)
	assert.Equal(t, models.HistoryImage{PhotoIndex: 0, ImageSrc: "https://cdn.example.com/img/a.jpg", Title: "h0101.jpg"}, col.Images[0])
	assert.Equal(t, "1102.jpg", col.Images[1].Title)
	assert.Equal(t, 3, cols[1].Index)
}

func TestAPICrawlSkipsKnownAndScansAhead(t *testing.T) {
	seen := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.add(r.URL.Query().Get("ct"))
		fmt.Fprint(w, `{"history_photo":[]}`)
	}))
	defer srv.Close()

	c, err := NewCrawler(siteFor(t, "Hinatazaka46", srv.URL), newClient(), nil, logger.NewNopLogger())
	require.NoError(t, err)

	known := []models.HistoryCollection{{Index: 2, Title: "b"}, {Index: 1, Title: "a"}}
	first, last := c.Bounds(known)
	assert.Equal(t, 1, first)
	assert.Equal(t, 7, last)

	cols, added, err := c.Crawl(context.Background(), known)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, []string{"fc_photo_3", "fc_photo_4", "fc_photo_5", "fc_photo_6", "fc_photo_7"}, seen.list())
	assert.Equal(t, 1, cols[0].Index)
}

const sakuraPage = `<html><body>
<div class="headarea">
  櫻坂46 2nd YEAR
</div>
<p class="lead">二年目の記録</p>
<div class="sakura-history-detail-list">
  <span class="c-thumb-img" data-download-image-path="/files/14/s46/750_750_102400/p0.jpg"></span>
  <span class="c-thumb-img" data-download-image-path=""></span>
  <span class="c-thumb-img" data-download-image-path="/files/14/s46/750_750_102400/p2.jpg"></span>
</div>
</body></html>`

func TestHTMLCrawl(t *testing.T) {
	seen := &requestLog{}
	var cookieHeader string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("ct")
		seen.add(code)
		mu.Lock()
		cookieHeader = r.Header.Get("Cookie")
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if code == "fc_photo_027" {
			fmt.Fprint(w, sakuraPage)
			return
		}
		fmt.Fprint(w, `<html><body><p>maintenance</p></body></html>`)
	}))
	defer srv.Close()

	cookies := []config.Cookie{{Name: "session", Value: "abc"}}
	c, err := NewCrawler(siteFor(t, "Sakurazaka46", srv.URL), newClient(), cookies, logger.NewNopLogger())
	require.NoError(t, err)

	known := []models.HistoryCollection{{Index: 28, Code: "fc_photo_028", Title: "known"}}
	cols, added, err := c.Crawl(context.Background(), known)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, []string{"fc_photo_027", "fc_photo_029"}, seen.list())
	mu.Lock()
	assert.Equal(t, "session=abc", cookieHeader)
	mu.Unlock()

	require.Len(t, cols, 2)
	col := cols[0]
	assert.Equal(t, 27, col.Index)
	assert.Equal(t, "櫻坂46 2nd YEAR", col.Title)
	assert.Equal(t, "二年目の記録", col.Intro)
	require.Len(t, col.Images, 2)
	assert.Equal(t, srv.URL+"/files/14/s46/p0.jpg", col.Images[0].ImageSrc)
	assert.Equal(t, "fc_photo_027_0.jpg", col.Images[0].Title)
	assert.Equal(t, 2, col.Images[1].PhotoIndex)
	assert.Equal(t, "fc_photo_027_2.jpg", col.Images[1].Title)
	assert.Equal(t, 28, cols[1].Index)
}

func TestNewCrawlerRequiresHistory(t *testing.T) {
	_, err := NewCrawler(siteFor(t, "Nogizaka46", "https://example.com"), newClient(), nil, nil)
	assert.Error(t, err)
}

func TestUpdateSavesSortedSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ct") == "fc_photo_1" {
			fmt.Fprint(w, apiCollection)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "Hinatazaka46", "history.json")
	require.NoError(t, Save(path, []models.HistoryCollection{{Index: 4, Title: "later"}}))

	c, err := NewCrawler(siteFor(t, "Hinatazaka46", srv.URL), newClient(), nil, logger.NewNopLogger())
	require.NoError(t, err)

	_, added, err := c.Update(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 1, loaded[0].Index)
	assert.Equal(t, 4, loaded[1].Index)
}

func TestLoadMissingFile(t *testing.T) {
	cols, err := Load(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Empty(t, cols)
}
