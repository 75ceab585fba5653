package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"diarykeeper/pkg/config"
	"diarykeeper/pkg/fetch"
	"diarykeeper/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func none(string) bool { return false }

func newFetcher() *fetch.Client {
	return fetch.NewClient(config.FetchConfig{}, nil, logger.NewNopLogger())
}

func imgs(prefix string, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<img src="/files/%s_%d.jpg">`, prefix, i)
	}
	return b.String()
}

func thresholdSite(home string, threshold int) *config.SiteConfig {
	return &config.SiteConfig{
		ID:         "Hinatazaka46",
		Kind:       config.KindHTML,
		HomePage:   home,
		ListURL:    "{home}/list?page={page}",
		DateLayout: "2006.1.2 15:04",
		JapanTime:  true,
		Listing: config.ListingSelectors{
			Entry:  ".p-blog-group > .p-blog-article",
			Link:   "a.c-button-blog-detail",
			Author: "div.c-blog-article__name",
			Title:  "div.c-blog-article__title",
			Date:   "div.c-blog-article__date",
			Body:   "div.c-blog-article__text",
		},
		Detail: config.DetailConfig{
			Mode:           config.DetailThreshold,
			ImageThreshold: threshold,
			Body:           "div.c-blog-article__text",
			URLSuffix:      "?ima=0000",
			URL:            "{home}/detail/{id}?ima=0000",
		},
		KeepContent:  true,
		IgnoreImages: []string{"/static/dummy.gif"},
	}
}

func hinataListing(articles ...string) string {
	return `<html><body><div class="p-blog-group">` + strings.Join(articles, "") + `</div></body></html>`
}

func hinataArticle(id, author, title, date, body string) string {
	link := ""
	if id != "" {
		link = `<a class="c-button-blog-detail" href="/detail/` + id + `">more</a>`
	}
	return `<div class="p-blog-article">` + link +
		`<div class="c-blog-article__name"> ` + author + ` </div>` +
		`<div class="c-blog-article__title">` + title + `</div>` +
		`<div class="c-blog-article__date">` + date + `</div>` +
		`<div class="c-blog-article__text">` + body + `</div></div>`
}

func TestHTMLSourceFetchAndExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "0":
			fmt.Fprint(w, hinataListing(
				hinataArticle("101", "金村 美玖", "晴れ", "2024.3.5 18:30", imgs("a", 2)+`<img src="/static/dummy.gif">`),
				hinataArticle("", "noise", "", "", ""),
			))
		default:
			fmt.Fprint(w, `<html><body></body></html>`)
		}
	}))
	defer server.Close()

	src, err := New(thresholdSite(server.URL, 20), newFetcher(), nil, logger.NewNopLogger())
	require.NoError(t, err)

	entries, err := src.FetchPage(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	post, err := src.Extract(context.Background(), entries[0], 0, none)
	require.NoError(t, err)
	assert.Equal(t, "101", post.ID)
	assert.Equal(t, "金村美玖", post.Author)
	assert.Equal(t, "晴れ", post.Title)
	assert.Equal(t, "2024-03-05T17:30:00+08:00", post.Timestamp.String())
	assert.Equal(t, []string{"/files/a_0.jpg", "/files/a_1.jpg"}, post.Images)
	assert.Contains(t, post.Content, "a_0.jpg")

	_, err = src.Extract(context.Background(), entries[1], 0, none)
	assert.ErrorIs(t, err, ErrSkip)

	anon, err := src.Extract(context.Background(), entries[2], 0, none)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", anon.Author)

	_, err = src.Extract(context.Background(), entries[0], 0, func(id string) bool { return id == "101" })
	assert.ErrorIs(t, err, ErrDuplicate)

	empty, err := src.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHTMLSourceThresholdRefetchesDetail(t *testing.T) {
	var detailHits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/detail/") {
			atomic.AddInt32(&detailHits, 1)
			assert.Equal(t, "0000", r.URL.Query().Get("ima"))
			fmt.Fprint(w, `<div class="c-blog-article__text">`+imgs("full", 4)+`</div>`)
			return
		}
		fmt.Fprint(w, hinataListing(
			hinataArticle("201", "A", "many", "2024.3.5 18:30", imgs("cut", 3)),
			hinataArticle("202", "A", "few", "2024.3.5 18:30", imgs("cut", 2)),
		))
	}))
	defer server.Close()

	src, err := New(thresholdSite(server.URL, 2), newFetcher(), nil, logger.NewNopLogger())
	require.NoError(t, err)
	entries, err := src.FetchPage(context.Background(), 0)
	require.NoError(t, err)

	many, err := src.Extract(context.Background(), entries[0], 0, none)
	require.NoError(t, err)
	assert.Len(t, many.Images, 4)
	assert.Equal(t, "/files/full_0.jpg", many.Images[0])

	few, err := src.Extract(context.Background(), entries[1], 0, none)
	require.NoError(t, err)
	assert.Len(t, few.Images, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&detailHits))
}

func TestHTMLSourceThresholdKeepsListingImagesWhenDetailFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/detail/") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, hinataListing(hinataArticle("301", "A", "t", "2024.3.5 18:30", imgs("cut", 3))))
	}))
	defer server.Close()

	src, err := New(thresholdSite(server.URL, 2), newFetcher(), nil, logger.NewNopLogger())
	require.NoError(t, err)
	entries, err := src.FetchPage(context.Background(), 0)
	require.NoError(t, err)

	post, err := src.Extract(context.Background(), entries[0], 0, none)
	require.NoError(t, err)
	assert.Len(t, post.Images, 3)
}

func alwaysSite(home string) *config.SiteConfig {
	return &config.SiteConfig{
		ID:         "Sakurazaka46",
		Kind:       config.KindHTML,
		HomePage:   home,
		ListURL:    "{home}/list?page={page}",
		DateLayout: "2006/01/02 15:04",
		Listing: config.ListingSelectors{
			Entry:      "li.box",
			ExactClass: "box",
			Link:       "a",
			Author:     "p.name",
			Title:      "h3.title",
		},
		Detail: config.DetailConfig{
			Mode:    config.DetailAlways,
			Body:    "div.box-article",
			Date:    "div.blog-foot p.date.wf-a",
			Require: []string{"div.box-article", "div.blog-foot"},
		},
		KeepContent: true,
		Cookies:     []config.Cookie{{Name: "key", Value: "true"}},
	}
}

func TestHTMLSourceDetailAlways(t *testing.T) {
	var cookie atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie.Store(r.Header.Get("Cookie"))
		switch r.URL.Path {
		case "/list":
			fmt.Fprint(w, `<ul>
				<li class="box"><a href="/s/s46/diary/detail/55001"><p class="name">山田 桃実</p><h3 class="title">初ブログ</h3></a></li>
				<li class="box pickup"><a href="/s/s46/diary/detail/99999"></a></li>
				<li class="box"><a href="/s/s46/diary/detail/55002"><p class="name">山田 桃実</p></a></li>
			</ul>`)
		case "/s/s46/diary/detail/55001":
			fmt.Fprint(w, `<div class="box-article"><p>本文</p><img src="/files/55001_1.jpg"></div>
				<div class="blog-foot"><p class="date wf-a">2024/04/01 20:15</p></div>`)
		default:
			fmt.Fprint(w, `<div class="box-article">no foot</div>`)
		}
	}))
	defer server.Close()

	site := alwaysSite(server.URL)
	src, err := New(site, newFetcher(), site.Cookies, logger.NewNopLogger())
	require.NoError(t, err)

	entries, err := src.FetchPage(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2, "pickup entries are filtered by exact class")

	post, err := src.Extract(context.Background(), entries[0], 0, none)
	require.NoError(t, err)
	assert.Equal(t, "55001", post.ID)
	assert.Equal(t, "山田桃実", post.Author)
	assert.Equal(t, "初ブログ", post.Title)
	assert.Equal(t, "2024-04-01T20:15:00+08:00", post.Timestamp.String())
	assert.Equal(t, []string{"/files/55001_1.jpg"}, post.Images)
	assert.Contains(t, post.Content, "本文")
	assert.Equal(t, "key=true", cookie.Load())

	_, err = src.Extract(context.Background(), entries[1], 0, none)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStructure)
}

func TestHTMLSourceDetailFetchFailureIsStructural(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/list" {
			fmt.Fprint(w, `<li class="box"><a href="/detail/1"></a></li>`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	src, err := New(alwaysSite(server.URL), newFetcher(), nil, logger.NewNopLogger())
	require.NoError(t, err)
	entries, err := src.FetchPage(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = src.Extract(context.Background(), entries[0], 0, none)
	assert.True(t, errors.Is(err, ErrStructure))
}

func TestHTMLSourceContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/detail/42" {
			fmt.Fprint(w, `<div class="c-blog-article__text"><p>full body</p></div>`)
			return
		}
		fmt.Fprint(w, `<html></html>`)
	}))
	defer server.Close()

	src, err := New(thresholdSite(server.URL, 20), newFetcher(), nil, logger.NewNopLogger())
	require.NoError(t, err)
	cs, ok := src.(ContentSource)
	require.True(t, ok)

	content, err := cs.Content(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "<p>full body</p>", content)

	_, err = cs.Content(context.Background(), "43")
	assert.ErrorIs(t, err, ErrStructure)
}

func TestJSONPSource(t *testing.T) {
	var (
		mu      sync.Mutex
		offsets []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		offsets = append(offsets, r.URL.Query().Get("st"))
		mu.Unlock()
		if r.URL.Query().Get("st") != "0" {
			fmt.Fprint(w, `res({"count":"0","data":[]});`)
			return
		}
		fmt.Fprint(w, `res({"count":"2","data":[
			{"code":"102330","title":"こんにちは","name":"井上 和","date":"2024/05/01 21:00:00","text":"<p>hi</p><img src=\"/images/a.jpg\"><img src=\"\">"},
			{"code":"","title":"broken","name":"x","date":"","text":""},
			{"code":"102331","title":"anon","name":" ","date":"2024/05/02 20:00:00","text":""}
		]});`)
	}))
	defer server.Close()

	site := &config.SiteConfig{
		ID:          "Nogizaka46",
		Kind:        config.KindJSONP,
		HomePage:    server.URL,
		ListURL:     "{home}/api?rw=128&st={offset}&callback=res",
		PageSize:    128,
		DateLayout:  "2006/01/02 15:04:05",
		JapanTime:   true,
		KeepContent: true,
	}
	src, err := New(site, newFetcher(), nil, logger.NewNopLogger())
	require.NoError(t, err)

	entries, err := src.FetchPage(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	post, err := src.Extract(context.Background(), entries[0], 0, none)
	require.NoError(t, err)
	assert.Equal(t, "102330", post.ID)
	assert.Equal(t, "井上和", post.Author)
	assert.Equal(t, "2024-05-01T20:00:00+08:00", post.Timestamp.String())
	assert.Equal(t, []string{"/images/a.jpg"}, post.Images)
	assert.Contains(t, post.Content, "<p>hi</p>")

	_, err = src.Extract(context.Background(), entries[1], 0, none)
	assert.ErrorIs(t, err, ErrSkip)

	anon, err := src.Extract(context.Background(), entries[2], 0, none)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", anon.Author)

	next, err := src.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, next)
	mu.Lock()
	assert.Equal(t, []string{"0", "128"}, offsets)
	mu.Unlock()
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New(&config.SiteConfig{ID: "x", Kind: "rss"}, newFetcher(), nil, nil)
	assert.Error(t, err)
}
