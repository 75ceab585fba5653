package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"diarykeeper/pkg/config"
	errs "diarykeeper/pkg/errors"
	"diarykeeper/pkg/logger"
	"diarykeeper/pkg/ratelimit"

	"github.com/PuerkitoBio/goquery"
	"github.com/corpix/uarand"
	"golang.org/x/net/html/charset"
)

// Client fetches listing pages, detail pages, JSON feeds and image bytes
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	randomUA   bool
	maxBody    int64
	logger     logger.Logger
}

// NewClient creates a page fetcher. A nil limiter disables pacing.
func NewClient(cfg config.FetchConfig, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":      ua,
			"Accept":          "text/html,application/xhtml+xml,application/json;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "ja,en-US;q=0.8,en;q=0.6",
			"Cache-Control":   "no-cache",
		},
		limiter:  limiter,
		randomUA: cfg.RandomUserAgent,
		maxBody:  cfg.MaxBodySize,
		logger:   logger.OrDefault(log).WithField("component", "fetch"),
	}
}

// do sends a GET and returns the response once its status is known to be 2xx
func (c *Client) do(ctx context.Context, url string, cookies []config.Cookie) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.randomUA {
		req.Header.Set("User-Agent", uarand.GetRandom())
	}
	if header := CookieHeader(cookies); header != "" {
		req.Header.Set("Cookie", header)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	logger.LogRequest(c.logger, req.Method, url, resp.StatusCode, time.Since(start))

	if err := checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// checkResponseStatus maps non-2xx statuses onto typed errors
func checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return errs.New(errs.TypeForStatus(resp.StatusCode), resp.StatusCode,
		"unexpected status %d for %s", resp.StatusCode, resp.Request.URL)
}

func (c *Client) readAll(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if c.maxBody > 0 {
		r = io.LimitReader(resp.Body, c.maxBody+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}
	if c.maxBody > 0 && int64(len(body)) > c.maxBody {
		return nil, errs.New(errs.ErrorTypeParsing, resp.StatusCode, "response body exceeds %d bytes", c.maxBody)
	}
	return body, nil
}

// Body returns the raw response body of a successful GET
func (c *Client) Body(ctx context.Context, url string, cookies []config.Cookie) ([]byte, error) {
	resp, err := c.do(ctx, url, cookies)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return c.readAll(resp)
}

// Fetch downloads an asset such as an image, without site cookies
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	return c.Body(ctx, url, nil)
}

// Document fetches url and parses it as HTML, decoding legacy charsets to UTF-8
func (c *Client) Document(ctx context.Context, url string, cookies []config.Cookie) (*goquery.Document, error) {
	resp, err := c.do(ctx, url, cookies)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := c.readAll(resp)
	if err != nil {
		return nil, err
	}
	utf8Reader, err := charset.NewReader(bytes.NewReader(body), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to decode charset: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse HTML: %v", err)
	}
	doc.Url = resp.Request.URL
	return doc, nil
}

// JSON fetches url and decodes the body into target
func (c *Client) JSON(ctx context.Context, url string, cookies []config.Cookie, target interface{}) error {
	body, err := c.Body(ctx, url, cookies)
	if err != nil {
		return err
	}
	return decodeJSON(body, target)
}

// JSONP fetches a callback-wrapped JSON payload such as `res({...});` and decodes it into target
func (c *Client) JSONP(ctx context.Context, url string, cookies []config.Cookie, target interface{}) error {
	body, err := c.Body(ctx, url, cookies)
	if err != nil {
		return err
	}
	payload, err := UnwrapJSONP(body)
	if err != nil {
		return err
	}
	return decodeJSON(payload, target)
}

func decodeJSON(body []byte, target interface{}) error {
	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return errs.New(errs.ErrorTypeParsing, 0, "failed to parse JSON: %v (body: %s)", err, preview)
	}
	return nil
}

// UnwrapJSONP strips the callback name and the surrounding parentheses
func UnwrapJSONP(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	open := bytes.IndexByte(trimmed, '(')
	closing := bytes.LastIndexByte(trimmed, ')')
	if open < 0 || closing <= open {
		return nil, errs.New(errs.ErrorTypeParsing, 0, "response is not a JSONP payload")
	}
	return trimmed[open+1 : closing], nil
}

// CookieHeader renders cookies as a Cookie request header value
func CookieHeader(cookies []config.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		if ck.Name == "" {
			continue
		}
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

// ParseCookieHeader splits a "name=value; name2=value2" header into cookies
func ParseCookieHeader(header string) []config.Cookie {
	var cookies []config.Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		cookies = append(cookies, config.Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	return cookies
}

// MergeCookies returns base overridden by extra, matching on name
func MergeCookies(base, extra []config.Cookie) []config.Cookie {
	out := make([]config.Cookie, 0, len(base)+len(extra))
	index := make(map[string]int, len(base)+len(extra))
	for _, ck := range append(append([]config.Cookie(nil), base...), extra...) {
		if i, ok := index[ck.Name]; ok {
			out[i] = ck
			continue
		}
		index[ck.Name] = len(out)
		out = append(out, ck)
	}
	return out
}
