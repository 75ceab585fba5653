// Package fetch is the page fetcher shared by crawlers, history collectors
// and the asset archiver. It paces requests through a ratelimit.Limiter,
// decodes pages to UTF-8 before handing them to goquery, and reports
// failures as typed errors from pkg/errors.
package fetch
