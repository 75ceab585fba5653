// Package source adapts each fan-club site to the ListingSource capability
// consumed by the crawl scheduler. HTMLSource covers server-rendered
// listings through configurable selectors; JSONPSource covers the offset
// paged JSONP feed. Both also act as the post extractor, reporting
// ErrDuplicate, ErrSkip or ErrStructure so the scheduler can decide whether
// a lane continues.
package source
