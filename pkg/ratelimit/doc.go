// Package ratelimit paces requests sent to the fan-club sites.
//
// Every fetcher shares one TokenBucket per process so that concurrent crawl
// lanes and archive workers together stay under the configured rate.
package ratelimit
