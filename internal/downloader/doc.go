// Package downloader fetches batches of assets on a bounded worker pool,
// retrying each one according to a retry.Config and reporting results in
// submission order.
package downloader
