// Package retry repeats failing operations with a backoff between attempts.
//
// Asset downloads use Fixed(attempts, delay); page fetches that should
// back off harder use DefaultConfig, whose predicate skips errors typed as
// auth, not_found or structure failures.
package retry
