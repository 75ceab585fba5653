// Package storage owns file persistence: atomic writes for snapshots and
// lists, plus the sinks that receive export archives.
//
// WriteFileAtomic writes through a temporary file and rename, so readers
// never observe a half-written snapshot. A Sink is either a LocalSink
// (a directory) or an S3Sink (a bucket and key prefix).
package storage
