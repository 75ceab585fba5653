// Package catalog is the deduplicating post store and its persistence.
//
// A crawl run seeds a Catalog from the last snapshot with FromMembers, lets
// lanes add posts through InsertIfAbsent, and calls Persist only when
// CountNew is positive. Persist regroups posts by author, splits umbrella
// labels across the individuals they stand for, and atomically rewrites the
// snapshot file.
package catalog
