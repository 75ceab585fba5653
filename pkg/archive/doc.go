// Package archive collects diary and history images into zip archives.
//
// Images are fetched on a bounded pool with a fixed number of retries per
// image; images that still fail are dropped from the archive rather than
// failing it. File names come from the image URL (see FileName) and file
// times from the owning post, shifted by the configured offset.
package archive
