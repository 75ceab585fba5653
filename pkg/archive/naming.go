package archive

import (
	"path"
	"strings"
	"unicode/utf8"
)

// MaxBaseLength caps the base part of archived file names, in characters
const MaxBaseLength = 52

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

// placeholderNames are generic base names sites reuse across unrelated posts
var placeholderNames = map[string]bool{
	"0000": true, "0001": true, "0002": true, "0003": true, "0004": true,
	"0005": true, "0006": true, "0007": true, "0008": true, "0009": true,
}

// AllowedExtension reports whether ext (with the dot, any case) is an archivable image type
func AllowedExtension(ext string) bool {
	return allowedExtensions[strings.ToLower(ext)]
}

// FileName derives the archive file name of an image from its URL path.
// Placeholder bases are prefixed with the post ID; long bases are cut to
// MaxBaseLength characters. The extension is lower-cased.
func FileName(urlPath, postID string) string {
	ext := strings.ToLower(path.Ext(urlPath))
	base := strings.TrimSuffix(path.Base(urlPath), path.Ext(urlPath))
	if base == "." || base == "/" {
		base = ""
	}

	switch {
	case placeholderNames[base]:
		return postID + "_" + base + ext
	case utf8.RuneCountInString(base) > MaxBaseLength:
		return truncate(base, MaxBaseLength) + ext
	}
	return base + ext
}

// truncate keeps the first n runes of s
func truncate(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
