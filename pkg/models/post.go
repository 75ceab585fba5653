package models

import (
	"strings"
	"unicode"
)

// Post is one diary entry. JSON keys match the snapshot files written by
// earlier versions of the tool so existing data directories keep loading.
type Post struct {
	ID        string    `json:"ID"`
	Author    string    `json:"Name"`
	Title     string    `json:"Title"`
	Timestamp Timestamp `json:"DateTime"`
	Images    []string  `json:"ImageList"`
	Content   string    `json:"Content,omitempty"`
}

// Member owns the posts attributed to one person after disambiguation
type Member struct {
	Name  string `json:"Name"`
	Group string `json:"Group"`
	Posts []Post `json:"BlogList"`
}

// ImageCount returns the number of image references across all posts
func (m *Member) ImageCount() int {
	n := 0
	for _, p := range m.Posts {
		n += len(p.Images)
	}
	return n
}

// Latest returns the newest post timestamp, or a zero Timestamp for an empty member
func (m *Member) Latest() Timestamp {
	var latest Timestamp
	for _, p := range m.Posts {
		if p.Timestamp.After(latest.Time) {
			latest = p.Timestamp
		}
	}
	return latest
}

// StripSpace removes every whitespace rune, including full-width spaces
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// PostIDFromPath returns the trailing path segment of a detail URL path
func PostIDFromPath(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
