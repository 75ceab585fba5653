package catalog

import (
	"sort"
	"sync"

	"diarykeeper/pkg/models"
)

// Catalog is the ID-keyed post store for one crawl run. Lanes share it and
// only ever add entries; existing posts are never replaced.
type Catalog struct {
	mu    sync.RWMutex
	posts map[string]models.Post
}

// New returns an empty catalog
func New() *Catalog {
	return &Catalog{posts: make(map[string]models.Post)}
}

// FromMembers flattens a snapshot into a catalog. When an ID appears more
// than once the first occurrence wins.
func FromMembers(members []models.Member) *Catalog {
	c := New()
	for _, m := range members {
		for _, p := range m.Posts {
			c.InsertIfAbsent(p)
		}
	}
	return c
}

// Merge returns a catalog holding every post of the snapshot plus the new
// posts whose IDs it does not already contain
func Merge(existing []models.Member, posts []models.Post) *Catalog {
	c := FromMembers(existing)
	for _, p := range posts {
		c.InsertIfAbsent(p)
	}
	return c
}

// InsertIfAbsent stores p unless its ID is present, reporting whether it was stored
func (c *Catalog) InsertIfAbsent(p models.Post) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.posts[p.ID]; ok {
		return false
	}
	c.posts[p.ID] = p
	return true
}

// Has reports whether id is catalogued
func (c *Catalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.posts[id]
	return ok
}

// Get returns the post with id
func (c *Catalog) Get(id string) (models.Post, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.posts[id]
	return p, ok
}

// Count returns the number of posts
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.posts)
}

// Posts returns every post ordered by ID
func (c *Catalog) Posts() []models.Post {
	c.mu.RLock()
	out := make([]models.Post, 0, len(c.posts))
	for _, p := range c.posts {
		out = append(out, p)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MissingContent returns the IDs of posts with an empty body, ordered by ID
func (c *Catalog) MissingContent() []string {
	var ids []string
	for _, p := range c.Posts() {
		if p.Content == "" {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// FillContent sets the body of a post that has none. It never overwrites
// existing content and reports whether the post changed.
func (c *Catalog) FillContent(id, content string) bool {
	if content == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.posts[id]
	if !ok || p.Content != "" {
		return false
	}
	p.Content = content
	c.posts[id] = p
	return true
}

// CountNew returns how many posts c holds beyond those in the snapshot it was seeded from
func CountNew(snapshot []models.Member, c *Catalog) int {
	return c.Count() - FromMembers(snapshot).Count()
}
