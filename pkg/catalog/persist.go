package catalog

import (
	"fmt"
	"sort"
	"strings"

	"diarykeeper/pkg/models"
	"diarykeeper/pkg/storage"
)

// Group builds the member list for a catalog. Posts are grouped by author
// and sorted by timestamp, then ID. Authors listed in umbrellas are split
// across their individuals: the individual named earliest in the
// whitespace-stripped title wins, then the earliest in the stripped body,
// and otherwise individuals[k mod m] for the post's position k in the group.
func Group(c *Catalog, group string, umbrellas map[string][]string) []models.Member {
	byAuthor := make(map[string][]models.Post)
	for _, p := range c.Posts() {
		byAuthor[p.Author] = append(byAuthor[p.Author], p)
	}

	authors := make([]string, 0, len(byAuthor))
	for author := range byAuthor {
		authors = append(authors, author)
	}
	sort.Strings(authors)

	var members []models.Member
	index := make(map[string]int)
	memberFor := func(name string) *models.Member {
		i, ok := index[name]
		if !ok {
			i = len(members)
			index[name] = i
			members = append(members, models.Member{Name: name, Group: group, Posts: []models.Post{}})
		}
		return &members[i]
	}

	for _, author := range authors {
		posts := byAuthor[author]
		sortPosts(posts)

		individuals := umbrellas[author]
		if len(individuals) == 0 {
			m := memberFor(author)
			m.Posts = append(m.Posts, posts...)
			continue
		}
		for k, p := range posts {
			name := Disambiguate(p, k, individuals)
			m := memberFor(name)
			m.Posts = append(m.Posts, p)
		}
	}

	// An individual can also post under their own name, so merged lists are re-sorted
	for i := range members {
		sortPosts(members[i].Posts)
	}
	return members
}

// Disambiguate picks the individual for the post at position k of a sorted umbrella group
func Disambiguate(p models.Post, k int, individuals []string) string {
	if name := firstKeyword(models.StripSpace(p.Title), individuals); name != "" {
		return name
	}
	if name := firstKeyword(models.StripSpace(p.Content), individuals); name != "" {
		return name
	}
	return individuals[k%len(individuals)]
}

// firstKeyword returns the keyword occurring earliest in s; ties go to the earlier keyword
func firstKeyword(s string, keywords []string) string {
	best, bestIndex := "", -1
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if i := strings.Index(s, kw); i >= 0 && (bestIndex < 0 || i < bestIndex) {
			best, bestIndex = kw, i
		}
	}
	return best
}

func sortPosts(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if c := posts[i].Timestamp.Compare(posts[j].Timestamp); c != 0 {
			return c < 0
		}
		return posts[i].ID < posts[j].ID
	})
}

// Persist groups the catalog and rewrites the snapshot at path in full
func Persist(c *Catalog, group, path string, umbrellas map[string][]string) ([]models.Member, error) {
	members := Group(c, group, umbrellas)
	if err := SaveSnapshot(path, members); err != nil {
		return nil, err
	}
	return members, nil
}

// LoadSnapshot reads a snapshot file. A missing file is an empty snapshot.
func LoadSnapshot(path string) ([]models.Member, error) {
	var members []models.Member
	if _, err := storage.ReadJSON(path, &members); err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return members, nil
}

// SaveSnapshot atomically replaces the snapshot file
func SaveSnapshot(path string, members []models.Member) error {
	if members == nil {
		members = []models.Member{}
	}
	if err := storage.WriteJSON(path, members); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
