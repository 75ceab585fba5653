package catalog

import (
	"fmt"
	"sync"

	"diarykeeper/pkg/storage"
)

// DesiredList is the set of member names chosen for export, kept in a JSON array file
type DesiredList struct {
	mu    sync.Mutex
	path  string
	names []string
}

// LoadDesiredList reads the list at path. A missing file yields an empty list.
func LoadDesiredList(path string) (*DesiredList, error) {
	d := &DesiredList{path: path}
	if _, err := storage.ReadJSON(path, &d.names); err != nil {
		return nil, fmt.Errorf("failed to load desired member list: %w", err)
	}
	return d, nil
}

// Names returns the names in insertion order
func (d *DesiredList) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.names...)
}

// Contains reports whether name is on the list
func (d *DesiredList) Contains(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.indexOf(name) >= 0
}

// Add appends name and saves the list. Adding a present name is a no-op returning false.
func (d *DesiredList) Add(name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.indexOf(name) >= 0 {
		return false, nil
	}
	d.names = append(d.names, name)
	return true, d.save()
}

// Remove deletes name and saves the list, returning false when it was absent
func (d *DesiredList) Remove(name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexOf(name)
	if i < 0 {
		return false, nil
	}
	d.names = append(d.names[:i], d.names[i+1:]...)
	return true, d.save()
}

func (d *DesiredList) indexOf(name string) int {
	for i, n := range d.names {
		if n == name {
			return i
		}
	}
	return -1
}

func (d *DesiredList) save() error {
	names := d.names
	if names == nil {
		names = []string{}
	}
	if err := storage.WriteJSON(d.path, names); err != nil {
		return fmt.Errorf("failed to save desired member list: %w", err)
	}
	return nil
}
