package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"diarykeeper/pkg/config"
)

// Session holds the cookies a site needs for member-only pages
type Session struct {
	Site         string          `json:"site"`
	Cookies      []config.Cookie `json:"cookies"`
	LastModified time.Time       `json:"last_modified"`
}

// Store is a backend that keeps sessions keyed by site
type Store interface {
	Store(session *Session) error
	Retrieve(site string) (*Session, error)
	List() ([]*Session, error)
	Delete(site string) error
	Exists(site string) bool
}

// Errors
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// Manager stores sessions in the first backend that accepts them and reads
// from the first backend that has them
type Manager struct {
	stores []Store
}

// NewManager creates a manager backed by the system keyring when it works,
// an encrypted file in dir, and read-only environment variables. An empty
// dir means the per-user config directory.
func NewManager(dir string) (*Manager, error) {
	var stores []Store

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(dir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit backends, tried in order
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Store saves a session in the first backend that accepts it
func (m *Manager) Store(session *Session) error {
	if session == nil || session.Site == "" {
		return fmt.Errorf("%w: site is required", ErrInvalidSession)
	}
	if len(session.Cookies) == 0 {
		return fmt.Errorf("%w: at least one cookie is required", ErrInvalidSession)
	}
	session.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(session); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve returns the session for site from the first backend that has it
func (m *Manager) Retrieve(site string) (*Session, error) {
	for _, store := range m.stores {
		if session, err := store.Retrieve(site); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, fmt.Errorf("%w for site %s", ErrSessionNotFound, site)
}

// Cookies returns the stored cookies for site
func (m *Manager) Cookies(site string) ([]config.Cookie, error) {
	session, err := m.Retrieve(site)
	if err != nil {
		return nil, err
	}
	return session.Cookies, nil
}

// List returns the newest session per site across all backends, ordered by site
func (m *Manager) List() ([]*Session, error) {
	latest := make(map[string]*Session)
	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, s := range sessions {
			key := siteKey(s.Site)
			if existing, ok := latest[key]; !ok || s.LastModified.After(existing.LastModified) {
				latest[key] = s
			}
		}
	}

	out := make([]*Session, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return siteKey(out[i].Site) < siteKey(out[j].Site) })
	return out, nil
}

// Delete removes the site's session from every backend
func (m *Manager) Delete(site string) error {
	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(site); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}
	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for site %s", ErrSessionNotFound, site)
	}
	return nil
}

// ConfigDir returns the per-user configuration directory, creating it if needed
func ConfigDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "diarykeeper")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "diarykeeper")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "diarykeeper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "diarykeeper")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Sanitize returns a copy of the session with cookie values masked
func Sanitize(session *Session) *Session {
	if session == nil {
		return nil
	}
	masked := &Session{Site: session.Site, LastModified: session.LastModified}
	for _, c := range session.Cookies {
		masked.Cookies = append(masked.Cookies, config.Cookie{Name: c.Name, Value: maskString(c.Value)})
	}
	return masked
}

// maskString masks all but the first 4 and last 4 characters
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func siteKey(site string) string {
	return strings.ToLower(strings.TrimSpace(site))
}
