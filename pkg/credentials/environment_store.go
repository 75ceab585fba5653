package credentials

import (
	"os"
	"strings"

	"diarykeeper/pkg/fetch"
)

// EnvPrefix prefixes the per-site cookie variables, e.g. DIARYKEEPER_COOKIES_SAKURAZAKA46
const EnvPrefix = "DIARYKEEPER_COOKIES_"

// EnvironmentStore reads sessions from environment variables. It is read only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// EnvVar returns the variable holding the cookie header for site
func EnvVar(site string) string {
	return EnvPrefix + strings.ToUpper(siteKey(site))
}

func (e *EnvironmentStore) Store(session *Session) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(site string) (*Session, error) {
	if site == "" {
		return nil, ErrInvalidSession
	}
	cookies := fetch.ParseCookieHeader(os.Getenv(EnvVar(site)))
	if len(cookies) == 0 {
		return nil, ErrSessionNotFound
	}
	return &Session{Site: site, Cookies: cookies}, nil
}

func (e *EnvironmentStore) List() ([]*Session, error) {
	var sessions []*Session
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		site := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
		if s, err := e.Retrieve(site); err == nil {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func (e *EnvironmentStore) Delete(site string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(site string) bool {
	_, err := e.Retrieve(site)
	return err == nil
}
