package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "diarykeeper"
	keyringPrefix  = "session_"
	// keyringIndex lists the stored sites, since keyrings cannot enumerate entries
	keyringIndex = "sessions_index"
)

// KeyringStore keeps sessions in the system keychain
type KeyringStore struct{}

// NewKeyringStore returns a store if the keyring accepts writes
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Store(session *Session) error {
	if session == nil || session.Site == "" {
		return ErrInvalidSession
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+siteKey(session.Site), string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return k.updateIndex(siteKey(session.Site), true)
}

func (k *KeyringStore) Retrieve(site string) (*Session, error) {
	if site == "" {
		return nil, ErrInvalidSession
	}
	data, err := keyring.Get(keyringService, keyringPrefix+siteKey(site))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (k *KeyringStore) List() ([]*Session, error) {
	sites, err := k.index()
	if err != nil {
		return nil, err
	}
	var sessions []*Session
	for _, site := range sites {
		if s, err := k.Retrieve(site); err == nil {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func (k *KeyringStore) Delete(site string) error {
	if site == "" {
		return ErrInvalidSession
	}
	if err := keyring.Delete(keyringService, keyringPrefix+siteKey(site)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return k.updateIndex(siteKey(site), false)
}

func (k *KeyringStore) Exists(site string) bool {
	if site == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+siteKey(site))
	return err == nil
}

func (k *KeyringStore) index() ([]string, error) {
	data, err := keyring.Get(keyringService, keyringIndex)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}
	var sites []string
	if err := json.Unmarshal([]byte(data), &sites); err != nil {
		return nil, fmt.Errorf("failed to parse keyring index: %w", err)
	}
	return sites, nil
}

func (k *KeyringStore) updateIndex(key string, present bool) error {
	sites, err := k.index()
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(sites)+1)
	for _, s := range sites {
		set[s] = true
	}
	if present {
		set[key] = true
	} else {
		delete(set, key)
	}
	sites = sites[:0]
	for s := range set {
		sites = append(sites, s)
	}
	sort.Strings(sites)

	data, err := json.Marshal(sites)
	if err != nil {
		return err
	}
	if err := keyring.Set(keyringService, keyringIndex, string(data)); err != nil {
		return fmt.Errorf("failed to update keyring index: %w", err)
	}
	return nil
}
