package credentials

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"diarykeeper/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func sakuraSession() *Session {
	return &Session{
		Site: "Sakurazaka46",
		Cookies: []config.Cookie{
			{Name: "B81AC560F83BFC8C", Value: "89a1f0da1f6b4a0bd1c"},
			{Name: "_ga", Value: "GA1.1.1185200883.1750061010"},
		},
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(sakuraSession()))
	assert.True(t, store.Exists("sakurazaka46"))

	got, err := store.Retrieve("SAKURAZAKA46")
	require.NoError(t, err)
	assert.Equal(t, sakuraSession().Cookies, got.Cookies)

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Sakurazaka46", list[0].Site)

	require.NoError(t, store.Delete("Sakurazaka46"))
	assert.False(t, store.Exists("Sakurazaka46"))
	assert.ErrorIs(t, store.Delete("Sakurazaka46"), ErrSessionNotFound)

	list, err = store.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "sessions.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = store.Retrieve("Sakurazaka46")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Store(sakuraSession()))
	require.NoError(t, store.Store(&Session{Site: "Bokuao", Cookies: []config.Cookie{{Name: "sid", Value: "bokuao-secret"}}}))

	got, err := store.Retrieve("sakurazaka46")
	require.NoError(t, err)
	assert.Equal(t, sakuraSession().Cookies, got.Cookies)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "89a1f0da1f6b4a0bd1c")
	assert.NotContains(t, string(content), "bokuao-secret")

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	list, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, reopened.Delete("Bokuao"))
	require.NoError(t, reopened.Delete("Sakurazaka46"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(sakuraSession()))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("Sakurazaka46")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "sessions.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Store(sakuraSession()))

	info, err := os.Stat(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "sessions.enc"))
	require.NoError(t, err)
	assert.True(t, reopened.Exists("Sakurazaka46"))
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("DIARYKEEPER_COOKIES_BOKUAO", "sid=abc; lang=ja")
	store := NewEnvironmentStore()

	got, err := store.Retrieve("Bokuao")
	require.NoError(t, err)
	assert.Equal(t, []config.Cookie{{Name: "sid", Value: "abc"}, {Name: "lang", Value: "ja"}}, got.Cookies)

	_, err = store.Retrieve("Nogizaka46")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Store(sakuraSession()), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("Bokuao"), ErrStoreUnavailable)

	list, err := store.List()
	require.NoError(t, err)
	found := false
	for _, s := range list {
		if s.Site == "bokuao" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestManagerFallsBackAcrossStores(t *testing.T) {
	t.Setenv(PassphraseEnv, "manager")
	t.Setenv("DIARYKEEPER_COOKIES_HINATAZAKA46", "env=1")

	encrypted, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "sessions.enc"))
	require.NoError(t, err)
	m := NewManagerWithStores(NewEnvironmentStore(), encrypted)

	require.NoError(t, m.Store(sakuraSession()))
	assert.True(t, encrypted.Exists("Sakurazaka46"))

	cookies, err := m.Cookies("Sakurazaka46")
	require.NoError(t, err)
	assert.Len(t, cookies, 2)

	cookies, err = m.Cookies("Hinatazaka46")
	require.NoError(t, err)
	assert.Equal(t, []config.Cookie{{Name: "env", Value: "1"}}, cookies)

	_, err = m.Cookies("Keyakizaka46")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, m.Delete("Sakurazaka46"))
	assert.Error(t, m.Delete("Sakurazaka46"))
}

func TestManagerValidatesSessions(t *testing.T) {
	m := NewManagerWithStores()
	assert.ErrorIs(t, m.Store(&Session{Site: "Bokuao"}), ErrInvalidSession)
	assert.ErrorIs(t, m.Store(&Session{Cookies: []config.Cookie{{Name: "a", Value: "b"}}}), ErrInvalidSession)
	assert.ErrorIs(t, m.Store(sakuraSession()), ErrStoreUnavailable)
}

func TestNewManagerWithMockKeyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv(PassphraseEnv, "mgr")

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, m.Store(sakuraSession()))

	list, err := m.List()
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, "Sakurazaka46", list[0].Site)
	require.NoError(t, m.Delete("Sakurazaka46"))
}

func TestSanitize(t *testing.T) {
	masked := Sanitize(sakuraSession())
	assert.Equal(t, "89a1...bd1c", masked.Cookies[0].Value)
	assert.Equal(t, "B81AC560F83BFC8C", masked.Cookies[0].Name)
	assert.Nil(t, Sanitize(nil))
}

func TestWriteCookieGuide(t *testing.T) {
	var buf bytes.Buffer
	WriteCookieGuide(&buf, "Sakurazaka46", "https://sakurazaka46.com")
	assert.Contains(t, buf.String(), "SAKURAZAKA46")
	assert.Contains(t, buf.String(), "DIARYKEEPER_COOKIES_SAKURAZAKA46")
}
