package tokenstore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "access-abc",
		TokenType:    "Bearer",
		RefreshToken: "refresh-def",
		Expiry:       time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

// storeUnderTest runs the shared contract checks against any Store.
func storeUnderTest(t *testing.T, store Store) {
	t.Helper()

	ctx := context.Background()

	// Absent token is (nil, nil), not an error.
	tok, err := store.Get(ctx, "sess-1", "dropbox")
	require.NoError(t, err)
	assert.Nil(t, tok)

	require.NoError(t, store.Put(ctx, "sess-1", "dropbox", testToken()))

	got, err := store.Get(ctx, "sess-1", "dropbox")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "access-abc", got.AccessToken)
	assert.Equal(t, "refresh-def", got.RefreshToken)
	assert.True(t, got.Expiry.Equal(testToken().Expiry))

	// Scoping: a different session and a different provider see nothing.
	other, err := store.Get(ctx, "sess-2", "dropbox")
	require.NoError(t, err)
	assert.Nil(t, other)

	other, err = store.Get(ctx, "sess-1", "box")
	require.NoError(t, err)
	assert.Nil(t, other)

	// Overwrite replaces the stored token.
	updated := testToken()
	updated.AccessToken = "access-v2"
	require.NoError(t, store.Put(ctx, "sess-1", "dropbox", updated))

	got, err = store.Get(ctx, "sess-1", "dropbox")
	require.NoError(t, err)
	assert.Equal(t, "access-v2", got.AccessToken)

	// Delete is idempotent.
	require.NoError(t, store.Delete(ctx, "sess-1", "dropbox"))
	require.NoError(t, store.Delete(ctx, "sess-1", "dropbox"))

	tok, err = store.Get(ctx, "sess-1", "dropbox")
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	storeUnderTest(t, NewFile(t.TempDir()))
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLite(filepath.Join(t.TempDir(), "tokens.db"), discardLogger())
	require.NoError(t, err)
	defer store.Close()

	storeUnderTest(t, store)
}

func TestFileStore_Permissions(t *testing.T) {
	dir := t.TempDir()
	store := NewFile(dir)

	require.NoError(t, store.Put(context.Background(), "sess-1", "box", testToken()))

	info, err := os.Stat(filepath.Join(dir, "sess-1", "box.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Join(dir, "sess-1"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(DirPerms), dirInfo.Mode().Perm())
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sess-1"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sess-1", "box.json"), []byte("not json"), 0o600))

	_, err := NewFile(dir).Get(context.Background(), "sess-1", "box")
	assert.Error(t, err)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s", "p", testToken()))

	first, err := store.Get(ctx, "s", "p")
	require.NoError(t, err)

	first.AccessToken = "mutated"

	second, err := store.Get(ctx, "s", "p")
	require.NoError(t, err)
	assert.Equal(t, "access-abc", second.AccessToken)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.db")

	store, err := NewSQLite(path, discardLogger())
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "s", "google_drive", testToken()))
	require.NoError(t, store.Close())

	// Tokens survive process restart; migrations are idempotent.
	reopened, err := NewSQLite(path, discardLogger())
	require.NoError(t, err)
	defer reopened.Close()

	tok, err := reopened.Get(context.Background(), "s", "google_drive")
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "access-abc", tok.AccessToken)
}
