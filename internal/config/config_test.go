package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/browsekit/browsekit/internal/driver"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(`
[tokens]
backend = "sqlite"
path = "/var/lib/browsekit/tokens.db"

[providers.file_system]
home = "/srv/files"

[providers.google_drive]
client_id = "id-123"
client_secret = "secret-456"
`), discardLogger())
	require.NoError(t, err)

	assert.Equal(t, TokensSQLite, cfg.Tokens.Backend)
	assert.Equal(t, "/var/lib/browsekit/tokens.db", cfg.Tokens.Path)
	assert.Len(t, cfg.Providers, 2)
	assert.Equal(t, "/srv/files", cfg.Providers["file_system"].String("home"))
	assert.Equal(t, "id-123", cfg.Providers["google_drive"].String("client_id"))
}

func TestParse_DefaultTokenBackend(t *testing.T) {
	cfg, err := Parse([]byte(`
[providers.file_system]
home = "/tmp"
`), discardLogger())
	require.NoError(t, err)

	assert.Equal(t, TokensFile, cfg.Tokens.Backend)
}

func TestParse_NoProviders(t *testing.T) {
	_, err := Parse([]byte(`[tokens]
backend = "file"
`), discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrInit)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`this is not toml = [`), discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrInit)
}

func TestParse_DeprecatedDropBoxKey(t *testing.T) {
	// The drop_box section must be retrievable afterward only under
	// dropbox, with the same values.
	cfg, err := Parse([]byte(`
[providers.drop_box]
app_key = "legacy-key"
app_secret = "legacy-secret"
`), discardLogger())
	require.NoError(t, err)

	_, deprecated := cfg.Providers["drop_box"]
	assert.False(t, deprecated)

	opts, ok := cfg.Providers["dropbox"]
	require.True(t, ok)
	assert.Equal(t, "legacy-key", opts.String("app_key"))
	assert.Equal(t, "legacy-secret", opts.String("app_secret"))
}

func TestParse_CanonicalSectionWinsOverAlias(t *testing.T) {
	cfg, err := Parse([]byte(`
[providers.dropbox]
client_id = "new"
client_secret = "new-secret"

[providers.drop_box]
app_key = "old"
`), discardLogger())
	require.NoError(t, err)

	opts, ok := cfg.Providers["dropbox"]
	require.True(t, ok)
	assert.Equal(t, "new", opts.String("client_id"))
	assert.Empty(t, opts.String("app_key"))
}

func TestProvider_AliasLookup(t *testing.T) {
	cfg, err := Parse([]byte(`
[providers.dropbox]
client_id = "abc"
client_secret = "def"
`), discardLogger())
	require.NoError(t, err)

	opts, ok := cfg.Provider("drop_box", discardLogger())
	require.True(t, ok)
	assert.Equal(t, "abc", opts.String("client_id"))
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[providers.s3]
bucket = "assets"
`), 0o600))

	cfg, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "assets", cfg.Providers["s3"].String("bucket"))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrInit)
}
