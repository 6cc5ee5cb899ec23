package driver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/browsekit/browsekit/internal/entry"
	"github.com/browsekit/browsekit/internal/tokenstore"
)

// Driver is the capability contract every storage backend honors. Calling
// code never branches on backend identity — only on this interface and the
// shared error taxonomy.
type Driver interface {
	// Key returns the stable lowercase identifier matching the
	// configuration section name (e.g. "google_drive").
	Key() string

	// Name returns a human-readable label for UI display.
	Name() string

	// Icon returns a UI hint; defaults to a generic value.
	Icon() string

	// Authorized reports whether a usable token is present.
	Authorized() bool

	// AuthorizationURL returns the backend-specific OAuth consent URL.
	// Fails if client credentials are absent or the backend needs no
	// authorization flow.
	AuthorizationURL() (*url.URL, error)

	// Connect exchanges an authorization code for a token. On success the
	// driver transitions to authorized; on failure state is unchanged and
	// ErrNotAuthorized is returned.
	Connect(ctx context.Context, code string) error

	// Contents lists the entries under path. An empty path means the
	// provider-configured root. Batch-oriented backends may return the
	// full reachable subtree. Partial results are never returned on
	// error — any mid-listing failure aborts the whole call.
	Contents(ctx context.Context, path string) ([]entry.Entry, error)

	// LinkFor resolves a previously-listed bytestream id to an
	// authenticated, time-limited download specification.
	LinkFor(ctx context.Context, id string) (*entry.DownloadSpec, error)
}

// Deps carries the collaborators injected into every driver factory.
type Deps struct {
	Tokens     tokenstore.Store
	Session    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Options is one provider's configuration section: immutable key-value
// options (client id/secret, home path, bucket, etc.) as decoded from the
// configuration file.
type Options map[string]any

// String returns the option value for key, or "" if absent or not a string.
func (o Options) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// Bool returns the option value for key as a boolean. String values "true"
// and "false" are accepted for configurations that quote everything.
func (o Options) Bool(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Int64 returns the option value for key as an int64, or 0 if absent.
func (o Options) Int64(key string) int64 {
	switch v := o[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// Require fails with ErrConfig when any of the named keys is absent or
// empty. Called by driver factories before any network activity.
func (o Options) Require(providerKey string, keys ...string) error {
	var missing []string

	for _, k := range keys {
		if o.String(k) == "" {
			missing = append(missing, k)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: provider %s missing required options %v", ErrConfig, providerKey, missing)
	}

	return nil
}
