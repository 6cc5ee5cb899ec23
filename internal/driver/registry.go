package driver

import (
	"fmt"
	"log/slog"
	"sort"
)

// Provider keys. These are stable identifiers used both as configuration
// section names and as the location prefix of every entry.
const (
	KeyFileSystem  = "file_system"
	KeyS3          = "s3"
	KeyBox         = "box"
	KeyDropbox     = "dropbox"
	KeyGoogleDrive = "google_drive"

	// KeyDropboxDeprecated is the legacy spelling of the dropbox key.
	// It is accepted and remapped with a warning, never silently dropped.
	KeyDropboxDeprecated = "drop_box"
)

// Factory constructs a configured driver. Factories validate their required
// options and fail with ErrConfig before any network call.
type Factory func(opts Options, deps Deps) (Driver, error)

// Registry maps provider keys to driver factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given provider key, replacing any
// previous registration.
func (r *Registry) Register(key string, factory Factory) {
	r.factories[key] = factory
}

// Keys returns the registered provider keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// CanonicalKey resolves deprecated provider key aliases. The drop_box alias
// maps to dropbox with a warning.
func CanonicalKey(key string, logger *slog.Logger) string {
	if key == KeyDropboxDeprecated {
		logger.Warn("provider key drop_box is deprecated, use dropbox",
			slog.String("key", key),
		)

		return KeyDropbox
	}

	return key
}

// New constructs a driver for the given provider key. Deprecated aliases are
// resolved first. Unknown keys fail with ErrInit.
func (r *Registry) New(key string, opts Options, deps Deps) (Driver, error) {
	key = CanonicalKey(key, deps.Logger)

	factory, ok := r.factories[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInit, key)
	}

	return factory(opts, deps)
}
