// Package browser composes the configured set of provider drivers and
// dispatches operations to the right one by provider key. A Browser is built
// once from configuration and is scoped to one session for token storage.
package browser

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/browsekit/browsekit/internal/config"
	"github.com/browsekit/browsekit/internal/driver"
	"github.com/browsekit/browsekit/internal/entry"
	"github.com/browsekit/browsekit/internal/providers/box"
	"github.com/browsekit/browsekit/internal/providers/dropbox"
	"github.com/browsekit/browsekit/internal/providers/fs"
	"github.com/browsekit/browsekit/internal/providers/gdrive"
	"github.com/browsekit/browsekit/internal/providers/s3"
)

// DefaultRegistry returns a registry with every built-in provider factory.
func DefaultRegistry() *driver.Registry {
	reg := driver.NewRegistry()
	reg.Register(driver.KeyFileSystem, fs.New)
	reg.Register(driver.KeyS3, s3.New)
	reg.Register(driver.KeyBox, box.New)
	reg.Register(driver.KeyDropbox, dropbox.New)
	reg.Register(driver.KeyGoogleDrive, gdrive.New)

	return reg
}

// Browser holds one configured driver instance per provider key.
type Browser struct {
	drivers map[string]driver.Driver
	logger  *slog.Logger
}

// New constructs every driver named in the configuration. Construction is
// fail-fast: one misconfigured provider aborts the whole build with
// ErrConfig rather than yielding a partial provider set.
func New(cfg *config.Config, reg *driver.Registry, deps driver.Deps) (*Browser, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	drivers := make(map[string]driver.Driver, len(cfg.Providers))

	for key, opts := range cfg.Providers {
		d, err := reg.New(key, opts, deps)
		if err != nil {
			return nil, fmt.Errorf("browser: building provider %s: %w", key, err)
		}

		drivers[d.Key()] = d

		deps.Logger.Debug("configured provider",
			slog.String("key", d.Key()),
			slog.Bool("authorized", d.Authorized()),
		)
	}

	return &Browser{drivers: drivers, logger: deps.Logger}, nil
}

// DriverFor returns the configured driver for a provider key, resolving
// deprecated aliases. Unknown or unconfigured keys fail with ErrInit.
func (b *Browser) DriverFor(key string) (driver.Driver, error) {
	d, ok := b.drivers[driver.CanonicalKey(key, b.logger)]
	if !ok {
		return nil, fmt.Errorf("%w: no configured provider %q", driver.ErrInit, key)
	}

	return d, nil
}

// DriverForLocation resolves an entry location to its owning driver.
func (b *Browser) DriverForLocation(loc entry.Location) (driver.Driver, error) {
	return b.DriverFor(loc.Provider())
}

// Drivers returns the configured drivers sorted by key.
func (b *Browser) Drivers() []driver.Driver {
	keys := make([]string, 0, len(b.drivers))
	for k := range b.drivers {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]driver.Driver, 0, len(keys))
	for _, k := range keys {
		out = append(out, b.drivers[k])
	}

	return out
}
