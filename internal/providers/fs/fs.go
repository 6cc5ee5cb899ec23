// Package fs implements the file_system driver: browsing a directory tree on
// the local machine rooted at a configured home path.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/browsekit/browsekit/internal/driver"
	"github.com/browsekit/browsekit/internal/entry"
)

// Driver serves entries from a local directory. Paths and ids are relative
// to the configured home directory; traversal outside home is rejected.
type Driver struct {
	driver.Base

	home   string
	logger *slog.Logger
}

// New validates the options and constructs the driver. The home option is
// required and must reference an existing directory.
func New(opts driver.Options, deps driver.Deps) (driver.Driver, error) {
	if err := opts.Require(driver.KeyFileSystem, "home"); err != nil {
		return nil, err
	}

	home := filepath.Clean(opts.String("home"))

	info, err := os.Stat(home)
	if err != nil {
		return nil, fmt.Errorf("%w: file_system home %q: %v", driver.ErrConfig, home, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: file_system home %q is not a directory", driver.ErrConfig, home)
	}

	return &Driver{home: home, logger: deps.Logger}, nil
}

func (d *Driver) Key() string  { return driver.KeyFileSystem }
func (d *Driver) Name() string { return "File System" }
func (d *Driver) Icon() string { return "file" }

// Authorized is always true — local access needs no token.
func (d *Driver) Authorized() bool { return true }

// resolve maps a provider-local relative path to an absolute path inside
// home. Cleaning through a rooted path strips any ".." escape attempts.
func (d *Driver) resolve(rel string) string {
	return filepath.Join(d.home, filepath.FromSlash(path.Clean("/"+rel)))
}

// rel converts an absolute path under home back to the provider-local form.
func (d *Driver) rel(abs string) string {
	r, err := filepath.Rel(d.home, abs)
	if err != nil || r == "." {
		return ""
	}

	return filepath.ToSlash(r)
}

// Contents lists one directory level. Subdirectories become Containers whose
// child lists are populated by re-listing, not here.
func (d *Driver) Contents(_ context.Context, listPath string) ([]entry.Entry, error) {
	dir := d.resolve(listPath)

	dirents, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", driver.ErrNotFound, listPath)
	}

	if err != nil {
		return nil, fmt.Errorf("file_system: listing %s: %w", listPath, err)
	}

	entries := make([]entry.Entry, 0, len(dirents))

	for _, de := range dirents {
		info, infoErr := de.Info()
		if infoErr != nil {
			// Entry vanished between ReadDir and stat.
			d.logger.Warn("skipping unreadable entry",
				slog.String("name", de.Name()),
				slog.String("error", infoErr.Error()),
			)

			continue
		}

		id := d.rel(filepath.Join(dir, de.Name()))
		name := entry.NormalizeName(de.Name())
		mtime := entry.ValidTime(info.ModTime().UTC(), "mtime", id, d.logger)

		if de.IsDir() {
			entries = append(entries, entry.Container{
				ID:       id,
				Location: entry.NewLocation(driver.KeyFileSystem, id),
				Name:     name,
				MTime:    mtime,
			})

			continue
		}

		entries = append(entries, entry.Bytestream{
			ID:        id,
			Location:  entry.NewLocation(driver.KeyFileSystem, id),
			Name:      name,
			Size:      info.Size(),
			MTime:     mtime,
			MediaType: mediaType(de.Name()),
		})
	}

	d.logger.Debug("listed directory",
		slog.String("path", listPath),
		slog.Int("entries", len(entries)),
	)

	return entries, nil
}

// LinkFor resolves a listed file id to a file:// URL. No auth header is
// needed and the link does not expire.
func (d *Driver) LinkFor(_ context.Context, id string) (*entry.DownloadSpec, error) {
	abs := d.resolve(id)

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", driver.ErrNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("file_system: resolving %s: %w", id, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a container", driver.ErrNotFound, id)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}

	return &entry.DownloadSpec{
		URL:        u.String(),
		AuthHeader: map[string]string{},
		FileName:   info.Name(),
		FileSize:   info.Size(),
	}, nil
}

// mediaType guesses a MIME type from the file extension, defaulting to
// application/octet-stream.
func mediaType(name string) string {
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mt == "" {
		return "application/octet-stream"
	}

	return mt
}
