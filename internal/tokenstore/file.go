package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating session directories.
const DirPerms = 0o700

// File is a Store that keeps one JSON token file per (session, provider)
// under a root directory: <root>/<session>/<provider>.json. Writes are
// atomic (write-to-temp + rename) with owner-only permissions. Token values
// are never logged.
type File struct {
	root string
}

// NewFile returns a file-backed store rooted at dir.
func NewFile(dir string) *File {
	return &File{root: dir}
}

// tokenFile is the on-disk format. The wrapper object leaves room for cached
// metadata alongside the token without a format break.
type tokenFile struct {
	Token *oauth2.Token `json:"token"`
}

func (f *File) path(session, provider string) string {
	return filepath.Join(f.root, session, provider+".json")
}

func (f *File) Get(_ context.Context, session, provider string) (*oauth2.Token, error) {
	data, err := os.ReadFile(f.path(session, provider))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenstore: reading token file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("tokenstore: decoding token file: %w", err)
	}

	if tf.Token == nil {
		return nil, fmt.Errorf("tokenstore: token file for %s/%s missing token field", session, provider)
	}

	return tf.Token, nil
}

func (f *File) Put(_ context.Context, session, provider string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tokenFile{Token: tok}, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenstore: encoding token: %w", err)
	}

	path := f.path(session, provider)

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenstore: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenstore: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenstore: writing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenstore: closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenstore: renaming into place: %w", err)
	}

	success = true

	return nil
}

func (f *File) Delete(_ context.Context, session, provider string) error {
	err := os.Remove(f.path(session, provider))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("tokenstore: removing token file: %w", err)
	}

	return nil
}
