// Package retriever transfers the bytes of a resolved download
// specification, either to a chunk callback or to a local file with progress
// reporting. It never retries and never cleans up partial output — retry and
// discard policy belong to the caller.
package retriever

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/browsekit/browsekit/internal/driver"
	"github.com/browsekit/browsekit/internal/entry"
	"github.com/browsekit/browsekit/internal/rest"
)

// chunkSize is the read granularity for transfers and the cadence of
// progress callbacks.
const chunkSize = 32 * 1024

// ChunkFunc receives each transferred chunk along with running and total
// byte counts. Returning an error aborts the transfer.
type ChunkFunc func(chunk []byte, retrieved, total int64) error

// ProgressFunc receives per-chunk progress while downloading to a file.
type ProgressFunc func(path string, retrieved, total int64)

// Retriever fetches bytes for download specifications.
type Retriever struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Retriever. httpClient may be nil for the default client.
func New(httpClient *http.Client, logger *slog.Logger) *Retriever {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Retriever{httpClient: httpClient, logger: logger}
}

// Retrieve streams the spec's bytes through onChunk. The sequence is finite:
// it ends when the body is consumed or the connection fails. A failed
// transfer is not restartable — a new call re-issues the request, which may
// fail if the remote link has expired.
func (r *Retriever) Retrieve(ctx context.Context, spec *entry.DownloadSpec, onChunk ChunkFunc) error {
	body, total, err := r.open(ctx, spec)
	if err != nil {
		return err
	}
	defer body.Close()

	return copyChunks(body, total, onChunk)
}

// Download transfers the spec's bytes to targetPath, or to a fresh temporary
// file when targetPath is empty, and returns the final path. onProgress (may
// be nil) is called once per chunk. A partially written file is left in
// place on failure — callers are responsible for discarding incomplete
// downloads.
func (r *Retriever) Download(ctx context.Context, spec *entry.DownloadSpec, targetPath string, onProgress ProgressFunc) (string, error) {
	out, err := openTarget(spec, targetPath)
	if err != nil {
		return "", err
	}

	path := out.Name()

	r.logger.Info("downloading",
		slog.String("file_name", spec.FileName),
		slog.String("target", path),
		slog.Int64("file_size", spec.FileSize),
	)

	err = r.Retrieve(ctx, spec, func(chunk []byte, retrieved, total int64) error {
		if _, wErr := out.Write(chunk); wErr != nil {
			return fmt.Errorf("retriever: writing %s: %w", path, wErr)
		}

		if onProgress != nil {
			onProgress(path, retrieved, total)
		}

		return nil
	})
	if err != nil {
		out.Close()
		return "", err
	}

	if err := out.Close(); err != nil {
		return "", fmt.Errorf("retriever: closing %s: %w", path, err)
	}

	return path, nil
}

// open dispatches on the spec URL's scheme: file URLs stream from the local
// filesystem, everything else over HTTP with the spec's auth headers.
func (r *Retriever) open(ctx context.Context, spec *entry.DownloadSpec) (io.ReadCloser, int64, error) {
	u, err := url.Parse(spec.URL)
	if err != nil {
		return nil, 0, fmt.Errorf("retriever: parsing url: %w", err)
	}

	if u.Scheme == "file" {
		return r.openFile(u.Path, spec)
	}

	return r.openHTTP(ctx, spec)
}

func (r *Retriever) openFile(path string, spec *entry.DownloadSpec) (io.ReadCloser, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: opening %s: %w", driver.ErrTransport, path, err)
	}

	total := spec.FileSize
	if total == 0 {
		if info, statErr := f.Stat(); statErr == nil {
			total = info.Size()
		}
	}

	return f, total, nil
}

func (r *Retriever) openHTTP(ctx context.Context, spec *entry.DownloadSpec) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URL, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("retriever: creating request: %w", err)
	}

	for name, value := range spec.AuthHeader {
		req.Header.Set(name, value)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", driver.ErrTransport, err)
	}

	if err := rest.ClassifyResponse(resp); err != nil {
		return nil, 0, err
	}

	total := spec.FileSize
	if total == 0 && resp.ContentLength > 0 {
		total = resp.ContentLength
	}

	return resp.Body, total, nil
}

// copyChunks reads the body in fixed-size chunks, invoking onChunk with
// running totals until EOF or failure.
func copyChunks(body io.Reader, total int64, onChunk ChunkFunc) error {
	buf := make([]byte, chunkSize)

	var retrieved int64

	for {
		n, err := body.Read(buf)
		if n > 0 {
			retrieved += int64(n)

			if cbErr := onChunk(buf[:n], retrieved, total); cbErr != nil {
				return cbErr
			}
		}

		if err == io.EOF {
			return nil
		}

		if err != nil {
			return fmt.Errorf("%w: mid-transfer: %w", driver.ErrTransport, err)
		}
	}
}

// openTarget creates the output file: the named path, or a temporary file
// whose pattern is derived from the spec's file name.
func openTarget(spec *entry.DownloadSpec, targetPath string) (*os.File, error) {
	if targetPath != "" {
		out, err := os.Create(targetPath)
		if err != nil {
			return nil, fmt.Errorf("retriever: creating %s: %w", targetPath, err)
		}

		return out, nil
	}

	base := filepath.Base(spec.FileName)
	if base == "." || base == "/" || base == "" {
		base = "download"
	}

	out, err := os.CreateTemp("", "browsekit-*-"+base)
	if err != nil {
		return nil, fmt.Errorf("retriever: creating temp file: %w", err)
	}

	return out, nil
}
