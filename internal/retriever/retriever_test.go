package retriever

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/browsekit/browsekit/internal/driver"
	"github.com/browsekit/browsekit/internal/entry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func httpSpec(url string, size int64) *entry.DownloadSpec {
	return &entry.DownloadSpec{
		URL:        url,
		AuthHeader: map[string]string{},
		Expires:    time.Now().Add(time.Hour),
		FileName:   "payload.bin",
		FileSize:   size,
	}
}

func TestRetrieve_ChunkAccounting(t *testing.T) {
	// Three full chunks plus a remainder.
	payload := strings.Repeat("x", 3*chunkSize+100)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	spec := httpSpec(srv.URL, int64(len(payload)))
	spec.AuthHeader = map[string]string{"Authorization": "Bearer tok"}

	var (
		got       []byte
		lastTotal int64
		lastSoFar int64
	)

	r := New(nil, discardLogger())
	err := r.Retrieve(context.Background(), spec, func(chunk []byte, retrieved, total int64) error {
		assert.LessOrEqual(t, len(chunk), chunkSize)
		got = append(got, chunk...)
		lastSoFar = retrieved
		lastTotal = total

		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, payload, string(got))
	assert.Equal(t, int64(len(payload)), lastSoFar)
	assert.Equal(t, int64(len(payload)), lastTotal)
}

func TestRetrieve_TotalFromContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "hello")
	}))
	defer srv.Close()

	var total int64

	r := New(nil, discardLogger())
	err := r.Retrieve(context.Background(), httpSpec(srv.URL, 0), func(_ []byte, _, t int64) error {
		total = t
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total, "falls back to Content-Length when the spec has no size")
}

func TestRetrieve_ChunkErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, strings.Repeat("y", 2*chunkSize))
	}))
	defer srv.Close()

	boom := errors.New("sink full")
	calls := 0

	r := New(nil, discardLogger())
	err := r.Retrieve(context.Background(), httpSpec(srv.URL, 0), func(_ []byte, _, _ int64) error {
		calls++
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetrieve_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := New(nil, discardLogger())
	err := r.Retrieve(context.Background(), httpSpec(srv.URL, 0), func(_ []byte, _, _ int64) error {
		t.Error("no chunks expected for an error response")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrNotAuthorized)
}

func TestRetrieve_FileScheme(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "local.txt")
	require.NoError(t, os.WriteFile(src, []byte("file bytes"), 0o600))

	spec := &entry.DownloadSpec{URL: "file://" + src, FileName: "local.txt"}

	var got []byte

	r := New(nil, discardLogger())
	err := r.Retrieve(context.Background(), spec, func(chunk []byte, _, total int64) error {
		got = append(got, chunk...)
		assert.Equal(t, int64(10), total, "total from stat when spec has no size")

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "file bytes", string(got))
}

func TestRetrieve_FileSchemeMissing(t *testing.T) {
	spec := &entry.DownloadSpec{URL: "file:///nonexistent/nope.txt"}

	r := New(nil, discardLogger())
	err := r.Retrieve(context.Background(), spec, func(_ []byte, _, _ int64) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrTransport)
}

func TestDownload_ToTargetPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "downloaded content")
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "out.bin")

	var lastRetrieved int64

	r := New(nil, discardLogger())
	got, err := r.Download(context.Background(), httpSpec(srv.URL, 18), target,
		func(path string, retrieved, total int64) {
			assert.Equal(t, target, path)
			assert.Equal(t, int64(18), total)
			lastRetrieved = retrieved
		})
	require.NoError(t, err)
	assert.Equal(t, target, got)
	assert.Equal(t, int64(18), lastRetrieved)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "downloaded content", string(data))
}

func TestDownload_ToTempFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "temp content")
	}))
	defer srv.Close()

	r := New(nil, discardLogger())
	got, err := r.Download(context.Background(), httpSpec(srv.URL, 0), "", nil)
	require.NoError(t, err)

	t.Cleanup(func() { os.Remove(got) })

	assert.Contains(t, filepath.Base(got), "payload.bin", "temp name derives from the spec file name")

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "temp content", string(data))
}

func TestDownload_MidTransferFailureLeavesPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Promise more bytes than are sent, then cut the connection.
		w.Header().Set("Content-Length", "100000")
		fmt.Fprint(w, strings.Repeat("z", chunkSize))

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		hj, ok := w.(http.Hijacker)
		require.True(t, ok)

		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "partial.bin")

	r := New(nil, discardLogger())
	_, err := r.Download(context.Background(), httpSpec(srv.URL, 100000), target, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrTransport)

	// Partial output survives for the caller to inspect or discard.
	info, statErr := os.Stat(target)
	require.NoError(t, statErr)
	assert.Positive(t, info.Size())
}

func TestDownload_BadTargetDir(t *testing.T) {
	r := New(nil, discardLogger())
	_, err := r.Download(context.Background(), httpSpec("http://unused.invalid", 0),
		filepath.Join(t.TempDir(), "missing", "out.bin"), nil)
	require.Error(t, err)
}
