// Package entry defines the canonical representation of remote resources:
// Bytestream (a retrievable leaf file), Container (a folder referencing
// children by id), Location (the "<provider>:<id>" addressing scheme), and
// DownloadSpec (the resolved, authenticated descriptor the retriever consumes).
// Entries are transient — they are created per listing call and never persisted.
package entry

import (
	"log/slog"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Timestamp validation bounds — modification times outside this range are
// replaced with the current time and a warning is logged.
const (
	minValidYear = 1970
	maxValidYear = 2100
)

// Entry is either a Bytestream or a Container. Listings return entries in
// backend arrival order; callers type-switch on the concrete type.
type Entry interface {
	EntryID() string
	EntryLocation() Location
	EntryName() string
	IsContainer() bool
}

// Bytestream is a leaf, retrievable remote file.
type Bytestream struct {
	ID        string
	Location  Location
	Name      string
	Size      int64
	MTime     time.Time
	MediaType string
}

func (b Bytestream) EntryID() string         { return b.ID }
func (b Bytestream) EntryLocation() Location { return b.Location }
func (b Bytestream) EntryName() string       { return b.Name }
func (b Bytestream) IsContainer() bool       { return false }

// Container is a folder-like remote entry. Child id lists reference only
// entries observed during the same listing traversal — lookups are satisfied
// by re-listing, not by a persisted index.
type Container struct {
	ID            string
	Location      Location
	Name          string
	MTime         time.Time
	BytestreamIDs []string
	ContainerIDs  []string
}

func (c Container) EntryID() string         { return c.ID }
func (c Container) EntryLocation() Location { return c.Location }
func (c Container) EntryName() string       { return c.Name }
func (c Container) IsContainer() bool       { return true }

// DownloadSpec is the resolved, time-limited descriptor for fetching a
// bytestream's content. The JSON field names are a wire contract consumed by
// host applications and must not change.
type DownloadSpec struct {
	URL        string            `json:"url"`
	AuthHeader map[string]string `json:"auth_header"`
	Expires    time.Time         `json:"expires"`
	FileName   string            `json:"file_name"`
	FileSize   int64             `json:"file_size"`
}

// NormalizeName returns the NFC form of a backend-supplied entry name.
// Backends disagree on Unicode normalization (macOS-originated uploads are
// often NFD); normalizing here keeps display and comparison consistent.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// ValidTime validates a backend-supplied modification time. Zero or
// out-of-range values are replaced with the current time and logged — a
// deliberate fallback rather than silent data loss, documented to callers.
func ValidTime(t time.Time, field, entryID string, logger *slog.Logger) time.Time {
	if t.IsZero() {
		logger.Warn("missing timestamp, using current time",
			slog.String("field", field),
			slog.String("entry_id", entryID),
		)

		return time.Now().UTC()
	}

	if t.Year() < minValidYear || t.Year() > maxValidYear {
		logger.Warn("timestamp out of valid range, using current time",
			slog.String("field", field),
			slog.String("entry_id", entryID),
			slog.Time("raw", t),
		)

		return time.Now().UTC()
	}

	return t
}
