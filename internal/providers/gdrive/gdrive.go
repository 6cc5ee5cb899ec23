// Package gdrive implements the google_drive driver against the Drive v3
// API. Listing walks the reachable corpus in pages, classifying entries by
// the folder mime sentinel and threading parent/child adjacency across pages
// so a Container's child lists stay accurate even when children arrive in a
// later page than the folder itself.
package gdrive

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/browsekit/browsekit/internal/authz"
	"github.com/browsekit/browsekit/internal/driver"
	"github.com/browsekit/browsekit/internal/entry"
	"github.com/browsekit/browsekit/internal/rest"
)

const apiBaseURL = "https://www.googleapis.com"

// folderMimeType is the Drive sentinel distinguishing folders from files.
const folderMimeType = "application/vnd.google-apps.folder"

// listPageSize is the files.list page size (Drive maximum is 1000).
const listPageSize = 1000

// listFields trims responses to what the entry model needs.
const listFields = "nextPageToken,files(id,name,mimeType,size,modifiedTime,parents)"

// Driver implements the google_drive provider.
type Driver struct {
	driver.Base

	auth    *authz.Authorizer
	api     *rest.Client
	baseURL string
	logger  *slog.Logger
}

// New validates options and constructs the driver. client_id and
// client_secret are required; no network call is made here.
func New(opts driver.Options, deps driver.Deps) (driver.Driver, error) {
	if err := opts.Require(driver.KeyGoogleDrive, "client_id", "client_secret"); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     opts.String("client_id"),
		ClientSecret: opts.String("client_secret"),
		Endpoint:     endpoints.Google,
		Scopes:       []string{"https://www.googleapis.com/auth/drive.readonly"},
	}

	auth := authz.New(oauthCfg, deps.Tokens, deps.Session, driver.KeyGoogleDrive, deps.Logger)

	return &Driver{
		auth:    auth,
		api:     rest.NewClient(apiBaseURL, deps.HTTPClient, auth, deps.Logger),
		baseURL: apiBaseURL,
		logger:  deps.Logger,
	}, nil
}

func (d *Driver) Key() string  { return driver.KeyGoogleDrive }
func (d *Driver) Name() string { return "Google Drive" }
func (d *Driver) Icon() string { return "google-drive" }

func (d *Driver) Authorized() bool {
	return d.auth.Authorized(context.Background())
}

func (d *Driver) AuthorizationURL() (*url.URL, error) {
	return d.auth.URL()
}

func (d *Driver) Connect(ctx context.Context, code string) error {
	return d.auth.Exchange(ctx, code)
}

// driveFile mirrors the Drive v3 file resource JSON. Unexported — callers
// receive canonical entries. Size is a string in the wire format.
type driveFile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mimeType"`
	Size         string   `json:"size"`
	ModifiedTime string   `json:"modifiedTime"`
	Parents      []string `json:"parents"`
}

type fileListResponse struct {
	NextPageToken string      `json:"nextPageToken"`
	Files         []driveFile `json:"files"`
}

// Contents lists the reachable subtree under path: the full corpus when path
// is empty, or the children of the named folder id otherwise. All pages are
// fetched before any Container is materialized, so folder-id adjacency built
// while iterating covers children that arrive after their parent's own
// entry. Any transport error mid-page aborts the call — partial results are
// discarded, never returned.
func (d *Driver) Contents(ctx context.Context, listPath string) ([]entry.Entry, error) {
	// One token acquisition scopes the whole multi-page traversal, so
	// refresh happens at most once per top-level call.
	tok, err := d.auth.Current(ctx)
	if err != nil {
		return nil, err
	}

	api := d.api.WithToken(rest.StaticToken(tok.AccessToken))

	var (
		files         []driveFile
		bytestreamIDs = make(map[string][]string) // folder id -> child bytestream ids
		containerIDs  = make(map[string][]string) // folder id -> child container ids
	)

	pageToken := ""
	pages := 0

	for {
		page, pageErr := d.listPage(ctx, api, listPath, pageToken)
		if pageErr != nil {
			return nil, pageErr
		}

		for _, f := range page.Files {
			files = append(files, f)

			for _, parent := range f.Parents {
				if f.MimeType == folderMimeType {
					containerIDs[parent] = append(containerIDs[parent], f.ID)
				} else {
					bytestreamIDs[parent] = append(bytestreamIDs[parent], f.ID)
				}
			}
		}

		pages++

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	entries := make([]entry.Entry, 0, len(files))
	for _, f := range files {
		entries = append(entries, d.toEntry(f, bytestreamIDs[f.ID], containerIDs[f.ID]))
	}

	d.logger.Debug("listed drive corpus",
		slog.String("path", listPath),
		slog.Int("pages", pages),
		slog.Int("entries", len(entries)),
	)

	return entries, nil
}

// listPage fetches one files.list page scoped to listPath.
func (d *Driver) listPage(ctx context.Context, api *rest.Client, listPath, pageToken string) (*fileListResponse, error) {
	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(listPageSize))
	params.Set("fields", listFields)
	params.Set("q", listQuery(listPath))

	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var page fileListResponse
	if err := api.GetJSON(ctx, "/drive/v3/files?"+params.Encode(), &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// listQuery scopes the listing: the whole non-trashed corpus for the root,
// or one folder's descendants-by-parent otherwise.
func listQuery(listPath string) string {
	if listPath == "" {
		return "trashed = false"
	}

	return fmt.Sprintf("'%s' in parents and trashed = false", listPath)
}

// toEntry converts one drive file into the canonical record. Folders carry
// the child-id lists accumulated across the whole traversal.
func (d *Driver) toEntry(f driveFile, childBytestreams, childContainers []string) entry.Entry {
	name := entry.NormalizeName(f.Name)
	mtime := entry.ValidTime(parseTime(f.ModifiedTime, f.ID, d.logger), "modifiedTime", f.ID, d.logger)

	if f.MimeType == folderMimeType {
		return entry.Container{
			ID:            f.ID,
			Location:      entry.NewLocation(driver.KeyGoogleDrive, f.ID),
			Name:          name,
			MTime:         mtime,
			BytestreamIDs: childBytestreams,
			ContainerIDs:  childContainers,
		}
	}

	size, _ := strconv.ParseInt(f.Size, 10, 64)

	return entry.Bytestream{
		ID:        f.ID,
		Location:  entry.NewLocation(driver.KeyGoogleDrive, f.ID),
		Name:      name,
		Size:      size,
		MTime:     mtime,
		MediaType: f.MimeType,
	}
}

// parseTime parses Drive's RFC3339 modifiedTime; a zero value falls through
// to entry.ValidTime's now-fallback.
func parseTime(raw, id string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid modifiedTime",
			slog.String("file_id", id),
			slog.String("raw", raw),
		)

		return time.Time{}
	}

	return t.UTC()
}

// LinkFor resolves a file id to the direct media URL plus a bearer header
// from the current token. Token freshness is not re-validated here — a stale
// token surfaces as a transport error from the retriever, which callers
// treat as not-authorized and re-trigger the consent flow.
func (d *Driver) LinkFor(ctx context.Context, id string) (*entry.DownloadSpec, error) {
	tok, err := d.auth.Current(ctx)
	if err != nil {
		return nil, err
	}

	api := d.api.WithToken(rest.StaticToken(tok.AccessToken))

	var f driveFile
	if err := api.GetJSON(ctx, "/drive/v3/files/"+url.PathEscape(id)+"?fields=id,name,mimeType,size", &f); err != nil {
		return nil, err
	}

	size, _ := strconv.ParseInt(f.Size, 10, 64)

	expires := tok.Expiry
	if expires.IsZero() {
		expires = time.Now().UTC().Add(time.Hour)
	}

	return &entry.DownloadSpec{
		URL:        d.baseURL + "/drive/v3/files/" + url.PathEscape(id) + "?alt=media",
		AuthHeader: map[string]string{"Authorization": "Bearer " + tok.AccessToken},
		Expires:    expires,
		FileName:   f.Name,
		FileSize:   size,
	}, nil
}
