// Package dropbox implements the dropbox driver against the Dropbox API v2:
// cursor-based folder listing and pre-authenticated temporary links.
package dropbox

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/browsekit/browsekit/internal/authz"
	"github.com/browsekit/browsekit/internal/driver"
	"github.com/browsekit/browsekit/internal/entry"
	"github.com/browsekit/browsekit/internal/rest"
)

const apiBaseURL = "https://api.dropboxapi.com"

// temporaryLinkTTL is how long Dropbox temporary links stay valid
// (documented as four hours).
const temporaryLinkTTL = 4 * time.Hour

// Driver lists folders one level at a time; pagination threads the cursor
// returned by the backend until has_more is false.
type Driver struct {
	driver.Base

	auth   *authz.Authorizer
	api    *rest.Client
	logger *slog.Logger
}

// New validates options and constructs the driver. client_id and
// client_secret are required; the legacy app_key/app_secret option names are
// accepted as aliases.
func New(opts driver.Options, deps driver.Deps) (driver.Driver, error) {
	clientID := firstOption(opts, "client_id", "app_key")
	clientSecret := firstOption(opts, "client_secret", "app_secret")

	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: provider dropbox missing required options [client_id client_secret]", driver.ErrConfig)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoints.Dropbox,
	}

	auth := authz.New(oauthCfg, deps.Tokens, deps.Session, driver.KeyDropbox, deps.Logger)

	return &Driver{
		auth:   auth,
		api:    rest.NewClient(apiBaseURL, deps.HTTPClient, auth, deps.Logger),
		logger: deps.Logger,
	}, nil
}

// firstOption returns the first non-empty value among the named options.
func firstOption(opts driver.Options, names ...string) string {
	for _, n := range names {
		if v := opts.String(n); v != "" {
			return v
		}
	}

	return ""
}

func (d *Driver) Key() string  { return driver.KeyDropbox }
func (d *Driver) Name() string { return "Dropbox" }
func (d *Driver) Icon() string { return "dropbox" }

func (d *Driver) Authorized() bool {
	return d.auth.Authorized(context.Background())
}

func (d *Driver) AuthorizationURL() (*url.URL, error) {
	return d.auth.URL()
}

func (d *Driver) Connect(ctx context.Context, code string) error {
	return d.auth.Exchange(ctx, code)
}

// API request/response shapes (unexported; entries are normalized before
// leaving this package).
type listFolderRequest struct {
	Path string `json:"path"`
}

type listFolderContinueRequest struct {
	Cursor string `json:"cursor"`
}

type metadataEntry struct {
	Tag            string    `json:".tag"` //nolint:tagliatelle // Dropbox union tag key
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	PathDisplay    string    `json:"path_display"`
	Size           int64     `json:"size"`
	ServerModified time.Time `json:"server_modified"`
}

type listFolderResponse struct {
	Entries []metadataEntry `json:"entries"`
	Cursor  string          `json:"cursor"`
	HasMore bool            `json:"has_more"`
}

type temporaryLinkRequest struct {
	Path string `json:"path"`
}

type temporaryLinkResponse struct {
	Metadata metadataEntry `json:"metadata"`
	Link     string        `json:"link"`
}

// Contents lists one level under path (empty means the Dropbox root),
// concatenating cursor pages in arrival order. The token is acquired once
// for the whole traversal.
func (d *Driver) Contents(ctx context.Context, listPath string) ([]entry.Entry, error) {
	tok, err := d.auth.Current(ctx)
	if err != nil {
		return nil, err
	}

	api := d.api.WithToken(rest.StaticToken(tok.AccessToken))

	var page listFolderResponse
	if err := api.PostJSON(ctx, "/2/files/list_folder", listFolderRequest{Path: listPath}, &page); err != nil {
		return nil, err
	}

	entries := d.toEntries(nil, page.Entries)

	pages := 1

	for page.HasMore {
		cursor := page.Cursor

		page = listFolderResponse{}
		if err := api.PostJSON(ctx, "/2/files/list_folder/continue",
			listFolderContinueRequest{Cursor: cursor}, &page); err != nil {
			return nil, err
		}

		entries = d.toEntries(entries, page.Entries)
		pages++
	}

	d.logger.Debug("listed dropbox folder",
		slog.String("path", listPath),
		slog.Int("pages", pages),
		slog.Int("entries", len(entries)),
	)

	return entries, nil
}

func (d *Driver) toEntries(acc []entry.Entry, raw []metadataEntry) []entry.Entry {
	for _, m := range raw {
		id := m.PathDisplay
		name := entry.NormalizeName(m.Name)

		if m.Tag == "folder" {
			acc = append(acc, entry.Container{
				ID:       id,
				Location: entry.NewLocation(driver.KeyDropbox, id),
				Name:     name,
				MTime:    entry.ValidTime(m.ServerModified.UTC(), "server_modified", id, d.logger),
			})

			continue
		}

		acc = append(acc, entry.Bytestream{
			ID:        id,
			Location:  entry.NewLocation(driver.KeyDropbox, id),
			Name:      name,
			Size:      m.Size,
			MTime:     entry.ValidTime(m.ServerModified.UTC(), "server_modified", id, d.logger),
			MediaType: "application/octet-stream",
		})
	}

	return acc
}

// LinkFor requests a temporary link. The link is pre-authenticated, so the
// auth header map stays empty.
func (d *Driver) LinkFor(ctx context.Context, id string) (*entry.DownloadSpec, error) {
	if !d.Authorized() {
		return nil, fmt.Errorf("%w: dropbox", driver.ErrNotAuthorized)
	}

	var resp temporaryLinkResponse
	if err := d.api.PostJSON(ctx, "/2/files/get_temporary_link", temporaryLinkRequest{Path: id}, &resp); err != nil {
		return nil, err
	}

	return &entry.DownloadSpec{
		URL:        resp.Link,
		AuthHeader: map[string]string{},
		Expires:    time.Now().UTC().Add(temporaryLinkTTL),
		FileName:   resp.Metadata.Name,
		FileSize:   resp.Metadata.Size,
	}, nil
}
