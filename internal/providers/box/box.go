// Package box implements the box driver against the Box content API v2:
// offset/limit folder listing and bearer-authenticated content URLs.
package box

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"time"

	"golang.org/x/oauth2"

	"github.com/browsekit/browsekit/internal/authz"
	"github.com/browsekit/browsekit/internal/driver"
	"github.com/browsekit/browsekit/internal/entry"
	"github.com/browsekit/browsekit/internal/rest"
)

const apiBaseURL = "https://api.box.com"

// rootFolderID is Box's well-known id for the account root.
const rootFolderID = "0"

// pageSize is the items-per-page limit for folder listings (Box maximum is
// 1000).
const pageSize = 1000

// itemFields trims listing responses to the fields the entry model needs.
const itemFields = "id,name,size,modified_at,type"

// Driver lists folders with offset pagination and resolves files to the
// authenticated content endpoint.
type Driver struct {
	driver.Base

	auth    *authz.Authorizer
	api     *rest.Client
	baseURL string
	logger  *slog.Logger
}

// New validates options and constructs the driver. client_id and
// client_secret are required.
func New(opts driver.Options, deps driver.Deps) (driver.Driver, error) {
	if err := opts.Require(driver.KeyBox, "client_id", "client_secret"); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     opts.String("client_id"),
		ClientSecret: opts.String("client_secret"),
		Endpoint:     authz.BoxEndpoint,
	}

	auth := authz.New(oauthCfg, deps.Tokens, deps.Session, driver.KeyBox, deps.Logger)

	return &Driver{
		auth:    auth,
		api:     rest.NewClient(apiBaseURL, deps.HTTPClient, auth, deps.Logger),
		baseURL: apiBaseURL,
		logger:  deps.Logger,
	}, nil
}

func (d *Driver) Key() string  { return driver.KeyBox }
func (d *Driver) Name() string { return "Box" }
func (d *Driver) Icon() string { return "box" }

func (d *Driver) Authorized() bool {
	return d.auth.Authorized(context.Background())
}

func (d *Driver) AuthorizationURL() (*url.URL, error) {
	return d.auth.URL()
}

func (d *Driver) Connect(ctx context.Context, code string) error {
	return d.auth.Exchange(ctx, code)
}

type boxItem struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

type itemsResponse struct {
	TotalCount int       `json:"total_count"`
	Entries    []boxItem `json:"entries"`
	Offset     int       `json:"offset"`
	Limit      int       `json:"limit"`
}

// Contents lists one folder level (empty path means the account root),
// concatenating offset pages in arrival order. The token is acquired once
// for the whole traversal.
func (d *Driver) Contents(ctx context.Context, listPath string) ([]entry.Entry, error) {
	folderID := listPath
	if folderID == "" {
		folderID = rootFolderID
	}

	tok, err := d.auth.Current(ctx)
	if err != nil {
		return nil, err
	}

	api := d.api.WithToken(rest.StaticToken(tok.AccessToken))

	var entries []entry.Entry

	offset := 0
	pages := 0

	for {
		reqPath := fmt.Sprintf("/2.0/folders/%s/items?fields=%s&limit=%d&offset=%d",
			url.PathEscape(folderID), itemFields, pageSize, offset)

		var page itemsResponse
		if err := api.GetJSON(ctx, reqPath, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Entries {
			entries = append(entries, d.toEntry(item))
		}

		pages++

		offset += len(page.Entries)
		if offset >= page.TotalCount || len(page.Entries) == 0 {
			break
		}
	}

	d.logger.Debug("listed box folder",
		slog.String("folder_id", folderID),
		slog.Int("pages", pages),
		slog.Int("entries", len(entries)),
	)

	return entries, nil
}

func (d *Driver) toEntry(item boxItem) entry.Entry {
	name := entry.NormalizeName(item.Name)
	mtime := entry.ValidTime(item.ModifiedAt.UTC(), "modified_at", item.ID, d.logger)

	if item.Type == "folder" {
		return entry.Container{
			ID:       item.ID,
			Location: entry.NewLocation(driver.KeyBox, item.ID),
			Name:     name,
			MTime:    mtime,
		}
	}

	mediaType := mime.TypeByExtension(path.Ext(item.Name))
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	return entry.Bytestream{
		ID:        item.ID,
		Location:  entry.NewLocation(driver.KeyBox, item.ID),
		Name:      name,
		Size:      item.Size,
		MTime:     mtime,
		MediaType: mediaType,
	}
}

// LinkFor resolves a file id to the authenticated content endpoint. The URL
// requires the bearer header; expiry is estimated from the current token.
func (d *Driver) LinkFor(ctx context.Context, id string) (*entry.DownloadSpec, error) {
	tok, err := d.auth.Current(ctx)
	if err != nil {
		return nil, err
	}

	api := d.api.WithToken(rest.StaticToken(tok.AccessToken))

	var item boxItem
	if err := api.GetJSON(ctx, "/2.0/files/"+url.PathEscape(id)+"?fields="+itemFields, &item); err != nil {
		return nil, err
	}

	expires := tok.Expiry
	if expires.IsZero() {
		expires = time.Now().UTC().Add(time.Hour)
	}

	return &entry.DownloadSpec{
		URL:        d.baseURL + "/2.0/files/" + url.PathEscape(id) + "/content",
		AuthHeader: map[string]string{"Authorization": "Bearer " + tok.AccessToken},
		Expires:    expires,
		FileName:   item.Name,
		FileSize:   item.Size,
	}, nil
}
