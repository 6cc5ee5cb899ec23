package driver

import (
	"context"
	"net/url"

	"github.com/browsekit/browsekit/internal/entry"
)

// DefaultIcon is the generic icon hint used when a backend specifies none.
const DefaultIcon = "unknown"

// Base provides default behavior for drivers and test doubles: never
// authorized, empty contents, identity link resolution. Production drivers
// embed Base and must override Authorized, Contents, and LinkFor.
type Base struct{}

func (Base) Icon() string { return DefaultIcon }

func (Base) Authorized() bool { return false }

// AuthorizationURL fails by default — backends without an OAuth flow have no
// consent URL to offer.
func (Base) AuthorizationURL() (*url.URL, error) {
	return nil, ErrNotAuthorized
}

func (Base) Connect(context.Context, string) error {
	return ErrNotAuthorized
}

func (Base) Contents(context.Context, string) ([]entry.Entry, error) {
	return nil, nil
}

// LinkFor echoes the id back as an unauthenticated spec. Real drivers
// override this; the default lets partial test doubles exist.
func (Base) LinkFor(_ context.Context, id string) (*entry.DownloadSpec, error) {
	return &entry.DownloadSpec{URL: id, AuthHeader: map[string]string{}}, nil
}
