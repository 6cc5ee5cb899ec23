// Package authz implements OAuth2 credential acquisition, refresh, and
// persistence for backend drivers. One Authorizer serves one driver
// instance; tokens are stored scoped by (session, provider) so distinct end
// users of a host application never share a token namespace.
package authz

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/browsekit/browsekit/internal/driver"
	"github.com/browsekit/browsekit/internal/tokenstore"
)

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// Authorizer wraps an oauth2.Config with scoped token persistence and
// refresh serialization. Token refresh for one (session, provider) pair is
// collapsed through singleflight so concurrent calls never race on the
// stored credential.
type Authorizer struct {
	cfg      *oauth2.Config
	store    tokenstore.Store
	session  string
	provider string
	logger   *slog.Logger

	refresh singleflight.Group
}

// New builds an Authorizer. cfg must carry client credentials and an
// endpoint; the driver factory validates those before calling here.
func New(cfg *oauth2.Config, store tokenstore.Store, session, provider string, logger *slog.Logger) *Authorizer {
	return &Authorizer{
		cfg:      cfg,
		store:    store,
		session:  session,
		provider: provider,
		logger:   logger,
	}
}

// URL returns the backend's OAuth consent URL with a fresh random state
// parameter. Fails if client credentials are absent.
func (a *Authorizer) URL() (*url.URL, error) {
	if a.cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: provider %s has no client credentials", driver.ErrConfig, a.provider)
	}

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("authz: generating state token: %w", err)
	}

	raw := a.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("authz: parsing consent URL: %w", err)
	}

	return u, nil
}

// Exchange trades an authorization code for a token and persists it. On
// failure the stored state is unchanged and ErrNotAuthorized is returned.
func (a *Authorizer) Exchange(ctx context.Context, code string) error {
	tok, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		a.logger.Warn("authorization code exchange failed",
			slog.String("provider", a.provider),
			slog.String("error", err.Error()),
		)

		return fmt.Errorf("%w: code exchange for %s: %w", driver.ErrNotAuthorized, a.provider, err)
	}

	if err := a.store.Put(ctx, a.session, a.provider, tok); err != nil {
		return fmt.Errorf("authz: persisting token: %w", err)
	}

	a.logger.Info("provider authorized",
		slog.String("provider", a.provider),
		slog.Time("expiry", tok.Expiry),
	)

	return nil
}

// Authorized reports whether a usable token is stored. A present-but-expired
// token with a refresh token still counts as authorized — it will be
// refreshed on first use.
func (a *Authorizer) Authorized(ctx context.Context) bool {
	tok, err := a.store.Get(ctx, a.session, a.provider)
	if err != nil || tok == nil {
		return false
	}

	return tok.Valid() || tok.RefreshToken != ""
}

// Current returns a valid token, refreshing through the backend if the
// stored one has expired. Refreshed tokens are persisted before returning.
// Fails with ErrNotAuthorized when no token is stored or refresh is refused.
func (a *Authorizer) Current(ctx context.Context) (*oauth2.Token, error) {
	tok, err := a.store.Get(ctx, a.session, a.provider)
	if err != nil {
		return nil, fmt.Errorf("authz: loading token: %w", err)
	}

	if tok == nil {
		return nil, fmt.Errorf("%w: provider %s has no stored token", driver.ErrNotAuthorized, a.provider)
	}

	if tok.Valid() {
		return tok, nil
	}

	// Collapse concurrent refreshes to a single backend round trip.
	fresh, err, _ := a.refresh.Do(a.session+"\x00"+a.provider, func() (any, error) {
		return a.doRefresh(ctx, tok)
	})
	if err != nil {
		return nil, err
	}

	return fresh.(*oauth2.Token), nil
}

func (a *Authorizer) doRefresh(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := a.cfg.TokenSource(ctx, stale).Token()
	if err != nil {
		a.logger.Warn("token refresh failed",
			slog.String("provider", a.provider),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("%w: refreshing token for %s: %w", driver.ErrNotAuthorized, a.provider, err)
	}

	if err := a.store.Put(ctx, a.session, a.provider, fresh); err != nil {
		return nil, fmt.Errorf("authz: persisting refreshed token: %w", err)
	}

	a.logger.Debug("token refreshed",
		slog.String("provider", a.provider),
		slog.Time("new_expiry", fresh.Expiry),
	)

	return fresh, nil
}

// Token implements rest.TokenSource: it returns the current bearer value.
func (a *Authorizer) Token(ctx context.Context) (string, error) {
	tok, err := a.Current(ctx)
	if err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}

// Disconnect drops the stored token, returning the driver to unauthorized.
func (a *Authorizer) Disconnect(ctx context.Context) error {
	return a.store.Delete(ctx, a.session, a.provider)
}

// generateState produces a cryptographically random hex string for the
// OAuth2 state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
