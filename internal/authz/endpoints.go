package authz

import "golang.org/x/oauth2"

// BoxEndpoint is Box's OAuth2 endpoint. Box is not covered by
// x/oauth2/endpoints, so it is declared here; Dropbox and Google come from
// that package.
var BoxEndpoint = oauth2.Endpoint{
	AuthURL:  "https://account.box.com/api/oauth2/authorize",
	TokenURL: "https://api.box.com/oauth2/token",
}
