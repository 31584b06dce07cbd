package google

import (
	"context"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// OAuthClient is the OAuth application used to refresh user tokens.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	// Endpoint overrides Google's token endpoint. Used in tests.
	Endpoint *oauth2.Endpoint
}

// Config returns the oauth2 configuration for read-only Drive access.
func (c OAuthClient) Config() *oauth2.Config {
	endpoint := googleoauth.Endpoint
	if c.Endpoint != nil {
		endpoint = *c.Endpoint
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{drive.DriveReadonlyScope},
	}
}

// NewUserTokenSource returns a caching TokenSource that exchanges
// refreshToken for access tokens as they expire.
func NewUserTokenSource(ctx context.Context, client OAuthClient, refreshToken string) oauth2.TokenSource {
	return client.Config().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}
