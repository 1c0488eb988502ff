package google

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Credentials holds the OAuth2 client settings, all supplied at the boundary
// via configuration. No defaults are baked in.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuthConfig returns the OAuth2 configuration for the Google Calendar flow.
func OAuthConfig(creds Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes(),
	}
}

// AuthCodeURL builds the authorization URL for the consent screen. The state
// parameter must round-trip exactly through the callback. Offline access and
// the consent prompt are requested so a refresh token is issued.
func AuthCodeURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange trades an authorization code for a token.
func Exchange(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response contained no access token")
	}
	if token.Expiry.IsZero() {
		// The token endpoint occasionally omits expires_in; the session
		// still has to age out.
		token.Expiry = time.Now().Add(time.Hour)
	}
	return token, nil
}
