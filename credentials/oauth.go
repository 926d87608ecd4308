package credentials

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Gmail scopes: read and label incoming mail, send replies.
var gmailScopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
	gmail.GmailModifyScope,
}

// OAuthConfig builds the oauth2 config for the out-of-band desktop flow.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       gmailScopes,
	}
}

// AuthURL returns the URL the user visits to grant access.
func AuthURL(clientID, clientSecret string) string {
	return OAuthConfig(clientID, clientSecret).AuthCodeURL("state", oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and stores it.
func Exchange(ctx context.Context, store *Store, clientID, clientSecret, code string) error {
	tok, err := OAuthConfig(clientID, clientSecret).Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}

	creds := &Credentials{ClientID: clientID, ClientSecret: clientSecret}
	creds.SetToken(tok)
	return store.Save(creds)
}

// persistingTokenSource saves refreshed tokens back to the store so the
// refresh survives restarts.
type persistingTokenSource struct {
	src   oauth2.TokenSource
	store *Store
	creds *Credentials
	last  string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		p.creds.SetToken(tok)
		// Best effort: a failed save means one extra refresh next start.
		_ = p.store.Save(p.creds)
	}
	return tok, nil
}

// NewGmailService builds an authenticated Gmail client from stored
// credentials, refreshing and re-persisting the token as needed.
func NewGmailService(ctx context.Context, store *Store) (*gmail.Service, error) {
	creds, err := store.Load()
	if err != nil {
		return nil, err
	}
	if creds.RefreshToken == "" && creds.AccessToken == "" {
		return nil, ErrNoCredentials
	}

	cfg := OAuthConfig(creds.ClientID, creds.ClientSecret)
	source := &persistingTokenSource{
		src:   cfg.TokenSource(ctx, creds.Token()),
		store: store,
		creds: creds,
		last:  creds.AccessToken,
	}

	service, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(nil, source)))
	if err != nil {
		return nil, fmt.Errorf("creating gmail client: %w", err)
	}
	return service, nil
}
