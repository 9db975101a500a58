package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL is Google's OAuth2 v1 userinfo endpoint.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"

// Profile is the part of the userinfo response the app uses.
type Profile struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleProvider wraps golang.org/x/oauth2 for Google sign-in.
//
// Two entry points exist because the browser may already hold an access
// token (implicit flow through a JS client) or may come back to the daemon
// with an authorization code:
//
//	ExchangeToken(accessToken)  → userinfo
//	Exchange(code)              → access token → userinfo
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// ProviderOption customizes a GoogleProvider.
type ProviderOption func(*GoogleProvider)

// WithUserInfoURL points the provider at a different userinfo endpoint.
// Tests use it with an httptest server.
func WithUserInfoURL(u string) ProviderOption {
	return func(p *GoogleProvider) { p.userInfoURL = u }
}

// WithEndpoint overrides the authorization and token endpoints.
func WithEndpoint(e oauth2.Endpoint) ProviderOption {
	return func(p *GoogleProvider) { p.config.Endpoint = e }
}

// NewGoogleProvider creates a GoogleProvider. callbackURL must match the
// redirect URI registered in the Google Cloud console exactly.
func NewGoogleProvider(clientID, clientSecret, callbackURL string, opts ...ProviderOption) *GoogleProvider {
	p := &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: GoogleUserInfoURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AuthURL returns the consent page URL carrying state.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the user's profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	return p.fetchProfile(ctx, oauth2.StaticTokenSource(tok))
}

// ExchangeToken resolves an access token the client already holds into the
// user's profile.
func (p *GoogleProvider) ExchangeToken(ctx context.Context, accessToken string) (*Profile, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("auth: access token must not be empty")
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return p.fetchProfile(ctx, src)
}

func (p *GoogleProvider) fetchProfile(ctx context.Context, src oauth2.TokenSource) (*Profile, error) {
	client := oauth2.NewClient(ctx, src)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: userinfo endpoint returned status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("auth: decoding userinfo response: %w", err)
	}

	if profile.Email == "" {
		return nil, fmt.Errorf("auth: provider returned a profile without an email")
	}

	return &profile, nil
}
