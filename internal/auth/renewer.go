package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/libstats/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultAccountsURL is Spotify's accounts service, home of the authorize and token endpoints.
const DefaultAccountsURL = "https://accounts.spotify.com"

// Scopes requested during authorization; user-library-read covers saved tracks.
var Scopes = []string{"user-read-private", "user-read-email", "user-library-read"}

// NewOAuthConfig builds the [oauth2.Config] for Spotify's authorization-code flow.
func NewOAuthConfig(cfg shared.SpotifyConfig) (*oauth2.Config, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	accounts := strings.TrimRight(cfg.AccountsURL, "/")
	if accounts == "" {
		accounts = DefaultAccountsURL
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   accounts + "/authorize",
			TokenURL:  accounts + "/api/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}, nil
}

// OAuthRefresher renews tokens against the provider's token endpoint.
type OAuthRefresher struct {
	config *oauth2.Config
}

// NewOAuthRefresher creates an [OAuthRefresher] for config.
func NewOAuthRefresher(config *oauth2.Config) *OAuthRefresher {
	return &OAuthRefresher{config: config}
}

// Refresh implements [Renewer].
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", shared.ErrNoRefreshToken
	}

	token, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("refresh grant failed: %w", err)
	}

	return token.AccessToken, nil
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// EndpointRenewer renews tokens through the front door's GET /refresh_token endpoint.
type EndpointRenewer struct {
	baseURL    string
	httpClient *http.Client
}

// NewEndpointRenewer creates an [EndpointRenewer] for the front door at baseURL.
func NewEndpointRenewer(baseURL string, client *http.Client) *EndpointRenewer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &EndpointRenewer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// Refresh implements [Renewer].
func (r *EndpointRenewer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", shared.ErrNoRefreshToken
	}

	endpoint := r.baseURL + "/refresh_token?" + url.Values{"refresh_token": {refreshToken}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &shared.RemoteRequestError{Status: resp.StatusCode, Body: body}
	}

	var data refreshResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("malformed refresh response: %w", err)
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("malformed refresh response: missing access_token")
	}

	return data.AccessToken, nil
}
