// Package auth owns the user's Spotify credentials for the lifetime of the process.
//
// # Auth State
//
// The authorization front door finishes the OAuth2 code flow by redirecting to a URL whose fragment carries
// access_token and refresh_token (or error). [ParseFragment] turns that fragment into an [AuthState], which is
// never persisted.
//
// # Token Store
//
// [TokenStore] is the only writer of the access token. Readers call [TokenStore.Current] and never block.
// [TokenStore.Renew] exchanges the refresh token for a new access token through a [Renewer]; concurrent
// callers share one in-flight exchange (golang.org/x/sync/singleflight) so a slow response can never
// overwrite a newer token.
//
// # Renewers
//
//   - [EndpointRenewer] : calls the front door's GET /refresh_token endpoint
//   - [OAuthRefresher] : talks to Spotify's token endpoint directly via [oauth2.Config]
package auth
