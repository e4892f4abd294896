// package services talks to the Spotify Web API on behalf of the authenticated user
package services

import (
	"context"
)

// TokenSource is the read/renew view of the credential store used by [AuthorizingClient].
//
// Implemented by auth.TokenStore.
type TokenSource interface {
	// Current returns the access token in effect without blocking.
	Current() string

	// Renew exchanges the refresh token for a new access token.
	// Concurrent calls share a single exchange.
	Renew(ctx context.Context) (string, error)
}

// JSONGetter issues an authorized GET and decodes the JSON body into v.
//
// Implemented by [AuthorizingClient]; [Paginator] and [AlbumLookup] depend only on this.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v any) error
}
