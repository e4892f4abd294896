// Package server is the local authorization front door.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// [BasicRouter] registers "GET /login", "GET /callback", "GET /refresh_token" and "GET /{$}" as
// [http.ServeMux] method patterns; other methods get 405 and unknown paths 404.
//
// # Authorization Code Flow
//
// [AuthHandler] implements the three endpoints a browser client needs:
//
//	GET /login          sets the spotify_auth_state cookie, redirects to accounts.spotify.com
//	GET /callback       checks state, exchanges the code, redirects to /#access_token=..&refresh_token=..
//	GET /refresh_token  {"access_token": "..."} for ?refresh_token=
//
// Failures redirect to /#error=state_mismatch or /#error=invalid_token. A one-shot login reads the
// first fragment from [AuthHandler.Result]; a long-running front door sees every callback through
// [AuthHandler.OnResult].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
