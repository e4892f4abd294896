// Package services implements the Spotify side of libstats: authorized requests, exhaustive pagination of the
// saved-tracks collection, and batched album lookups.
//
// # Authorizing Client
//
// [AuthorizingClient] attaches the current bearer token to every GET. Its retry policy is an explicit state
// machine (see [transition]):
//
//	Unauthenticated ─────────────────────────────────────────► Failed
//	Requesting ──2xx──► Succeeded
//	Requesting ──401 "The access token expired"──► Renewing
//	Renewing ──ok──► RetryingOnce ──2xx──► Succeeded
//	Renewing ──err─► Failed        RetryingOnce ──any error──► Failed
//	Requesting ──any other error──► Failed
//
// The retry budget is one, so a request costs at most two round trips. Every attempt waits on a shared
// [rate.Limiter].
//
// # Paginator
//
// [Paginator] learns the collection size from the first page, fetches the remaining pages concurrently with
// [errgroup], and reassembles them by offset. A single failed page fails the whole run. Completed runs are
// cached per resource for the life of the process.
//
// # Album Lookup
//
// [AlbumLookup] resolves at most [MaxAlbumBatch] ids per request and never truncates a larger batch.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : no access token yet
//   - [shared.ErrRenewalFailed] : the refresh exchange failed
//   - [shared.RemoteRequestError] : any other non-2xx response
//   - [shared.ErrPagination] : a page of a pagination run failed
//   - [shared.ErrChunkTooLarge] : more than [MaxAlbumBatch] ids in one lookup
package services
