package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrAlreadyInitialized = fmt.Errorf("credentials already initialized")
	ErrTokenExpired       = fmt.Errorf("access token expired")
	ErrRenewalFailed      = fmt.Errorf("token renewal failed")
	ErrNoRefreshToken     = fmt.Errorf("no refresh token available")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPagination         = fmt.Errorf("pagination failed")
	ErrChunkTooLarge      = fmt.Errorf("batch exceeds maximum size")
	ErrSnapshotNotFound   = fmt.Errorf("snapshot not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// RemoteRequestError reports a non-2xx response that is not eligible for retry.
//
// It unwraps to [ErrAPIRequest].
type RemoteRequestError struct {
	Status int
	Body   []byte
}

func (e *RemoteRequestError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%v: status %d", ErrAPIRequest, e.Status)
	}
	return fmt.Sprintf("%v: status %d, body: %s", ErrAPIRequest, e.Status, e.Body)
}

func (e *RemoteRequestError) Unwrap() error {
	return ErrAPIRequest
}
