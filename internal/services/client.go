package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/libstats/internal/shared"
	"golang.org/x/time/rate"
)

// tokenExpiredMessage is the error.message Spotify sends with a 401 for an expired access token.
const tokenExpiredMessage = "The access token expired"

// requestState is a step of the retry-once state machine driven by [AuthorizingClient.Request].
type requestState int

const (
	stateUnauthenticated requestState = iota
	stateRequesting
	stateRenewing
	stateRetryingOnce
	stateFailed
	stateSucceeded
)

func (s requestState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateRequesting:
		return "requesting"
	case stateRenewing:
		return "renewing"
	case stateRetryingOnce:
		return "retrying_once"
	case stateFailed:
		return "failed"
	case stateSucceeded:
		return "succeeded"
	default:
		return ""
	}
}

func (s requestState) terminal() bool {
	return s == stateFailed || s == stateSucceeded
}

// outcome is what happened while in a state.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeExpired
	outcomeError
)

// transition is the whole retry policy. Only Requesting may lead to Renewing, so at most one retry happens.
func transition(s requestState, o outcome) requestState {
	switch s {
	case stateRequesting:
		switch o {
		case outcomeOK:
			return stateSucceeded
		case outcomeExpired:
			return stateRenewing
		default:
			return stateFailed
		}
	case stateRenewing:
		if o == outcomeOK {
			return stateRetryingOnce
		}
		return stateFailed
	case stateRetryingOnce:
		if o == outcomeOK {
			return stateSucceeded
		}
		return stateFailed
	case stateUnauthenticated:
		return stateFailed
	default:
		return s
	}
}

// ClientOpts configures an [AuthorizingClient].
type ClientOpts struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter // nil disables rate limiting
	Logger     *log.Logger
}

// AuthorizingClient issues bearer-authorized GET requests and renews an expired token once per request.
type AuthorizingClient struct {
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewAuthorizingClient creates an [AuthorizingClient] reading credentials from tokens.
func NewAuthorizingClient(tokens TokenSource, opts ClientOpts) *AuthorizingClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 0)
	}

	return &AuthorizingClient{
		tokens:     tokens,
		httpClient: opts.HTTPClient,
		limiter:    opts.Limiter,
		logger:     shared.WithLogger(opts.Logger, "component", "client"),
	}
}

// Request performs a GET on url and returns the body of a 2xx response.
//
// A 401 signalling token expiry renews the token and retries exactly once. Every other failure is returned
// as is: non-2xx responses as [*shared.RemoteRequestError], renewal failures as [shared.ErrRenewalFailed].
func (c *AuthorizingClient) Request(ctx context.Context, url string) ([]byte, error) {
	state := stateRequesting
	if c.tokens.Current() == "" {
		state = stateUnauthenticated
	}

	var (
		body []byte
		err  error
	)

	for !state.terminal() {
		var o outcome

		switch state {
		case stateUnauthenticated:
			err, o = shared.ErrNotAuthenticated, outcomeError
		case stateRequesting, stateRetryingOnce:
			body, o, err = c.attempt(ctx, url)
		case stateRenewing:
			o = outcomeOK
			if _, err = c.tokens.Renew(ctx); err != nil {
				o = outcomeError
			}
		}

		next := transition(state, o)
		if next != stateSucceeded {
			c.logger.Debug("request state", "url", url, "from", state, "to", next)
		}
		state = next
	}

	if state == stateFailed {
		return nil, err
	}
	return body, nil
}

// GetJSON performs [AuthorizingClient.Request] and decodes the body into v.
func (c *AuthorizingClient) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Request(ctx, url)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// attempt sends one request with the token currently in effect.
func (c *AuthorizingClient) attempt(ctx context.Context, url string) ([]byte, outcome, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, outcomeError, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, outcomeError, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.tokens.Current())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, outcomeError, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, outcomeError, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, outcomeOK, nil
	}

	remoteErr := &shared.RemoteRequestError{Status: resp.StatusCode, Body: body}
	if resp.StatusCode == http.StatusUnauthorized && isTokenExpired(body) {
		return nil, outcomeExpired, remoteErr
	}

	c.logger.Warn("remote request failed", "url", url, "status", resp.StatusCode)
	return nil, outcomeError, remoteErr
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// isTokenExpired reports whether a 401 body is Spotify's expired-token error, as opposed to e.g. a revoked
// or malformed token.
func isTokenExpired(body []byte) bool {
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(e.Error.Message), tokenExpiredMessage)
}
