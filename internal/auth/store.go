package auth

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/libstats/internal/shared"
	"golang.org/x/sync/singleflight"
)

const renewKey = "renew"

// Renewer exchanges a refresh token for a fresh access token.
type Renewer interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// TokenStore holds the current access token and the refresh token it was issued with.
type TokenStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
	ready   bool

	renewer  Renewer
	group    singleflight.Group
	renewals atomic.Int64
	logger   *log.Logger
}

// NewTokenStore creates an empty [TokenStore]; call [TokenStore.Initialize] before use.
func NewTokenStore(renewer Renewer, logger *log.Logger) *TokenStore {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TokenStore{
		renewer: renewer,
		logger:  shared.WithLogger(logger, "component", "tokens"),
	}
}

// Initialize stores the credentials obtained from the authorization redirect. It may succeed only once.
func (s *TokenStore) Initialize(accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		return fmt.Errorf("%w: access and refresh tokens are both required", shared.ErrInvalidCredentials)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return shared.ErrAlreadyInitialized
	}

	s.access = accessToken
	s.refresh = refreshToken
	s.ready = true
	return nil
}

// InitializeFromState initializes the store from a parsed redirect fragment.
//
// A flagged authorization error takes precedence over missing tokens.
func (s *TokenStore) InitializeFromState(state AuthState) error {
	if state.Failed() {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, state.Error)
	}
	return s.Initialize(state.AccessToken, state.RefreshToken)
}

// Current returns the access token currently in effect.
func (s *TokenStore) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// Renew exchanges the refresh token for a new access token and stores it.
//
// Callers arriving while an exchange is in flight wait for that exchange instead of starting another.
// ctx only bounds how long this caller waits; the shared exchange is not cancelled with it.
// On failure the previous access token stays in place.
func (s *TokenStore) Renew(ctx context.Context) (string, error) {
	s.mu.RLock()
	ready, refresh := s.ready, s.refresh
	s.mu.RUnlock()

	if !ready {
		return "", shared.ErrNotAuthenticated
	}
	if s.renewer == nil {
		return "", fmt.Errorf("%w: no renewer configured", shared.ErrRenewalFailed)
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(renewKey, func() (any, error) {
		s.renewals.Add(1)
		s.logger.Debug("renewing access token")

		token, err := s.renewer.Refresh(detached, refresh)
		if err != nil {
			s.logger.Warn("token renewal failed", "error", err)
			return "", fmt.Errorf("%w: %v", shared.ErrRenewalFailed, err)
		}
		if token == "" {
			return "", fmt.Errorf("%w: empty access token", shared.ErrRenewalFailed)
		}

		s.mu.Lock()
		s.access = token
		s.mu.Unlock()

		s.logger.Info("access token renewed")
		return token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Renewals returns how many refresh exchanges this store has performed.
func (s *TokenStore) Renewals() int64 {
	return s.renewals.Load()
}
