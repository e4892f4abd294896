package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/libstats/internal/auth"
	"github.com/desertthunder/libstats/internal/shared"
	"golang.org/x/oauth2"
)

// StateCookie holds the login state between /login and /callback.
const StateCookie = "spotify_auth_state"

// Redirect fragment error codes.
const (
	ErrorStateMismatch = "state_mismatch"
	ErrorInvalidToken  = "invalid_token"
)

// AuthHandler serves the authorization-code flow:
//
//	GET /login          redirect to the provider with a fresh state cookie
//	GET /callback       exchange the code and redirect to /#access_token=..&refresh_token=..
//	GET /refresh_token  exchange a refresh token for a new access token
//
// The first fragment produced by /callback is also published on [AuthHandler.Result];
// every callback, first or not, reaches the hook set with [AuthHandler.OnResult].
type AuthHandler struct {
	config  *oauth2.Config
	renewer auth.Renewer
	logger  *log.Logger

	result chan string
	once   sync.Once

	mu     sync.Mutex
	notify func(auth.AuthState)
}

// NewAuthHandler creates an [AuthHandler]. renewer backs /refresh_token, usually an [auth.OAuthRefresher].
func NewAuthHandler(config *oauth2.Config, renewer auth.Renewer, logger *log.Logger) *AuthHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AuthHandler{
		config:  config,
		renewer: renewer,
		logger:  shared.WithLogger(logger, "component", "auth"),
		result:  make(chan string, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/login", "/callback", "/refresh_token"}
}

// ServeHTTP dispatches on path; only GET is allowed.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/login":
		h.Login(w, r)
	case "/callback":
		h.Callback(w, r)
	case "/refresh_token":
		h.RefreshToken(w, r)
	default:
		http.NotFound(w, r)
	}
}

// Login stores a random state in [StateCookie] and redirects to the provider's consent page.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateState()

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(10 * time.Minute),
	})

	http.Redirect(w, r, h.config.AuthCodeURL(state), http.StatusFound)
}

// Callback validates state against the cookie, exchanges the code, and redirects with the tokens in the fragment.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	state := query.Get("state")

	cookie, err := r.Cookie(StateCookie)
	if state == "" || err != nil || cookie.Value != state {
		h.logger.Warn("callback state mismatch")
		h.finish(w, r, auth.AuthState{Error: ErrorStateMismatch})
		return
	}

	http.SetCookie(w, &http.Cookie{Name: StateCookie, Value: "", Path: "/", MaxAge: -1})

	if denied := query.Get("error"); denied != "" {
		h.logger.Warn("authorization denied", "error", denied)
		h.finish(w, r, auth.AuthState{Error: denied})
		return
	}

	token, err := h.config.Exchange(r.Context(), query.Get("code"))
	if err != nil || token.AccessToken == "" || token.RefreshToken == "" {
		h.logger.Warn("token exchange failed", "error", err)
		h.finish(w, r, auth.AuthState{Error: ErrorInvalidToken})
		return
	}

	h.logger.Info("authorization complete")
	h.finish(w, r, auth.AuthState{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken})
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// RefreshToken answers {"access_token": ...} for the refresh_token query parameter.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken := r.URL.Query().Get("refresh_token")
	if refreshToken == "" {
		http.Error(w, "missing refresh_token", http.StatusBadRequest)
		return
	}

	accessToken, err := h.renewer.Refresh(r.Context(), refreshToken)
	if err != nil {
		h.logger.Warn("refresh failed", "error", err)
		http.Error(w, "refresh failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(refreshResponse{AccessToken: accessToken})
}

// finish publishes the outcome and redirects the browser to its fragment.
func (h *AuthHandler) finish(w http.ResponseWriter, r *http.Request, state auth.AuthState) {
	fragment := state.Fragment()
	h.once.Do(func() {
		h.result <- fragment
		close(h.result)
	})

	h.mu.Lock()
	notify := h.notify
	h.mu.Unlock()
	if notify != nil {
		notify(state)
	}

	http.Redirect(w, r, "/#"+fragment, http.StatusFound)
}

// OnResult registers fn to run synchronously for every completed callback,
// before the browser is redirected. fn must not block; nil clears the hook.
func (h *AuthHandler) OnResult(fn func(auth.AuthState)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notify = fn
}

// Result receives the first callback's fragment, then is closed.
func (h *AuthHandler) Result() <-chan string {
	return h.result
}
