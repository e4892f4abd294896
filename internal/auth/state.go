package auth

import (
	"net/url"
	"strings"
)

// AuthState is derived once from the authorization redirect fragment.
type AuthState struct {
	AccessToken  string
	RefreshToken string
	Error        string
}

// ParseFragment reads access_token, refresh_token and error from a URL fragment.
//
// Accepts a bare fragment ("access_token=..."), one with a leading "#", or a full redirect URL.
func ParseFragment(fragment string) AuthState {
	if i := strings.IndexByte(fragment, '#'); i >= 0 {
		fragment = fragment[i+1:]
	}

	// malformed pairs are skipped; whatever parsed is kept
	values, _ := url.ParseQuery(fragment)

	return AuthState{
		AccessToken:  values.Get("access_token"),
		RefreshToken: values.Get("refresh_token"),
		Error:        values.Get("error"),
	}
}

// Fragment encodes the state the way the front door puts it on its redirect.
func (s AuthState) Fragment() string {
	values := url.Values{}
	if s.Error != "" {
		values.Set("error", s.Error)
		return values.Encode()
	}
	values.Set("access_token", s.AccessToken)
	values.Set("refresh_token", s.RefreshToken)
	return values.Encode()
}

// Failed reports whether the authorization server flagged an error.
func (s AuthState) Failed() bool {
	return s.Error != ""
}
