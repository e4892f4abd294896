package shared

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLogger(t *testing.T) {
	t.Run("writes to provided writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("hello", "key", "value")

		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("expected log output to contain message, got %q", buf.String())
		}
	})

	t.Run("child logger carries fields", func(t *testing.T) {
		var buf bytes.Buffer
		child := WithLogger(NewLogger(&buf), "component", "paginator")
		child.Info("page fetched")

		if !strings.Contains(buf.String(), "component=paginator") {
			t.Errorf("expected component field, got %q", buf.String())
		}
	})

	t.Run("level filters output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.ErrorLevel)
		logger.Info("quiet")

		if buf.Len() != 0 {
			t.Errorf("expected no output below error level, got %q", buf.String())
		}
	})

	t.Run("file logger creates directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "libstats.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("failed to create file logger: %v", err)
		}
		logger.Info("written")
	})
}

func TestIDs(t *testing.T) {
	t.Run("GenerateID is unique", func(t *testing.T) {
		if GenerateID() == GenerateID() {
			t.Error("expected distinct ids")
		}
	})

	t.Run("GenerateState is hex", func(t *testing.T) {
		state := GenerateState()
		if len(state) != 32 {
			t.Errorf("expected 32 hex chars, got %d (%s)", len(state), state)
		}
		if strings.Trim(state, "0123456789abcdef") != "" {
			t.Errorf("expected only hex characters, got %s", state)
		}
	})
}

func TestRemoteRequestError(t *testing.T) {
	err := error(&RemoteRequestError{Status: 404, Body: []byte(`{"error":"missing"}`)})

	if !errors.Is(err, ErrAPIRequest) {
		t.Error("expected RemoteRequestError to unwrap to ErrAPIRequest")
	}

	var remote *RemoteRequestError
	if !errors.As(err, &remote) || remote.Status != 404 {
		t.Errorf("expected errors.As to recover status 404, got %v", remote)
	}

	if !strings.Contains(err.Error(), "status 404") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestBrowserCommand(t *testing.T) {
	const loginURL = "http://127.0.0.1:8888/login?a=1&b=2"

	t.Run("per platform", func(t *testing.T) {
		for _, tc := range []struct {
			goos string
			want string
		}{
			{"darwin", "open " + loginURL},
			{"linux", "xdg-open " + loginURL},
			{"windows", "rundll32 url.dll,FileProtocolHandler " + loginURL},
		} {
			t.Run(tc.goos, func(t *testing.T) {
				cmd, err := browserCommand(tc.goos, loginURL)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got := strings.Join(cmd.Args, " "); got != tc.want {
					t.Errorf("expected %q, got %q", tc.want, got)
				}
			})
		}
	})

	t.Run("rejects non-http urls", func(t *testing.T) {
		for _, raw := range []string{"file:///etc/passwd", "javascript:alert(1)", "/login", "http://"} {
			if _, err := browserCommand("linux", raw); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("%q: expected ErrInvalidArgument, got %v", raw, err)
			}
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		if _, err := browserCommand("plan9", loginURL); err == nil {
			t.Error("expected error")
		}
	})
}
