package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/libstats/internal/shared"
	tu "github.com/desertthunder/libstats/internal/testing"
	"github.com/urfave/cli/v3"
)

const testFragment = "access_token=token-0&refresh_token=refresh-0"

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// newTestRunner returns a runner pointed at fake, with the front door on a free port and a throwaway database.
func newTestRunner(t *testing.T, fake *tu.FakeSpotify) (*Runner, *bytes.Buffer) {
	t.Helper()

	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "id"
	config.Credentials.Spotify.ClientSecret = "secret"
	config.Credentials.Spotify.AccountsURL = fake.URL()
	config.Server.Port = 0
	config.Stats.APIBaseURL = fake.APIBaseURL()
	config.Stats.RateLimit = 1000
	config.Stats.Burst = 100
	config.Database.Path = filepath.Join(t.TempDir(), "libstats.db")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:       config,
		Logger:       shared.NewLogger(io.Discard),
		Output:       output,
		OpenBrowser:  func(string) error { return errors.New("no browser") },
		LoginTimeout: 200 * time.Millisecond,
	})
	return runner, output
}

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "libstats", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"libstats"}, args...))
}

type statsJSON struct {
	Policy  string `json:"policy"`
	Records int    `json:"records"`
	Buckets []struct {
		Key   string `json:"key"`
		Count int    `json:"count"`
	} `json:"buckets"`
}

func decodeStats(t *testing.T, output *bytes.Buffer) statsJSON {
	t.Helper()
	var out statsJSON
	if err := json.Unmarshal(output.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode output %q: %v", output.String(), err)
	}
	return out
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:       config,
				ConfigPath:   "/test/path/config.toml",
				Logger:       logger,
				Output:       output,
				HTTPClient:   httpClient,
				LoginTimeout: time.Second,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.loginTimeout != time.Second {
				t.Errorf("expected login timeout 1s, got %v", runner.loginTimeout)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient == nil {
				t.Error("expected default httpClient")
			}
			if runner.openBrowser == nil {
				t.Error("expected default browser opener")
			}
			if runner.loginTimeout != defaultLoginTimeout {
				t.Errorf("expected default login timeout, got %v", runner.loginTimeout)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "serve", "stats", "export", "snapshots", "tui"} {
			if !names[want] {
				t.Errorf("expected command %q to be registered", want)
			}
		}
	})
}

func TestStats(t *testing.T) {
	t.Run("counts by month from a fragment", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.AddTracks(40, epoch, 24*time.Hour, nil)
		runner, output := newTestRunner(t, fake)

		if err := run(runner, "stats", "--by", "month", "--fragment", testFragment, "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := decodeStats(t, output)
		if out.Policy != "month" || out.Records != 40 {
			t.Errorf("unexpected header %+v", out)
		}
		if len(out.Buckets) != 2 || out.Buckets[0].Key != "Jan-24" || out.Buckets[0].Count != 31 || out.Buckets[1].Count != 9 {
			t.Errorf("unexpected buckets %+v", out.Buckets)
		}
	})

	t.Run("renews an expired token through the front door", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.AddTracks(10, epoch, time.Hour, nil)
		fake.Expire()
		runner, output := newTestRunner(t, fake)

		if err := run(runner, "stats", "--by", "year", "--fragment", testFragment, "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if fake.Refreshes() != 1 {
			t.Errorf("expected 1 refresh, got %d", fake.Refreshes())
		}
		if out := decodeStats(t, output); len(out.Buckets) != 1 || out.Buckets[0].Key != "2024" {
			t.Errorf("unexpected buckets %+v", out.Buckets)
		}
	})

	t.Run("chart and csv output", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.AddTracks(7, epoch, 24*time.Hour, nil)

		runner, output := newTestRunner(t, fake)
		if err := run(runner, "stats", "--by", "weekday", "--fragment", testFragment); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Monday") || !strings.Contains(output.String(), "total 7 across 7 buckets") {
			t.Errorf("unexpected chart:\n%s", output.String())
		}

		runner, output = newTestRunner(t, fake)
		if err := run(runner, "stats", "--by", "day", "--fragment", testFragment, "--format", "csv"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.HasPrefix(output.String(), "Key,Count\n1-Jan-24,1\n") {
			t.Errorf("unexpected csv:\n%s", output.String())
		}
	})

	t.Run("browser login", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.AddTracks(3, epoch, time.Hour, nil)
		runner, output := newTestRunner(t, fake)
		runner.loginTimeout = 5 * time.Second
		runner.openBrowser = func(loginURL string) error {
			go authorizeInBrowser(t, loginURL, "good-code")
			return nil
		}

		if err := run(runner, "stats", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := output.String()
		if i := strings.Index(out, "{"); i >= 0 {
			output = bytes.NewBufferString(out[i:])
		}
		if got := decodeStats(t, output); got.Records != 3 {
			t.Errorf("expected 3 records, got %d", got.Records)
		}
	})

	t.Run("browser login with a rejected code", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		runner, _ := newTestRunner(t, fake)
		runner.loginTimeout = 5 * time.Second
		runner.openBrowser = func(loginURL string) error {
			go authorizeInBrowser(t, loginURL, "bad-code")
			return nil
		}

		if err := run(runner, "stats"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("login times out", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		runner, output := newTestRunner(t, fake)

		if err := run(runner, "stats"); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(output.String(), "/login") {
			t.Errorf("expected login URL to be printed, got %q", output.String())
		}
	})

	t.Run("fragment carrying an error", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		runner, _ := newTestRunner(t, fake)

		if err := run(runner, "stats", "--fragment", "#error=access_denied"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("fragment missing tokens", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		runner, _ := newTestRunner(t, fake)

		if err := run(runner, "stats", "--fragment", "access_token=token-0"); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("invalid flags", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		runner, _ := newTestRunner(t, fake)

		if err := run(runner, "stats", "--by", "hour", "--fragment", testFragment); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for policy, got %v", err)
		}
		if err := run(runner, "stats", "--format", "xml", "--fragment", testFragment); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for format, got %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		runner, _ := newTestRunner(t, fake)
		runner.config.Stats.PageSize = 51

		if err := run(runner, "stats", "--fragment", testFragment); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

// authorizeInBrowser plays the browser: it follows /login, lets the provider "approve" with code and
// returns to the callback with the state cookie.
func authorizeInBrowser(t *testing.T, loginURL, code string) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Errorf("failed to create cookie jar: %v", err)
		return
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(loginURL)
	if err != nil {
		t.Errorf("login request failed: %v", err)
		return
	}
	resp.Body.Close()

	consent, err := resp.Location()
	if err != nil {
		t.Errorf("expected redirect to consent page: %v", err)
		return
	}

	callback := strings.TrimSuffix(loginURL, "/login") + "/callback?" + url.Values{
		"code":  {code},
		"state": {consent.Query().Get("state")},
	}.Encode()

	resp, err = client.Get(callback)
	if err != nil {
		t.Errorf("callback request failed: %v", err)
		return
	}
	resp.Body.Close()
}

func TestExport(t *testing.T) {
	fake := tu.NewFakeSpotify(t)
	fake.AddTracks(30, epoch, 12*time.Hour, nil)
	runner, output := newTestRunner(t, fake)
	dir := filepath.Join(t.TempDir(), "out")

	err := run(runner, "export", "--fragment", testFragment, "--format", "csv", "--output", dir, "--by", "month", "--by", "year")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	tu.AssertFileExists(t, filepath.Join(dir, "month.csv"))
	tu.AssertFileExists(t, filepath.Join(dir, "year.csv"))
	tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))

	if _, err := os.Stat(filepath.Join(dir, "genre.csv")); !os.IsNotExist(err) {
		t.Error("expected only the requested policies to be exported")
	}
	if !strings.Contains(output.String(), "Succeeded: 2, failed: 0") {
		t.Errorf("unexpected summary:\n%s", output.String())
	}
	if got := tu.MustReadFile(t, filepath.Join(dir, "year.csv")); got != "Key,Count\n2024,30\n" {
		t.Errorf("unexpected year.csv %q", got)
	}
}

func TestSnapshots(t *testing.T) {
	fake := tu.NewFakeSpotify(t)
	fake.AddTracks(40, epoch, 24*time.Hour, nil)
	runner, output := newTestRunner(t, fake)

	if err := run(runner, "snapshots", "list"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(output.String(), "No snapshots saved") {
		t.Errorf("expected empty listing, got %q", output.String())
	}

	for _, policy := range []string{"month", "year"} {
		if err := run(runner, "stats", "--by", policy, "--fragment", testFragment, "--save", "--json"); err != nil {
			t.Fatalf("stats --save failed: %v", err)
		}
	}

	t.Run("list", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "snapshots", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Found 2 snapshots") {
			t.Errorf("unexpected listing:\n%s", output.String())
		}

		output.Reset()
		if err := run(runner, "snapshots", "list", "--by", "year", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var listed []snapshotOutput
		if err := json.Unmarshal(output.Bytes(), &listed); err != nil {
			t.Fatalf("failed to decode listing: %v", err)
		}
		if len(listed) != 1 || listed[0].Policy != "year" || listed[0].Sequence != 2 {
			t.Errorf("unexpected filtered listing %+v", listed)
		}
	})

	t.Run("show", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "snapshots", "show", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Jan-24") || !strings.Contains(output.String(), "total 40 across 2 buckets") {
			t.Errorf("unexpected chart:\n%s", output.String())
		}
	})

	t.Run("delete", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "snapshots", "delete", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := run(runner, "snapshots", "show", "1"); !errors.Is(err, shared.ErrSnapshotNotFound) {
			t.Errorf("expected ErrSnapshotNotFound, got %v", err)
		}
	})

	t.Run("missing sequence", func(t *testing.T) {
		if err := run(runner, "snapshots", "show"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestServe(t *testing.T) {
	t.Run("announces every login", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		runner, output := newTestRunner(t, fake)

		srv, handler, err := runner.startFrontDoor()
		if err != nil {
			t.Fatalf("failed to start front door: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- runner.announceLogins(ctx, srv, handler) }()

		base := "http://" + srv.Addr()
		resp, err := http.Get(base + "/callback?state=stray&code=good-code")
		if err != nil {
			t.Fatalf("stray callback failed: %v", err)
		}
		resp.Body.Close()
		authorizeInBrowser(t, base+"/login", "good-code")

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("announceLogins did not return")
		}

		out := output.String()
		if !strings.Contains(out, "✗ Authorization failed: state_mismatch") {
			t.Errorf("expected failed login to be announced, got:\n%s", out)
		}
		if !strings.Contains(out, "--fragment '"+testFragment+"'") {
			t.Errorf("expected successful login to be announced, got:\n%s", out)
		}
		if strings.Index(out, "✗") > strings.Index(out, "✓") {
			t.Errorf("expected announcements in callback order, got:\n%s", out)
		}
	})
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	wd := tu.MustGetwd(t)
	tu.MustChdir(t, dir)
	t.Cleanup(func() { tu.MustChdir(t, wd) })

	runner, output := newTestRunner(t, tu.NewFakeSpotify(t))
	configPath := filepath.Join(dir, "config.toml")

	if err := run(runner, "setup", "--config", configPath); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	tu.AssertFileExists(t, configPath)
	tu.AssertFileExists(t, filepath.Join(dir, "libstats.db"))
	if !strings.Contains(output.String(), "✓ Database") {
		t.Errorf("unexpected output %q", output.String())
	}

	t.Run("print", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "setup", "--config", configPath, "--print"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "page_size = 50") {
			t.Errorf("expected encoded config, got:\n%s", output.String())
		}
	})

	t.Run("rerun keeps existing config", func(t *testing.T) {
		if err := run(runner, "setup", "--config", configPath); err != nil {
			t.Fatalf("expected rerun to succeed, got %v", err)
		}
	})
}
