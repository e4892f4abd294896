package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/libstats/internal/auth"
	"github.com/desertthunder/libstats/internal/repositories"
	"github.com/desertthunder/libstats/internal/server"
	"github.com/desertthunder/libstats/internal/services"
	"github.com/desertthunder/libstats/internal/shared"
	"github.com/desertthunder/libstats/internal/stats"
	"github.com/desertthunder/libstats/internal/tasks"
	"golang.org/x/time/rate"
)

// session is one logged-in run: the front door that serves /refresh_token and the client stack renewing through it.
type session struct {
	server   *server.Server
	tokens   *auth.TokenStore
	pipeline *tasks.Pipeline
	runner   *Runner
}

// Close stops the front door, if this session started one.
func (s *session) Close() {
	if s == nil || s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.runner.logger.Warn("error shutting down server", "error", err)
	}
}

// startFrontDoor serves /, /login, /callback and /refresh_token on the configured address.
func (r *Runner) startFrontDoor() (*server.Server, *server.AuthHandler, error) {
	oauthConfig, err := auth.NewOAuthConfig(r.config.Credentials.Spotify)
	if err != nil {
		return nil, nil, err
	}

	router, handler := server.NewFrontDoor(oauthConfig, auth.NewOAuthRefresher(oauthConfig), r.logger)
	srv := server.NewServer(r.config.Server.Addr(), router, r.logger)
	if err := srv.Start(); err != nil {
		return nil, nil, err
	}
	return srv, handler, nil
}

// login authenticates the user and builds the client stack.
//
// Without a fragment the browser is sent to the front door's /login and the CLI waits for the callback. With a
// fragment from an earlier login the front door is still started for renewals; when the port is taken, e.g. by
// "libstats serve", renewals go to the configured address instead.
func (r *Runner) login(ctx context.Context, fragment string) (*session, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	renewURL := r.config.Server.BaseURL()
	srv, handler, err := r.startFrontDoor()
	switch {
	case err == nil:
		renewURL = "http://" + srv.Addr()
	case fragment != "":
		r.logger.Warn("front door not started, renewing through configured server", "url", renewURL, "error", err)
	default:
		return nil, fmt.Errorf("failed to start authorization server: %w", err)
	}

	s := &session{server: srv, runner: r}

	if fragment == "" {
		if fragment, err = r.awaitFragment(ctx, srv, handler); err != nil {
			s.Close()
			return nil, err
		}
	}

	tokens := auth.NewTokenStore(auth.NewEndpointRenewer(renewURL, r.httpClient), r.logger)
	if err := tokens.InitializeFromState(auth.ParseFragment(fragment)); err != nil {
		s.Close()
		return nil, err
	}

	pipeline, err := r.newPipeline(tokens)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.tokens = tokens
	s.pipeline = pipeline
	return s, nil
}

// awaitFragment opens the browser on /login and blocks until the callback publishes its redirect fragment.
func (r *Runner) awaitFragment(ctx context.Context, srv *server.Server, handler *server.AuthHandler) (string, error) {
	loginURL := "http://" + srv.Addr() + "/login"

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openBrowser(loginURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", loginURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", r.loginTimeout)

	timeout := time.NewTimer(r.loginTimeout)
	defer timeout.Stop()

	select {
	case fragment := <-handler.Result():
		return fragment, nil
	case err := <-srv.Errors():
		return "", fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return "", fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, r.loginTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// newPipeline wires client → paginator/album lookup → aggregator for the configured API.
func (r *Runner) newPipeline(tokens services.TokenSource) (*tasks.Pipeline, error) {
	loc, err := r.config.Stats.Location()
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(r.config.Stats.RateLimit), max(r.config.Stats.Burst, 1))
	client := services.NewAuthorizingClient(tokens, services.ClientOpts{
		HTTPClient: r.httpClient,
		Limiter:    limiter,
		Logger:     r.logger,
	})

	paginator := services.NewPaginator(client, r.config.Stats.Concurrency, r.logger)
	albums := services.NewAlbumLookup(client, r.config.Stats.APIBaseURL)
	aggregator := stats.NewAggregator(albums, loc, r.logger)

	return tasks.NewPipeline(
		paginator,
		aggregator,
		services.SavedTracksURL(r.config.Stats.APIBaseURL),
		r.config.Stats.PageSize,
		r.logger,
	), nil
}

// openSnapshots opens the database, applies migrations and returns the snapshot repository with its closer.
func (r *Runner) openSnapshots() (*repositories.SnapshotRepository, func(), error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	closer := func() {
		if err := db.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
	}
	return repositories.NewSnapshotRepository(db), closer, nil
}

// reportProgress logs updates until progress is closed, then closes done.
func (r *Runner) reportProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for update := range progress {
		r.logger.Info(update.Message, "phase", update.Phase)
	}
}
