package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/libstats/internal/auth"
	"github.com/desertthunder/libstats/internal/server"
	"github.com/desertthunder/libstats/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates config.toml from the embedded template when missing, then initializes the snapshot database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	if cmd.Bool("print") {
		data, err := shared.EncodeConfig(config)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	}

	if err := config.Validate(); err != nil {
		return err
	}
	r.config = config
	r.configPath = configPath

	r.logger.Info("initializing database", "path", config.Database.Path)
	_, closeDB, err := r.openSnapshots()
	if err != nil {
		return err
	}
	closeDB()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Configuration: %s\n", configPath)
	r.writePlain("✓ Database: %s\n", config.Database.Path)
	if !config.HasSpotifyCredentials() {
		r.writePlainln("Next: set credentials.spotify.client_id and client_secret in %s", configPath)
	}
	return nil
}

// Serve runs the front door until interrupted. Login at /login; other processes renew through /refresh_token.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, handler, err := r.startFrontDoor()
	if err != nil {
		return fmt.Errorf("failed to start authorization server: %w", err)
	}

	r.writePlain("→ Listening on http://%s (login at /login)\n", srv.Addr())
	return r.announceLogins(ctx, srv, handler)
}

// announceLogins reports every callback handled by srv until ctx ends, then shuts srv down.
func (r *Runner) announceLogins(ctx context.Context, srv *server.Server, handler *server.AuthHandler) error {
	logins := make(chan auth.AuthState, 16)
	handler.OnResult(func(state auth.AuthState) {
		select {
		case logins <- state:
		default:
			r.logger.Warn("dropping login result, reader is behind")
		}
	})
	defer handler.OnResult(nil)

	for {
		select {
		case state := <-logins:
			r.announce(state)
		case err, ok := <-srv.Errors():
			if !ok {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
		drain:
			for {
				select {
				case state := <-logins:
					r.announce(state)
				default:
					break drain
				}
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
}

func (r *Runner) announce(state auth.AuthState) {
	if state.Failed() {
		r.writePlainln("✗ Authorization failed: %s", state.Error)
		return
	}
	r.writePlainln("✓ Authorized. Pass this to other commands:")
	r.writePlain("  --fragment '%s'\n", state.Fragment())
}
