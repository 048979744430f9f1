package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/repositories"
	"github.com/Chaouesrex/spotify-gpt-bridge/internal/server"
	"github.com/Chaouesrex/spotify-gpt-bridge/internal/services"
	"github.com/Chaouesrex/spotify-gpt-bridge/internal/shared"
	"github.com/Chaouesrex/spotify-gpt-bridge/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Serve runs the bridge HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.config
	configPath := cmd.String("config")
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		config = loaded
	}

	if port := cmd.Int("port"); port != 0 {
		config.Server.Port = port
	}

	if err := config.Validate(); err != nil {
		return err
	}

	tokens := services.NewTokenStore()
	spotify, err := services.NewSpotifyService(config.Credentials.Spotify.Map(), tokens)
	if err != nil {
		return err
	}

	if config.Database.Path != "" {
		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open token database: %w", err)
		}
		defer db.Close()
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

		repo := repositories.NewTokenRepository(db)
		if err := repo.Init(); err != nil {
			return err
		}

		if state, found, err := repo.Load(); err != nil {
			return err
		} else if found {
			tokens.Set(state)
			r.logger.Info("restored persisted tokens", "expiresAt", state.ExpiresAt)
		}

		spotify.SetTokenChangeCallback(func(state services.TokenState) {
			if err := repo.Save(state); err != nil {
				r.logger.Error("failed to persist tokens", "error", err)
			}
		})
	}

	engine := tasks.NewCommandEngine(spotify, r.logger)

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(server.NewOAuthHandler(spotify, r.logger))

	limit := server.RateLimit(rate.NewLimiter(rate.Limit(10), 20))
	guard := server.Guard(config.Bridge.SharedSecret)
	protected := func(next http.Handler) http.Handler {
		return limit(guard(next))
	}

	bridge := server.NewBridgeHandler(engine, tokens, r.logger)
	bridge.Register(router, protected)

	srv := &http.Server{
		Addr:    config.Server.Addr(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("bridge listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

// Connect opens the running bridge's login route in the default browser.
func (r *Runner) Connect(ctx context.Context, cmd *cli.Command) error {
	loginURL := bridgeURL(r.config) + "/login"

	r.logger.Info("opening browser for Spotify authorization", "url", loginURL)

	if err := shared.OpenBrowser(loginURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this URL to connect your Spotify account:\n%s\n", loginURL)
		return nil
	}

	r.writePlain("%s\n", r.palette.OK("Browser opened. Complete the Spotify authorization to connect."))
	return nil
}
