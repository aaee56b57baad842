package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vector76/forum_server/internal/config"
	"github.com/vector76/forum_server/internal/feed"
	"github.com/vector76/forum_server/internal/server"
	"github.com/vector76/forum_server/internal/store"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	defaults := config.Defaults()
	var flags config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the forum HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Resolve settings: flag > env > .env > default
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg, flags)

			if cfg.Token == "" {
				return fmt.Errorf("--token or FORUM_TOKEN is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			fc := feed.New(feed.Config{
				BaseURL:   cfg.FeedURL,
				Subreddit: cfg.Subreddit,
			})

			srv, err := server.New(server.Config{
				Port:      cfg.Port,
				Token:     cfg.Token,
				CacheTTL:  cfg.CacheTTL,
				Subreddit: cfg.Subreddit,
				LogOutput: cmd.ErrOrStderr(),
				LogLevel:  cfg.LogLevel,
			}, st, fc)
			if err != nil {
				return err
			}

			httpSrv := &http.Server{
				Addr:         srv.ListenAddr(),
				Handler:      srv.Router,
				ReadTimeout:  cfg.ReadTimeout,
				WriteTimeout: cfg.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpSrv.ListenAndServe()
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", httpSrv.Addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			log := srv.Logger()
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&flags.Port, "port", defaults.Port, "port to listen on")
	cmd.Flags().StringVar(&flags.DataFile, "data-file", defaults.DataFile, "path to JSON data file")
	cmd.Flags().StringVar(&flags.DatabaseURL, "database-url", "", "PostgreSQL connection string (overrides --data-file)")
	cmd.Flags().StringVar(&flags.Token, "token", "", "bearer token for the JSON API")
	cmd.Flags().DurationVar(&flags.CacheTTL, "cache-ttl", defaults.CacheTTL, "lifetime of cached pages")
	cmd.Flags().StringVar(&flags.FeedURL, "feed-url", defaults.FeedURL, "base URL of the external feed")
	cmd.Flags().StringVar(&flags.Subreddit, "subreddit", defaults.Subreddit, "subreddit shown under /reddit")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", defaults.LogLevel, "log level (debug, info, warn, error)")

	return cmd
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags config.Config) {
	changed := cmd.Flags().Changed
	if changed("port") {
		cfg.Port = flags.Port
	}
	if changed("data-file") {
		cfg.DataFile = flags.DataFile
	}
	if changed("database-url") {
		cfg.DatabaseURL = flags.DatabaseURL
	}
	if changed("token") {
		cfg.Token = flags.Token
	}
	if changed("cache-ttl") {
		cfg.CacheTTL = flags.CacheTTL
	}
	if changed("feed-url") {
		cfg.FeedURL = flags.FeedURL
	}
	if changed("subreddit") {
		cfg.Subreddit = flags.Subreddit
	}
	if changed("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Repository, error) {
	if cfg.DatabaseURL != "" {
		st, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return st, nil
	}
	st, err := store.Load(cfg.DataFile)
	if err != nil {
		return nil, fmt.Errorf("loading data file: %w", err)
	}
	return st, nil
}
