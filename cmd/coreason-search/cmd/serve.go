package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/CoReason-AI/coreason-search/internal/config"
	"github.com/CoReason-AI/coreason-search/internal/logging"
	"github.com/CoReason-AI/coreason-search/internal/mcp"
	"github.com/CoReason-AI/coreason-search/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var withMCP bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search API",
		Long: `Serve the search pipeline over HTTP.

Exposes POST /search, POST /search/systematic (NDJSON stream), and
GET /health. Shuts down gracefully on SIGINT or SIGTERM. Edits to the
configuration file adjust the log level without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), withMCP)
		},
	}

	cmd.Flags().BoolVar(&withMCP, "mcp", false, "also serve the MCP tool on stdio")
	return cmd
}

func runServe(ctx context.Context, withMCP bool) error {
	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			app.logger.Warn("close_failed", slog.String("error", cerr.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if path, _ := config.ResolveConfigPath(configPath); path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			stopWatch, werr := watchConfig(ctx, path, app.logger)
			if werr != nil {
				app.logger.Warn("config_watch_failed",
					slog.String("path", path),
					slog.String("error", werr.Error()))
			} else {
				defer stopWatch()
			}
		}
	}

	srv := server.New(app.engine, app.docs, app.embedder, app.logger)

	errCh := make(chan error, 2)
	go func() {
		app.logger.Info("http_listening", slog.String("addr", app.cfg.Server.Addr))
		if err := srv.Start(app.cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	if withMCP {
		mcpServer, merr := mcp.NewServer(app.engine, app.logger)
		if merr != nil {
			return merr
		}
		go func() {
			errCh <- mcpServer.Run(ctx)
		}()
	}

	select {
	case <-ctx.Done():
		app.logger.Info("shutdown_requested")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// watchConfig reloads the file on change and applies the new log level.
// Other settings require a restart; changing them mid-flight would
// invalidate engine caches keyed on the config fingerprint.
func watchConfig(ctx context.Context, path string, logger *slog.Logger) (func(), error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, lerr := config.Load(path)
				if lerr != nil {
					logger.Warn("config_reload_failed",
						slog.String("path", path),
						slog.String("error", lerr.Error()))
					continue
				}
				if !debugMode {
					logging.SetLevel(cfg.Logging.Level)
				}
				logger.Info("config_reloaded", slog.String("level", cfg.Logging.Level))
			case werr, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("config_watch_error", slog.String("error", werr.Error()))
			}
		}
	}()

	return func() { _ = fsw.Close() }, nil
}
