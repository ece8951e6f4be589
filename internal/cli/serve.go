package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jengzang/geomap/internal/api"
	"github.com/jengzang/geomap/internal/database"
	"github.com/jengzang/geomap/internal/handler"
	"github.com/jengzang/geomap/internal/logging"
	"github.com/jengzang/geomap/internal/middleware"
	"github.com/jengzang/geomap/internal/pipeline"
	"github.com/jengzang/geomap/internal/repository"
	"github.com/jengzang/geomap/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the map rendering API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				if !strings.Contains(port, ":") {
					port = ":" + port
				}
				a.cfg.Server.Port = port
			}
			if !a.logFormatExplicit(cmd) {
				a.logger = logging.NewWithWriter(zerolog.SyncWriter(cmd.ErrOrStderr()), a.cfg.LogLevel, logging.FormatJSON)
			}
			return a.serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen address, e.g. :8080")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	srvCfg := a.cfg.Server
	svc, err := service.NewMapService(pipeline.New(a.logger, a.metrics), repository.NewRunRepository(db), srvCfg, a.logger)
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(srvCfg.RateLimit, srvCfg.RateWindow)
	go limiter.Cleanup(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(api.Deps{
		Server:  srvCfg,
		Logger:  a.logger,
		Metrics: a.metrics,
		Limiter: limiter,
		Maps:    handler.NewMapHandler(svc),
	})

	srv := &http.Server{
		Addr:              srvCfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().
			Str("addr", srvCfg.Port).
			Str("output_dir", srvCfg.OutputDir).
			Bool("auth", srvCfg.JWTSecret != "").
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	a.logger.Info().Msg("Shutdown complete")
	return nil
}

// openHistory opens the run history database and applies pending migrations
func (a *app) openHistory(ctx context.Context) (*sql.DB, error) {
	path := a.cfg.Server.DBPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := database.Open(ctx, database.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := database.NewMigrationManager(db, a.logger).RunMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
