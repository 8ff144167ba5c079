package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/campuswell/internal/bootstrap"
	"github.com/yigit/campuswell/internal/config"
	"github.com/yigit/campuswell/internal/db"
	"github.com/yigit/campuswell/internal/jobs"
	"github.com/yigit/campuswell/internal/pkg/helpers"
	"github.com/yigit/campuswell/internal/pkg/logger"
)

// Server holds the state for the HTTP server.
type Server struct {
	config    *config.Config
	router    *gin.Engine
	database  *db.PostgresDB
	deps      *bootstrap.Dependencies
	scheduler *jobs.Scheduler
	logger    zerolog.Logger
	http      *http.Server

	stopHub context.CancelFunc
}

// NewServer creates and initializes a new server instance by calling bootstrap functions.
func NewServer(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Server, error) {
	database, err := bootstrap.SetupDatabase(ctx, cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(ctx, cfg, database, lgr)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	router, err := bootstrap.SetupRouter(cfg, deps, lgr)
	if err != nil {
		deps.Close()
		database.Close()
		return nil, err
	}
	setupStaticFileServing(router, cfg, deps.FileStorage.BasePath(), lgr)

	s := &Server{
		config:   cfg,
		router:   router,
		database: database,
		deps:     deps,
		logger:   lgr,
	}

	if cfg.Jobs.Enabled {
		s.scheduler, err = jobs.New(logger.Component("scheduler"))
		if err == nil {
			err = jobs.Register(s.scheduler, deps.Maintenance,
				helpers.ParseDuration(cfg.Jobs.CleanupInterval, 10*time.Minute),
				helpers.ParseDuration(cfg.Jobs.OverdueGoalsInterval, time.Hour))
		}
		if err != nil {
			deps.Close()
			database.Close()
			return nil, fmt.Errorf("failed to setup jobs: %w", err)
		}
	}

	return s, nil
}

// setupStaticFileServing serves uploaded files under the storage base URL when it is a path.
func setupStaticFileServing(router *gin.Engine, cfg *config.Config, uploadPath string, lgr zerolog.Logger) {
	urlPath := cfg.Storage.BaseURL
	if !strings.HasPrefix(urlPath, "/") {
		lgr.Info().Str("baseURL", urlPath).Msg("Uploads are served externally")
		return
	}
	router.Static(urlPath, uploadPath)
	lgr.Info().Str("path", uploadPath).Str("url", urlPath).Msg("Static file serving configured for uploads directory")
}

// Run starts the HTTP server, the live feed and the scheduler, and blocks until ctx is
// cancelled or SIGINT/SIGTERM arrives.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  helpers.ParseDuration(s.config.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: helpers.ParseDuration(s.config.Server.WriteTimeout, 15*time.Second),
		IdleTimeout:  120 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	s.stopHub = stopHub
	go s.deps.Hub.Run(hubCtx)

	if s.scheduler != nil {
		s.scheduler.Start()
	}

	// Channel to listen for errors starting the server
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			s.Shutdown(context.Background())
			return fmt.Errorf("error starting server: %w", err)
		}
	case <-sigCtx.Done():
		s.logger.Info().Msg("Shutdown requested, stopping server...")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully stops the server and closes resources.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, helpers.ParseDuration(s.config.Server.ShutdownTimeout, 10*time.Second))
	defer cancel()

	var errs []error

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		} else {
			s.logger.Info().Msg("HTTP server gracefully stopped.")
		}
	}

	if s.scheduler != nil {
		if err := s.scheduler.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	// closes every feed connection
	if s.stopHub != nil {
		s.stopHub()
	}

	if _, err := s.deps.Community.FlushViews(ctx); err != nil {
		errs = append(errs, err)
	}

	s.deps.Close()
	if s.database != nil {
		s.database.Close()
		s.logger.Info().Msg("Database connection pool closed.")
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Error().Err(err).Msg("Server shutdown completed with errors")
		return err
	}
	s.logger.Info().Msg("Server shutdown process complete.")
	return nil
}
