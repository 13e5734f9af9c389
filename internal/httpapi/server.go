// Package httpapi exposes the daemon's status surface: a liveness probe and
// the last run report.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/initial69/Automatic-Pipeline/internal/globaltime"
	"github.com/initial69/Automatic-Pipeline/internal/pipeline"
)

type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// StateSizes reports the tracker index sizes for the status endpoint.
type StateSizes struct {
	CollectedGlobal int `json:"collected_global"`
}

// Server serves the status API. The report path is read per request so the
// endpoint always reflects the latest completed run.
type Server struct {
	reportPath string
	sizes      func() StateSizes
	logger     zerolog.Logger
	opts       Options
}

func NewServer(reportPath string, sizes func() StateSizes, logger zerolog.Logger, opts Options) *Server {
	if strings.TrimSpace(opts.Addr) == "" {
		opts.Addr = ":8085"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	return &Server{
		reportPath: reportPath,
		sizes:      sizes,
		logger:     logger,
		opts:       opts,
	}
}

// Start blocks until ctx is canceled, then shuts the listener down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := s.logger.Info()
			if v.Error != nil {
				evt = s.logger.Error().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)
	e.GET("/api/v1/status", s.handleStatus)

	httpServer := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("status server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", s.opts.Addr).Msg("status server started")
	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start status server: %w", err)
	}
	s.logger.Info().Msg("status server stopped")
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "signal-pipeline",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	report, err := pipeline.LoadReport(s.reportPath)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load run report")
		return internalError(c, "Failed to load run report")
	}
	if report == nil {
		return fail(c, http.StatusNotFound, "No completed run yet")
	}

	data := map[string]any{
		"last_run": report,
	}
	if s.sizes != nil {
		data["state"] = s.sizes()
	}
	return success(c, data)
}
