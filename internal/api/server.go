// Package api provides the HTTP server infrastructure for SafeTrack.
// The JSON endpoints live in the v2 subpackage.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	v2 "github.com/safetrack/safetrack/internal/api/v2"
	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/safetrack/safetrack/internal/logger"
	"github.com/safetrack/safetrack/internal/observability/metrics"
)

// Default timeouts for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Server is the HTTP server hosting the v2 API.
type Server struct {
	echo          *echo.Echo
	settings      *conf.WebServerSettings
	apiController *v2.Controller
	log           logger.Logger
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	log     logger.Logger
	metrics *metrics.HTTPMetrics
}

// WithLogger sets the logger for the server and the API controller.
func WithLogger(l logger.Logger) ServerOption {
	return func(o *serverOptions) { o.log = l }
}

// WithMetrics records HTTP metrics on m.
func WithMetrics(m *metrics.HTTPMetrics) ServerOption {
	return func(o *serverOptions) { o.metrics = m }
}

// New creates the server and registers the API routes.
func New(settings *conf.WebServerSettings, engine *inspection.Engine, roles v2.RoleResolver, opts ...ServerOption) *Server {
	o := serverOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Global().Module("api")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger = logger.NewEchoLoggerAdapter(o.log)
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.Server.ReadTimeout = DefaultReadTimeout
	e.Server.WriteTimeout = DefaultWriteTimeout
	e.Server.IdleTimeout = DefaultIdleTimeout

	e.Use(echomw.Recover())
	e.Use(newRequestLogger(o.log))

	controller := v2.New(e, engine, roles, settings,
		v2.WithLogger(o.log),
		v2.WithMetrics(o.metrics),
	)

	return &Server{
		echo:          e,
		settings:      settings,
		apiController: controller,
		log:           o.log,
	}
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server starting", logger.String("address", s.settings.Listen))
		if err := s.echo.Start(s.settings.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.settings.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("HTTP server shutting down")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.log.Error("HTTP server shutdown error", logger.Error(err))
		return err
	}
	s.log.Info("HTTP server shutdown complete")
	return nil
}

// newRequestLogger logs one line per request through the central logger.
func newRequestLogger(log logger.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.Duration("latency", v.Latency),
			}
			if v.RequestID != "" {
				fields = append(fields, logger.String("request_id", v.RequestID))
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}
			log.WithContext(c.Request().Context()).Debug("request", fields...)
			return nil
		},
	})
}
