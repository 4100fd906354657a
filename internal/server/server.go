package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"realtime-relay/internal/config"
	"realtime-relay/internal/metrics"
)

// ConnectionCounter reports the number of live relay connections.
type ConnectionCounter interface {
	Len() int
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	log    logrus.FieldLogger

	websocketHandler http.Handler
	connections      ConnectionCounter
	registry         *prometheus.Registry
}

func New(cfg *config.Config, websocketHandler http.Handler, connections ConnectionCounter, reg *prometheus.Registry, log logrus.FieldLogger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		log:              log,
		websocketHandler: websocketHandler,
		connections:      connections,
		registry:         reg,
	}

	srv.registerRoutes()

	return srv
}

// Start binds the listen address and serves until Shutdown is called.
// It returns nil after a regular shutdown and an error when binding fails.
func (s *Server) Start() error {
	s.log.WithField("port", s.config.Port).Infof("Starting WebSocket server on ws://localhost:%s%s", s.config.Port, s.config.WSPath)
	if err := s.echo.Start(s.config.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())

	s.echo.GET(config.HealthPath, s.handleHealth)
	s.echo.GET(config.MetricsPath, echo.WrapHandler(metrics.Handler(s.registry)))
	s.echo.GET(s.config.WSPath, echo.WrapHandler(s.websocketHandler))
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.connections.Len(),
	})
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Debug("Request")
			return nil
		},
	})
}
