// Package web exposes the HTTP surface of the harvester: the delta webhook
// that triggers full harvests, a health endpoint and the metrics endpoint.
package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lblod/verenigingen-harvester/internal/config"
)

// TaskRunner executes the full harvest for a scheduled task.
type TaskRunner interface {
	RunCollectingTask(ctx context.Context, taskURI string) error
}

// Server is the harvester's HTTP server.
type Server struct {
	echo   *echo.Echo
	runner TaskRunner
	port   int
}

// NewServer builds the echo server with all routes registered. The metrics
// handler may be nil to disable the /metrics route.
func NewServer(cfg *config.Config, runner TaskRunner, metricsHandler http.Handler) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		runner: runner,
		port:   cfg.Harvester.Web.Port,
	}

	e.POST("/delta", s.handleDelta)
	e.GET("/health", s.handleHealth)
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%d", s.port))
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying handler, used in tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "up"})
}
