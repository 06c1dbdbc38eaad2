// Package http exposes the lifecycle engine and application services over a
// JSON API. Handlers translate requests into service calls and map
// classified errors onto status codes; no business rule lives here.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/application/workflow"
)

// Logger is the structured logging surface of the HTTP layer
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// TokenVerifier resolves a bearer token to a user id
type TokenVerifier interface {
	Verify(raw string) (int64, error)
}

// Pinger reports store reachability for the health check
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ExportFormat describes the document produced by the request export
type ExportFormat interface {
	ContentType() string
	FileExtension() string
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Address is the host:port the server listens on
func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Dependencies are the application services the HTTP layer calls
type Dependencies struct {
	Engine        workflow.LifecycleEngine
	Requests      service.TravelRequestService
	Bookings      service.BookingService
	Users         service.UserService
	Projects      service.ProjectService
	Notifications service.NotificationService
	ExportFormat  ExportFormat
	Tokens        TokenVerifier
	DB            Pinger
}

// Server owns the gin router and the listening http.Server
type Server struct {
	config ServerConfig
	router *gin.Engine
	logger Logger
}

func NewServer(config ServerConfig, deps Dependencies, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(logger))
	registerRoutes(router, deps, logger)

	return &Server{config: config, router: router, logger: logger}
}

// Start listens on the configured address and serves until ctx is done
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then drains in-flight
// requests for at most ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("HTTP server listening", "address", ln.Addr().String())

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.logger.Error("HTTP server failed", "error", err)
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("HTTP server draining", "timeout", timeout.String())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown incomplete", "error", err)
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Router exposes the handler tree to tests
func (s *Server) Router() http.Handler {
	return s.router
}
