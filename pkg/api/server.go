// Package api provides the HTTP surface for bulletd: the webhook intake
// route, the one-click acknowledgement link, and a health endpoint.
package api

import (
	"context"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/bullet-relay/bulletd/pkg/database"
	"github.com/bullet-relay/bulletd/pkg/services"
)

// Server is the HTTP API server.
type Server struct {
	echo          *echo.Echo
	httpServer    *http.Server
	dbClient      *database.Client
	intake        *services.IntakeService
	ack           *services.AckService
	notifications *services.NotificationService
}

// NewServer creates a new API server with Echo v5, wired against the
// given database client and domain services. notifications is optional
// (nil-tolerant) and, when set, its active channel-delivery warnings are
// surfaced by the health endpoint.
func NewServer(dbClient *database.Client, intake *services.IntakeService, ack *services.AckService, notifications *services.NotificationService) *Server {
	if dbClient == nil || intake == nil || ack == nil {
		panic("NewServer: dbClient, intake, and ack must all be non-nil")
	}

	e := echo.New()

	s := &Server{
		echo:          e,
		dbClient:      dbClient,
		intake:        intake,
		ack:           ack,
		notifications: notifications,
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)
	s.echo.POST("/webhook/:namespace_slug/:project_id", s.webhookHandler)
	s.echo.GET("/ack/:ticket_id", s.ackHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.echo,
	}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener.
// Used by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
