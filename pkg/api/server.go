// Package api provides the HTTP surface: the webhook entry point and
// the speaker/search/chunk read endpoints backed by the persistence
// layer and the chat-completion adapter.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"log/slog"

	"github.com/zoom-oss/rtms-ingestion/pkg/adapters"
	"github.com/zoom-oss/rtms-ingestion/pkg/database"
	"github.com/zoom-oss/rtms-ingestion/pkg/registry"
	"github.com/zoom-oss/rtms-ingestion/pkg/router"
	"github.com/zoom-oss/rtms-ingestion/pkg/stream"
)

// CredentialResolver looks up the webhook secret token used to
// validate non-url_validation events and to answer the synchronous
// url_validation challenge, which names no product of its own.
type CredentialResolver interface {
	Resolve(product stream.ProductKind) (stream.Credential, bool)
	ResolveDefault() (stream.Credential, bool)
}

// Completer answers a single-turn chat prompt, backing POST /api/chat/:speakerId.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	logger     *slog.Logger

	dbPool *pgxpool.Pool
	store  *database.Store
	router *router.Router
	creds  CredentialResolver

	completer Completer         // nil until SetCompleter
	hub       *adapters.Hub    // nil until SetHub
	registry  *registry.Registry // nil until SetRegistry
}

// NewServer creates a new API server with Echo.
func NewServer(store *database.Store, dbPool *pgxpool.Pool, rt *router.Router, creds CredentialResolver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		logger: logger,
		dbPool: dbPool,
		store:  store,
		router: rt,
		creds:  creds,
	}
	s.setupRoutes()
	return s
}

// SetCompleter wires the chat-completion backend for POST /api/chat/:speakerId.
func (s *Server) SetCompleter(c Completer) {
	s.completer = c
}

// SetHub wires the live-broadcast fan-out used by the WebSocket push endpoint.
func (s *Server) SetHub(h *adapters.Hub) {
	s.hub = h
}

// SetRegistry wires the Connection Registry the offline archival
// manifest endpoint reads from. Optional: without it, the endpoint
// reports 503 rather than the process refusing to start.
func (s *Server) SetRegistry(reg *registry.Registry) {
	s.registry = reg
}

// ValidateWiring checks that every optional dependency a running
// process needs has been set via its Set* method. Call after all
// Set* calls and before Start/StartWithListener.
func (s *Server) ValidateWiring() error {
	var errs []error
	if s.completer == nil {
		errs = append(errs, fmt.Errorf("completer not set (call SetCompleter)"))
	}
	if s.hub == nil {
		errs = append(errs, fmt.Errorf("hub not set (call SetHub)"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("server wiring incomplete: %w", errors.Join(errs...))
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit("2M"))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)
	s.echo.POST("/webhook", s.webhookHandler)

	v1 := s.echo.Group("/api")
	v1.GET("/meeting/:numericId/speakers", s.meetingSpeakersHandler)
	v1.GET("/speaker/:speakerId/context", s.speakerContextHandler)
	v1.POST("/chat/:speakerId", s.chatHandler)
	v1.POST("/semantic-search", s.semanticSearchHandler)
	v1.GET("/chunks/:meetingId", s.chunksHandler)
	v1.GET("/ws/:meetingId", s.wsHandler)
	v1.GET("/admin/streams/:streamId/archive", s.archiveHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
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

// healthHandler handles GET /health.
func (s *Server) healthHandler(c echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, s.dbPool)
	status := http.StatusOK
	respStatus := "healthy"
	if err != nil {
		status = http.StatusServiceUnavailable
		respStatus = "unhealthy"
	}
	return c.JSON(status, &HealthResponse{
		Status:   respStatus,
		Database: dbHealth,
	})
}
