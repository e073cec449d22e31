// Package api provides Guardian's REST management API: appliance
// status and health, custom rules and blocklists, threat-intel feeds,
// firewall rules and events, and device-scan ingestion, via a
// Gin-based HTTP server.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/bigr-systems/guardian/internal/api/handlers"
	"github.com/bigr-systems/guardian/internal/api/middleware"
	"github.com/bigr-systems/guardian/internal/config"
)

// Server is the management REST API server.
//
// Security note: do not expose the API to untrusted networks without authentication.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handler    *handlers.Handler
	engine     *gin.Engine
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger) *Server {
	if cfg == nil {
		panic("api.New: cfg is nil")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.SlogRequestLogger(logger))

	h := handlers.New(cfg, logger)
	RegisterRoutes(engine, h, cfg)
	if cfg.API.WebUIDir != "" {
		MountSPA(engine, cfg.API.WebUIDir, logger)
	}

	addr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{cfg: cfg, logger: logger, handler: h, engine: engine, httpServer: httpServer}
}

// Handler returns the underlying handler so callers can wire runtime
// components (rules store, blocklist, threat store, firewall service,
// alert pipeline, database) in after construction, once the daemon has
// finished building them.
func (s *Server) Handler() *handlers.Handler {
	return s.handler
}

func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
