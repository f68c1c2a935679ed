// Package adminapi implements the record-management REST surface:
// create, list, and delete manual DNS records behind a shared-secret
// API key.
//
// Grounded on the teacher's internal/api/{server.go,routes.go} and
// internal/api/middleware/auth.go: a Gin engine, X-API-Key middleware,
// and thin JSON handlers that delegate all validation to the record
// store, scoped down to the three routes spec.md names (no health/stats/
// config/filtering/cluster/zone surfaces — none of those have a
// SPEC_FULL.md component to serve).
package adminapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/duskresolve/duskresolve/internal/store"
)

// Server is the admin record-management HTTP server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
}

// New builds a Server backed by st, guarded by apiKey (an empty key
// disables auth, matching the teacher's RequireAPIKey behavior).
func New(addr, apiKey string, st *store.Store) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	h := &handler{store: st}
	RegisterRoutes(engine, h, apiKey)

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Engine exposes the underlying Gin engine, primarily for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// ListenAndServe blocks serving admin API requests.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the admin API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
