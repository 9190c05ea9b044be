package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/richard-senior/htft/internal/logger"
	"github.com/rs/cors"
)

// Server is the HTTP front end of the analysis
type Server struct {
	httpServer *http.Server
}

// NewServer wraps the routes of h with CORS for origins and binds them to addr
func NewServer(addr string, origins []string, h *APIHandler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      Handler(origins, h),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handler returns the routes of h behind the CORS middleware. Without origins
// no cross-origin request is allowed, so the middleware is left out.
func Handler(origins []string, h *APIHandler) http.Handler {
	routes := h.SetupRoutes()
	if len(origins) == 0 {
		return routes
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(routes)
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	logger.Info("HTTP API listening on", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting at most five seconds for open requests
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
