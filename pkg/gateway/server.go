package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dataeval/dingomark/pkg/config"
	"github.com/dataeval/dingomark/pkg/logger"
	"github.com/dataeval/dingomark/pkg/marketing"
	"github.com/dataeval/dingomark/pkg/store"
)

// Server is the HTTP server that exposes the marketing API.
type Server struct {
	cfg    *config.Config
	api    *APIServer
	server *http.Server
}

// NewServer creates a new HTTP server around the marketing service.
func NewServer(cfg *config.Config, svc *marketing.Service, st *store.Store) *Server {
	return &Server{
		cfg: cfg,
		api: NewAPIServer(svc, st, cfg.Server.APIKey),
	}
}

// Start begins listening for HTTP requests on the configured host:port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoCF("gateway", "HTTP server starting", map[string]any{"addr": addr})
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("gateway", "HTTP server error", map[string]any{"error": err.Error()})
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
