package server

import (
	"net/http"

	"github.com/statdeck/ladderd/internal/cache"
	"github.com/statdeck/ladderd/internal/config"
	"github.com/statdeck/ladderd/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	cfg   *config.Config
	cache *cache.Cache
	store store.Store
}

func New(cfg *config.Config, cache *cache.Cache, store store.Store) *Server {
	return &Server{cfg: cfg, cache: cache, store: store}
}

// Router returns the HTTP handler with all routes registered.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/reports/distribution", s.handleDistribution)
	mux.HandleFunc("/api/reports/top", s.handleTopPlayers)
	mux.HandleFunc("/api/reports/events", s.handleEvents)
	mux.HandleFunc("/healthz", s.handleHealth)
	return s.corsMiddleware(mux)
}
