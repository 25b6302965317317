package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/statdeck/ladderd/internal/cache"
)

const topPlayersLimit = 100

// handleDistribution serves the rating histogram of the most recent league
// month. The cache key carries the snapshot id, so a newly ingested month
// produces a fresh entry without explicit invalidation.
func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}

	leagueID, err := s.store.LatestLeagueID(r.Context())
	if err != nil {
		slog.Error("failed to resolve latest league", "error", err)
		writeError(w, http.StatusInternalServerError)
		return
	}
	if leagueID == "" {
		http.Error(w, `{"error":"no data available"}`, http.StatusNotFound)
		return
	}

	key := cache.Key{Name: "distribution", Variant: string(leagueID)}
	s.serveCached(w, r, key, s.cfg.DistributionTTL, func(ctx context.Context) (any, error) {
		return s.store.RatingDistribution(ctx, leagueID)
	})
}

func (s *Server) handleTopPlayers(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}
	key := cache.Key{Name: "top_players"}
	s.serveCached(w, r, key, s.cfg.TopPlayersTTL, func(ctx context.Context) (any, error) {
		return s.store.TopPlayers(ctx, topPlayersLimit)
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}
	key := cache.Key{Name: "events"}
	s.serveCached(w, r, key, s.cfg.EventsReportTTL, func(ctx context.Context) (any, error) {
		return s.store.EventParticipation(ctx)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
}

func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, key cache.Key, ttl time.Duration, producer cache.Producer) {
	data, err := s.cache.Wrap(r.Context(), key, ttl, producer)
	if err != nil {
		slog.Error("report computation failed", "report", key.Name, "error", err)
		writeError(w, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=60, s-maxage=300")
	w.Write(data)
}

func (s *Server) allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, code int) {
	http.Error(w, `{"error":"internal server error"}`, code)
}
