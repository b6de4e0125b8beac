package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/conneroisu/isorender/internal/cache"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"version":   s.build.Version,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.build)
}

type cacheStatus struct {
	Enabled bool         `json:"enabled"`
	MaxAge  string       `json:"max_age,omitempty"`
	Keys    []string     `json:"keys,omitempty"`
	Stats   *cache.Stats `json:"stats,omitempty"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusOK, cacheStatus{Enabled: false})
		return
	}

	stats := s.cache.Stats()
	status := cacheStatus{
		Enabled: true,
		MaxAge:  s.cfg.Cache.MaxAge.String(),
		Stats:   &stats,
	}
	if s.cfg.Development.Enabled {
		status.Keys = s.cache.Keys()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.clearCache() {
		s.logger.Info(r.Context(), "Response cache cleared")
	}
	w.WriteHeader(http.StatusNoContent)
}

// clearCache empties the response cache and reports whether one exists.
func (s *Server) clearCache() bool {
	if s.cache == nil {
		return false
	}
	s.cache.Clear()
	s.metrics.SetCacheSize(0, 0)
	return true
}
