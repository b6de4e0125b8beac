package server

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/conneroisu/isorender/internal/render"
)

// cacheHeader reports the cache outcome: HIT, MISS or BYPASS.
const cacheHeader = "X-Cache"

type cachedResponse struct {
	body        []byte
	contentType string
}

// cacheKey combines the negotiated locale, the path and the query with its
// keys sorted.
func cacheKey(r *http.Request) string {
	key := render.Locale(r.Context()).String() + " " + r.URL.Path
	if q := r.URL.Query(); len(q) > 0 {
		key += "?" + q.Encode()
	}
	return key
}

func bypassCache(r *http.Request) bool {
	for _, v := range r.Header.Values("Cache-Control") {
		if strings.Contains(strings.ToLower(v), "no-cache") {
			return true
		}
	}
	return false
}

// responseCache serves fresh cached pages and stores successful complete
// renders weighted by their body size.
func (s *Server) responseCache(next http.Handler) http.Handler {
	if s.cache == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		key := cacheKey(r)
		result := "BYPASS"
		if !bypassCache(r) {
			if cached, ok := s.cache.GetFresh(key, s.cfg.Cache.MaxAge); ok {
				s.metrics.CacheLookup("hit")
				w.Header().Set(cacheHeader, "HIT")
				w.Header().Set("Content-Type", cached.contentType)
				w.WriteHeader(http.StatusOK)
				if r.Method == http.MethodGet {
					_, _ = w.Write(cached.body)
				}
				return
			}
			result = "MISS"
		}
		s.metrics.CacheLookup(strings.ToLower(result))
		w.Header().Set(cacheHeader, result)

		rec := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status != http.StatusOK || strings.Contains(w.Header().Get("Cache-Control"), noStore) {
			return
		}
		// HEAD responses carry no body to store.
		if r.Method == http.MethodHead {
			return
		}

		body := rec.body.Bytes()
		s.cache.Add(int64(len(body)), key, cachedResponse{
			body:        append([]byte(nil), body...),
			contentType: w.Header().Get("Content-Type"),
		})
		s.metrics.SetCacheSize(s.cache.Len(), s.cache.Weight())
	})
}

// captureWriter copies the response body while passing it through.
type captureWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (c *captureWriter) WriteHeader(status int) {
	if !c.wroteHeader {
		c.status = status
		c.wroteHeader = true
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}

func (c *captureWriter) Unwrap() http.ResponseWriter {
	return c.ResponseWriter
}
