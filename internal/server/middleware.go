package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	"github.com/conneroisu/isorender/internal/errors"
	"github.com/conneroisu/isorender/internal/render"
)

// requestLogger logs every request and records it in the metrics.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		cacheResult := ww.Header().Get(cacheHeader)
		s.metrics.ObserveRequest(r.Method, status, cacheResult)

		s.logger.Info(r.Context(), "Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"cache", cacheResult,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// recoverer turns a panic in a handler into a 500 error page.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err := errors.NewInternalError(errors.ErrCodeInternal, fmt.Sprintf("panic: %v", rec), nil).
				WithContext("stack", string(debug.Stack()))
			s.writeError(w, r, err)
		}()
		next.ServeHTTP(w, r)
	})
}

// negotiateLocale picks the best configured locale for Accept-Language and
// stores it in the request context. A lang query parameter wins when it
// names a configured locale.
func (s *Server) negotiateLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag := s.matchLocale(r)

		w.Header().Set("Content-Language", tag.String())
		w.Header().Add("Vary", "Accept-Language")
		next.ServeHTTP(w, r.WithContext(render.WithLocale(r.Context(), tag)))
	})
}

func (s *Server) matchLocale(r *http.Request) language.Tag {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		if want, err := language.Parse(lang); err == nil {
			for _, tag := range s.locales {
				if tag == want {
					return tag
				}
			}
		}
	}

	_, index := language.MatchStrings(s.matcher, r.Header.Get("Accept-Language"))
	return s.locales[index]
}
