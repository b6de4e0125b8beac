package server

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"

	"github.com/conneroisu/isorender/internal/config"
	"github.com/conneroisu/isorender/internal/errors"
	"github.com/conneroisu/isorender/internal/page"
	"github.com/conneroisu/isorender/internal/render"
	"github.com/conneroisu/isorender/internal/retry"
)

// incompleteHeader marks responses rendered with loaders still pending.
const incompleteHeader = "X-Render-Incomplete"

// noStore is set on pages that must not be cached: incomplete renders and
// renders where a loader failed.
const noStore = "no-store"

// Page is what a route renders for one request.
type Page struct {
	Title string
	Head  templ.Component
	Body  templ.Component
	// Styles and Scripts are linked from the document head and body.
	Styles  []string
	Scripts []string
}

// PageFunc builds the page for a request. Returning a status error (for
// example errors.NotFound) short-circuits rendering.
type PageFunc func(r *http.Request) (Page, error)

// Route binds a chi pattern to a page.
type Route struct {
	Pattern string
	Page    PageFunc
}

func retryOptions(cfg config.RenderConfig) retry.Options {
	return retry.Options{
		Attempts: cfg.LoaderAttempts,
		Initial:  cfg.LoaderBackoff,
		Max:      retry.DefaultOptions.Max,
	}
}

func (s *Server) pageHandler(build PageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, err := build(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		result, err := s.renderer.Render(ctx, p.Body)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		doc := page.Document{
			Lang:      render.Locale(ctx).String(),
			Title:     p.Title,
			Head:      p.Head,
			Body:      result.HTML,
			State:     result.State,
			Config:    s.cfg.Client,
			BuildInfo: s.build,
			Styles:    p.Styles,
			Scripts:   p.Scripts,
		}
		if s.hub != nil {
			doc.ReloadURL = ReloadPath
		}

		var buf bytes.Buffer
		if err := doc.Render(ctx, &buf); err != nil {
			s.writeError(w, r, errors.NewRenderError(errors.ErrCodeRenderFailed, "document assembly failed", err))
			return
		}

		if result.Incomplete {
			w.Header().Set(incompleteHeader, "true")
		}
		if result.Incomplete || len(result.Failed) > 0 {
			w.Header().Set("Cache-Control", noStore)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(result.Status)
		_, _ = w.Write(buf.Bytes())
	}
}

// writeError maps err to a status, logs it and writes either a redirect or
// an error page. Details are only exposed in development mode.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := s.errors.Handle(r.Context(), err,
		"method", r.Method,
		"path", r.URL.Path,
	)

	if location, ok := errors.RedirectLocation(err); ok {
		http.Redirect(w, r, location, status)
		return
	}

	var detail string
	if s.cfg.Development.Enabled {
		detail = err.Error()
	}

	var buf bytes.Buffer
	if renderErr := page.ErrorPage(status, detail).Render(r.Context(), &buf); renderErr != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
