package demo

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conneroisu/isorender/internal/errors"
	"github.com/conneroisu/isorender/internal/server"
)

// Routes returns the demo site's routes backed by catalog.
func Routes(catalog *Catalog) []server.Route {
	return []server.Route{
		{
			Pattern: "/",
			Page: func(r *http.Request) (server.Page, error) {
				return server.Page{
					Title: Title("Products"),
					Body:  Layout("Products", ProductList(catalog)),
				}, nil
			},
		},
		{
			Pattern: "/products/{id}",
			Page: func(r *http.Request) (server.Page, error) {
				id := chi.URLParam(r, "id")
				return server.Page{
					Title: Title(id),
					Body: Layout("Product",
						ProductDetail(catalog, id),
						Button("Back to products", "/", "primary"),
					),
				}, nil
			},
		},
		{
			Pattern: "/catalog",
			Page: func(r *http.Request) (server.Page, error) {
				return server.Page{}, errors.Redirect(http.StatusMovedPermanently, "/")
			},
		},
	}
}
