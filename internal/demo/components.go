package demo

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/conneroisu/isorender/internal/render"
)

// write is a small helper for hand-written components.
func write(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

// Layout wraps children in the site chrome.
func Layout(heading string, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w,
			`<header class="site-header"><a href="/" class="brand">isorender</a></header>`,
			`<main><h1>`, templ.EscapeString(heading), `</h1>`,
		); err != nil {
			return err
		}
		for _, child := range children {
			if err := child.Render(ctx, w); err != nil {
				return err
			}
		}
		return write(w, `</main><footer class="site-footer">Rendered on the server</footer>`)
	})
}

// Button renders a link styled as a button. Variant is added as a class.
func Button(label, href, variant string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		class := "btn"
		if variant != "" {
			class += " btn-" + variant
		}
		return write(w,
			`<a class="`, templ.EscapeString(class), `" href="`, templ.EscapeString(href), `">`,
			templ.EscapeString(label), `</a>`,
		)
	})
}

// Price formats cents for the locale in ctx.
func Price(ctx context.Context, cents int64) string {
	tag := render.Locale(ctx)
	if tag == language.Und {
		tag = language.English
	}
	return "$" + message.NewPrinter(tag).Sprintf("%.2f", float64(cents)/100)
}

// ProductList loads the catalog and renders one card per product.
func ProductList(catalog *Catalog) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		products, ready, err := render.Load(ctx, "products", catalog.List)
		if !ready {
			return write(w, `<p class="loading">Loading products…</p>`)
		}
		if err != nil {
			return write(w, `<p class="error">Products are unavailable right now.</p>`)
		}
		if len(products) == 0 {
			return write(w, `<p class="empty">No products yet.</p>`)
		}

		if err := write(w, `<ul class="products">`); err != nil {
			return err
		}
		for _, p := range products {
			if err := productCard(ctx, w, p); err != nil {
				return err
			}
		}
		return write(w, `</ul>`)
	})
}

func productCard(ctx context.Context, w io.Writer, p Product) error {
	if err := write(w,
		`<li class="product" data-id="`, templ.EscapeString(p.ID), `">`,
		`<h2>`, templ.EscapeString(p.Name), `</h2>`,
		`<span class="price">`, templ.EscapeString(Price(ctx, p.Price)), `</span>`,
	); err != nil {
		return err
	}
	if p.Stock == 0 {
		if err := write(w, `<span class="badge">Sold out</span>`); err != nil {
			return err
		}
	}
	if err := Button("Details", "/products/"+p.ID, "secondary").Render(ctx, w); err != nil {
		return err
	}
	return write(w, `</li>`)
}

// ProductDetail renders one product. A missing product aborts the render
// with the loader's not-found error.
func ProductDetail(catalog *Catalog, id string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p, ready, err := render.Load(ctx, "product:"+id, func(ctx context.Context) (Product, error) {
			return catalog.Get(ctx, id)
		})
		if !ready {
			return write(w, `<p class="loading">Loading…</p>`)
		}
		if err != nil {
			return err
		}

		stock := "In stock"
		switch {
		case p.Stock == 0:
			stock = "Sold out"
		case p.Stock < 5:
			stock = fmt.Sprintf("Only %d left", p.Stock)
		}

		return write(w,
			`<article class="product-detail">`,
			`<h2>`, templ.EscapeString(p.Name), `</h2>`,
			`<p>`, templ.EscapeString(p.Description), `</p>`,
			`<p class="price">`, templ.EscapeString(Price(ctx, p.Price)), `</p>`,
			`<p class="stock">`, templ.EscapeString(stock), `</p>`,
			`</article>`,
		)
	})
}

// Title builds a page title for the demo site.
func Title(parts ...string) string {
	return strings.Join(append(parts, "isorender"), " · ")
}
