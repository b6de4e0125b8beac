package demo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/conneroisu/isorender/internal/config"
	"github.com/conneroisu/isorender/internal/errors"
	"github.com/conneroisu/isorender/internal/render"
	"github.com/conneroisu/isorender/internal/server"
)

func testCatalog() *Catalog {
	return NewCatalog(0,
		Product{ID: "mug", Name: "Mug", Description: "Blue & white", Price: 1450, Stock: 40},
		Product{ID: "lamp", Name: "Lamp", Description: "Brass", Price: 4900, Stock: 2},
	)
}

func TestCatalog(t *testing.T) {
	c := testCatalog()
	ctx := context.Background()

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Lamp", list[0].Name, "sorted by name")

	p, err := c.Get(ctx, "mug")
	require.NoError(t, err)
	assert.Equal(t, int64(1450), p.Price)

	_, err = c.Get(ctx, "sofa")
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, 3, c.Calls())
}

func TestCatalog_HonorsContext(t *testing.T) {
	c := NewCatalog(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestButton(t *testing.T) {
	out, err := render.New(render.Options{}, nil).RenderString(context.Background(),
		Button(`Say "hi"`, "/a?b=1&c=2", "primary"))
	require.NoError(t, err)
	assert.Equal(t,
		`<a class="btn btn-primary" href="/a?b=1&amp;c=2">Say &#34;hi&#34;</a>`, out)
}

func TestPrice(t *testing.T) {
	ctx := render.WithLocale(context.Background(), language.English)
	big := Price(ctx, 129900)
	assert.True(t, strings.HasPrefix(big, "$"))
	assert.True(t, strings.HasSuffix(big, "299.00"))
	assert.Equal(t, "$14.50", Price(context.Background(), 1450))
}

func TestProductList_ResolvesInTwoRounds(t *testing.T) {
	r := render.New(render.Options{}, nil)

	result, err := r.Render(context.Background(), Layout("Products", ProductList(testCatalog())))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Rounds)
	html := string(result.HTML)
	assert.Contains(t, html, `<h1>Products</h1>`)
	assert.Contains(t, html, `data-id="mug"`)
	assert.Contains(t, html, `href="/products/lamp"`)
	assert.NotContains(t, html, "Loading")
	assert.Contains(t, result.State, "products")
}

func TestProductList_LoaderFailure(t *testing.T) {
	c := NewCatalog(time.Hour)
	r := render.New(render.Options{Timeout: 50 * time.Millisecond}, nil)

	_, err := r.Render(context.Background(), ProductList(c))
	require.Error(t, err)
	assert.Equal(t, http.StatusGatewayTimeout, errors.HTTPStatus(err))
}

func TestProductDetail(t *testing.T) {
	r := render.New(render.Options{}, nil)

	out, err := r.RenderString(context.Background(), ProductDetail(testCatalog(), "lamp"))
	require.NoError(t, err)
	assert.Contains(t, out, "Only 2 left")

	_, err = r.Render(context.Background(), ProductDetail(testCatalog(), "sofa"))
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, errors.HTTPStatus(err))
}

func newDemoServer(t *testing.T) http.Handler {
	t.Helper()

	v := viper.New()
	config.SetDefaults(v)
	v.Set("i18n.locales", []string{"en", "de"})
	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)

	srv, err := server.New(cfg, server.Options{Routes: Routes(testCatalog())})
	require.NoError(t, err)
	return srv.Handler()
}

func TestRoutes(t *testing.T) {
	h := newDemoServer(t)

	testCases := []struct {
		name     string
		path     string
		status   int
		contains string
		location string
	}{
		{"home", "/", http.StatusOK, `data-id="lamp"`, ""},
		{"product", "/products/mug", http.StatusOK, "Blue &amp; white", ""},
		{"missing product", "/products/sofa", http.StatusNotFound, "Not Found", ""},
		{"legacy catalog", "/catalog", http.StatusMovedPermanently, "", "/"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, tc.status, rec.Code)
			if tc.contains != "" {
				assert.Contains(t, rec.Body.String(), tc.contains)
			}
			if tc.location != "" {
				assert.Equal(t, tc.location, rec.Header().Get("Location"))
			}
		})
	}
}
