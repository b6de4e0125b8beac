// Package demo provides a small component set served by default so the
// render pipeline has something to resolve.
package demo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/isorender/internal/errors"
)

// Product is a catalog item. Price is in cents.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
}

// Catalog is an in-memory product source that answers after Latency, like
// a remote API would.
type Catalog struct {
	Latency time.Duration

	mu       sync.RWMutex
	products map[string]Product
	calls    int
}

// NewCatalog creates a catalog holding products.
func NewCatalog(latency time.Duration, products ...Product) *Catalog {
	c := &Catalog{Latency: latency, products: make(map[string]Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// DefaultCatalog is the catalog served by `isorender serve`.
func DefaultCatalog() *Catalog {
	return NewCatalog(25*time.Millisecond,
		Product{ID: "lamp", Name: "Desk Lamp", Description: "Warm light with a brass arm.", Price: 4900, Stock: 12},
		Product{ID: "mug", Name: "Stoneware Mug", Description: "Holds 350 ml, dishwasher safe.", Price: 1450, Stock: 40},
		Product{ID: "chair", Name: "Oak Chair", Description: "Solid oak, hand finished.", Price: 18900, Stock: 3},
		Product{ID: "rug", Name: "Wool Rug", Description: "Flat weave, 160 by 230 cm.", Price: 129900, Stock: 0},
	)
}

func (c *Catalog) wait(ctx context.Context) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	if c.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List returns every product sorted by name.
func (c *Catalog) List(ctx context.Context) ([]Product, error) {
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// Get returns one product or a not-found error.
func (c *Catalog) Get(ctx context.Context, id string) (Product, error) {
	if err := c.wait(ctx); err != nil {
		return Product{}, fmt.Errorf("loading product %s: %w", id, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return Product{}, errors.NotFound("product not found").WithContext("id", id)
	}
	return p, nil
}

// Calls returns how many requests the catalog has answered.
func (c *Catalog) Calls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls
}
