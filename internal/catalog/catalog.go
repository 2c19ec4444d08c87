// Package catalog serves the shopper-facing product catalog.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iyhunko/storefront-admin/internal/cache"
	"github.com/iyhunko/storefront-admin/internal/model"
	"github.com/iyhunko/storefront-admin/internal/view"
)

// Source is the public part of the remote store.
type Source interface {
	ListCategoriesWithProducts(ctx context.Context) ([]model.CategoryWithProducts, error)
}

// Page is one rendered catalog view.
type Page struct {
	Categories []model.Category `json:"categories"`
	Products   []model.Product  `json:"products"`
	State      view.State       `json:"-"`
}

// Catalog mirrors the public catalog into its own product cache.
type Catalog struct {
	source Source
	cache  *cache.Cache

	mu         sync.RWMutex
	categories []model.Category
}

// New creates a Catalog reading from source.
func New(source Source) *Catalog {
	return &Catalog{source: source, cache: cache.New()}
}

// Browse reloads the catalog and renders it for s. Unavailable products are
// never shown to shoppers.
func (c *Catalog) Browse(ctx context.Context, s view.State) (Page, error) {
	if err := c.Refresh(ctx); err != nil {
		return Page{}, err
	}
	s.IncludeUnavailable = false

	c.mu.RLock()
	categories := append([]model.Category(nil), c.categories...)
	c.mu.RUnlock()

	return Page{
		Categories: categories,
		Products:   view.Project(c.cache.Snapshot(), s),
		State:      s,
	}, nil
}

// Refresh replaces the mirrored catalog with the remote one.
func (c *Catalog) Refresh(ctx context.Context) error {
	ticket := c.cache.Begin()
	groups, err := c.source.ListCategoriesWithProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	categories, products := Flatten(groups)
	if !c.cache.LoadAt(ticket, products) {
		return nil
	}
	c.mu.Lock()
	c.categories = categories
	c.mu.Unlock()
	slog.Debug("Catalog loaded",
		slog.Int("categories", len(categories)),
		slog.Int("products", len(products)),
	)
	return nil
}

// Flatten splits categories-with-products into the category list and the
// products, each product carrying its category's identity.
func Flatten(groups []model.CategoryWithProducts) ([]model.Category, []model.Product) {
	categories := make([]model.Category, 0, len(groups))
	var products []model.Product
	for _, g := range groups {
		categories = append(categories, g.Category)
		for _, p := range g.Products {
			if p.Category.ID == 0 || p.Category.ID == g.ID {
				p.Category = model.CategoryRef{ID: g.ID, Name: g.Name, Slug: g.Slug}
			}
			if p.CategorySlug == "" {
				p.CategorySlug = p.Category.Slug
			}
			products = append(products, p)
		}
	}
	return categories, products
}
