package controller

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/storefront-admin/internal/admin"
	"github.com/iyhunko/storefront-admin/internal/model"
	"github.com/iyhunko/storefront-admin/internal/view"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	admin.Notice
	State *admin.State `json:"state,omitempty"`
}

// ProductResponse represents the response body for a product.
type ProductResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	Quantity     int    `json:"quantity"`
	CategoryID   int64  `json:"category"`
	CategorySlug string `json:"category_slug,omitempty"`
	Available    bool   `json:"available"`
	Image        string `json:"image,omitempty"`
	LastUpdated  string `json:"last_updated"`
	// Pending marks a local change not yet confirmed by the remote store.
	Pending bool `json:"pending,omitempty"`
}

// ListProductsResponse represents the response body for listing products.
type ListProductsResponse struct {
	Products []ProductResponse `json:"products"`
	Filter   FilterResponse    `json:"filter"`
}

// FilterResponse echoes the filter and sort state a list was rendered with.
type FilterResponse struct {
	Category  string `json:"category"`
	Search    string `json:"search"`
	Sort      string `json:"sort"`
	Direction string `json:"dir"`
	All       bool   `json:"all"`
}

func respondError(c *gin.Context, err error) {
	n := admin.Describe(err)
	if n.Status >= 500 {
		slog.Error("Request failed", slog.String("path", c.FullPath()), slog.Any("err", err))
	}
	c.JSON(n.Status, ErrorResponse{Notice: n})
}

func toProductResponse(p model.Product, pending bool) ProductResponse {
	resp := ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price.StringFixed(2),
		Quantity:     p.Quantity,
		CategoryID:   p.Category.ID,
		CategorySlug: p.CategorySlug,
		Available:    p.Available,
		Image:        p.Image,
		Pending:      pending,
	}
	if resp.CategorySlug == "" {
		resp.CategorySlug = p.Category.Slug
	}
	if !p.LastUpdated.IsZero() {
		resp.LastUpdated = p.LastUpdated.UTC().Format(time.RFC3339)
	}
	return resp
}

func toListResponse(products []model.Product, s view.State, pending func(int64) bool) ListProductsResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p, pending != nil && pending(p.ID)))
	}
	return ListProductsResponse{
		Products: out,
		Filter: FilterResponse{
			Category:  s.Category,
			Search:    s.Search,
			Sort:      string(s.SortField),
			Direction: string(s.Direction),
			All:       s.IncludeUnavailable,
		},
	}
}

// stateFromQuery overrides base with the filter and sort parameters present
// in the query string.
func stateFromQuery(c *gin.Context, base view.State) (view.State, error) {
	s := base
	if v, ok := c.GetQuery("category"); ok {
		s.Category = v
		if s.Category == "" {
			s.Category = view.AllCategories
		}
	}
	if v, ok := c.GetQuery("search"); ok {
		s.Search = v
	}
	if v, ok := c.GetQuery("sort"); ok {
		field, err := view.ParseSortField(v)
		if err != nil {
			return base, err
		}
		s.SortField = field
	}
	if v, ok := c.GetQuery("dir"); ok {
		dir, err := view.ParseDirection(v)
		if err != nil {
			return base, err
		}
		s.Direction = dir
	}
	if v, ok := c.GetQuery("all"); ok {
		all, err := strconv.ParseBool(v)
		if err != nil {
			return base, fmt.Errorf("invalid all flag %q: %w", v, err)
		}
		s.IncludeUnavailable = all
	}
	return s, nil
}

func productID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product ID %q", c.Param("id"))
	}
	return id, nil
}
