package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product record mirrored from the remote store.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Category     CategoryRef     `json:"category"`
	CategorySlug string          `json:"category_slug,omitempty"`
	Available    bool            `json:"available"`
	Image        string          `json:"image,omitempty"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// Touch sets the last-updated timestamp.
func (p *Product) Touch(now time.Time) {
	p.LastUpdated = now.UTC()
}

// CategoryRef references a category by id. The remote store sends either the
// bare id or an embedded category object.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

// UnmarshalJSON accepts an integer id, an embedded object or null.
func (c *CategoryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = CategoryRef{}
		return nil
	}
	if data[0] == '{' {
		type plain CategoryRef
		var v plain
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("failed to decode category object: %w", err)
		}
		*c = CategoryRef(v)
		return nil
	}
	var id json.Number
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("failed to decode category id: %w", err)
	}
	n, err := id.Int64()
	if err != nil {
		return fmt.Errorf("invalid category id %q: %w", id, err)
	}
	*c = CategoryRef{ID: n}
	return nil
}

// MarshalJSON writes the bare id, which is what the remote store accepts.
func (c CategoryRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ID)
}

// Category is a read-only product category.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CategoryWithProducts is a category carrying its embedded products.
type CategoryWithProducts struct {
	Category
	Products []Product `json:"products"`
}

// Credentials is the bearer token pair issued on login.
type Credentials struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Image is an opaque binary attachment sent alongside product fields.
type Image struct {
	Filename string
	Content  []byte
}

// ProductPayload is the submit payload for create and update requests.
type ProductPayload struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	CategoryID  int64
	Available   bool
	LastUpdated time.Time
	Image       *Image
}

// Apply returns p with the payload fields written over it.
func (pl ProductPayload) Apply(p Product) Product {
	p.Name = pl.Name
	p.Description = pl.Description
	p.Price = pl.Price
	p.Quantity = pl.Quantity
	if p.Category.ID != pl.CategoryID {
		p.Category = CategoryRef{ID: pl.CategoryID}
		p.CategorySlug = ""
	}
	p.Available = pl.Available
	p.LastUpdated = pl.LastUpdated
	return p
}
