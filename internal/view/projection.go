// Package view derives the displayed product sequence from a cache snapshot.
package view

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/iyhunko/storefront-admin/internal/model"
)

// AllCategories is the category filter value that matches every product.
const AllCategories = "all"

// SortField selects the comparator key.
type SortField string

const (
	SortByName        SortField = "name"
	SortByPrice       SortField = "price"
	SortByQuantity    SortField = "quantity"
	SortByLastUpdated SortField = "last_updated"
	SortByID          SortField = "id"
)

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// State is the filter and sort state of a view.
type State struct {
	// Category is a category slug or id, or AllCategories.
	Category  string
	Search    string
	SortField SortField
	Direction Direction
	// IncludeUnavailable keeps products marked unavailable. The shopper
	// catalog leaves it unset; the admin list sets it.
	IncludeUnavailable bool
}

// DefaultState shows every category sorted by name ascending.
func DefaultState() State {
	return State{
		Category:  AllCategories,
		SortField: SortByName,
		Direction: Asc,
	}
}

// ToggleSort selects field. Selecting the current field flips the direction;
// a new field starts ascending.
func (s State) ToggleSort(field SortField) State {
	if field == s.SortField {
		if s.Direction == Desc {
			s.Direction = Asc
		} else {
			s.Direction = Desc
		}
		return s
	}
	s.SortField = field
	s.Direction = Asc
	return s
}

// ParseSortField accepts the canonical names plus camel-case and hyphenated
// spellings of last_updated.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return SortByName, nil
	case "price":
		return SortByPrice, nil
	case "quantity":
		return SortByQuantity, nil
	case "last_updated", "lastupdated", "last-updated":
		return SortByLastUpdated, nil
	case "id":
		return SortByID, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// ParseDirection accepts "asc" and "desc", defaulting to ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// Matches reports whether p passes the filter part of s.
func Matches(p model.Product, s State) bool {
	if !matchesCategory(p, s.Category) {
		return false
	}
	if s.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(s.Search)) {
		return false
	}
	return p.Available || s.IncludeUnavailable
}

func matchesCategory(p model.Product, category string) bool {
	if category == "" || category == AllCategories {
		return true
	}
	if p.CategorySlug == category || (p.Category.Slug != "" && p.Category.Slug == category) {
		return true
	}
	return strconv.FormatInt(p.Category.ID, 10) == category
}

// Project filters and sorts snapshot according to s. It never modifies
// snapshot, and equal keys keep their relative order.
func Project(snapshot []model.Product, s State) []model.Product {
	out := make([]model.Product, 0, len(snapshot))
	for _, p := range snapshot {
		if Matches(p, s) {
			out = append(out, p)
		}
	}

	cmp := comparator(s.SortField)
	if s.Direction == Desc {
		asc := cmp
		cmp = func(a, b model.Product) int { return -asc(a, b) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func comparator(field SortField) func(a, b model.Product) int {
	switch field {
	case SortByPrice:
		return func(a, b model.Product) int { return a.Price.Cmp(b.Price) }
	case SortByQuantity:
		return func(a, b model.Product) int { return compareInt(int64(a.Quantity), int64(b.Quantity)) }
	case SortByID:
		return func(a, b model.Product) int { return compareInt(a.ID, b.ID) }
	case SortByLastUpdated:
		return func(a, b model.Product) int { return a.LastUpdated.Compare(b.LastUpdated) }
	default:
		return func(a, b model.Product) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
