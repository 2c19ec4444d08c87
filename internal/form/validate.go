package form

import (
	"math"
	"strings"

	"github.com/iyhunko/storefront-admin/internal/model"
	"github.com/shopspring/decimal"
)

const (
	msgNameRequired     = "Product name is required"
	msgPriceRequired    = "Price is required"
	msgPriceInvalid     = "Price must be a positive number"
	msgQuantityRequired = "Quantity is required"
	msgQuantityInvalid  = "Quantity must be a non-negative integer"
	msgCategoryRequired = "Category is required"
	msgCategoryUnknown  = "Select one of the listed categories"
)

var maxQuantity = decimal.NewFromInt(math.MaxInt32)

// Validate runs the local rules against d and returns the field errors.
// An empty map means the draft may be submitted.
func Validate(d Draft, categories []model.Category) map[string]string {
	errs := map[string]string{}

	if strings.TrimSpace(d.Name) == "" {
		errs[FieldName] = msgNameRequired
	}

	if _, msg := parsePrice(d.Price); msg != "" {
		errs[FieldPrice] = msg
	}

	if _, msg := parseQuantity(d.Quantity); msg != "" {
		errs[FieldQuantity] = msg
	}

	switch {
	case d.CategoryID == 0:
		errs[FieldCategory] = msgCategoryRequired
	case !knownCategory(d.CategoryID, categories):
		errs[FieldCategory] = msgCategoryUnknown
	}

	return errs
}

func parsePrice(raw string) (decimal.Decimal, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, msgPriceRequired
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, msgPriceInvalid
	}
	return price, ""
}

func parseQuantity(raw string) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, msgQuantityRequired
	}
	qty, err := decimal.NewFromString(raw)
	if err != nil || !qty.IsInteger() || qty.IsNegative() || qty.GreaterThan(maxQuantity) {
		return 0, msgQuantityInvalid
	}
	return int(qty.IntPart()), ""
}

func knownCategory(id int64, categories []model.Category) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}
