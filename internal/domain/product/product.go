package product

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrNegativePrice is returned when a draft carries a price below zero.
var ErrNegativePrice = errors.New("price must not be negative")

// ErrPriceOutOfRange is returned when a price cannot be stored exactly:
// NUMERIC(12, 2) holds below MaxPrice with at most PriceScale fraction digits.
var ErrPriceOutOfRange = errors.New("price out of range")

// PriceScale is the number of fraction digits a price may carry.
const PriceScale = 2

// MaxPrice is the exclusive upper bound of a price.
var MaxPrice = decimal.New(1, 10)

// Product represents a catalog item available for purchase.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Image     string
	Category  string
	CreatedAt time.Time
}

// Draft is a candidate product that has not been assigned an ID yet.
//
// Price is a pointer so that an absent price can be told apart from zero.
type Draft struct {
	Name     string
	Price    *decimal.Decimal
	Image    string
	Category string
}

// ValidationError lists the required fields missing from a Draft.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// Validate checks that every field of the draft is present and non-empty.
// A draft that fails validation must never reach the repository.
func (d Draft) Validate() error {
	var missing []string
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "name")
	}
	if d.Price == nil {
		missing = append(missing, "price")
	}
	if strings.TrimSpace(d.Image) == "" {
		missing = append(missing, "image")
	}
	if strings.TrimSpace(d.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	if d.Price.IsNegative() {
		return ErrNegativePrice
	}
	if d.Price.GreaterThanOrEqual(MaxPrice) || !d.Price.Equal(d.Price.Truncate(PriceScale)) {
		return ErrPriceOutOfRange
	}
	return nil
}

// Normalize returns a copy of the draft with surrounding whitespace removed.
func (d Draft) Normalize() Draft {
	return Draft{
		Name:     strings.TrimSpace(d.Name),
		Price:    d.Price,
		Image:    strings.TrimSpace(d.Image),
		Category: strings.TrimSpace(d.Category),
	}
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	// List returns every product, most recently created first.
	List(ctx context.Context) ([]Product, error)
	// Create inserts a validated draft and returns the stored product.
	Create(ctx context.Context, d Draft) (*Product, error)
	// Delete removes the product with the given ID. It returns ErrNotFound
	// when no row matched.
	Delete(ctx context.Context, id int64) error
}
