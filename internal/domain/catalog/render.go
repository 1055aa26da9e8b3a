// Package catalog builds the shopper-facing view of the product catalog:
// category options, visible cards, Naira prices and order deep links.
//
// Build is a pure function of the loaded products and the active filter so
// that rendering can be tested without a browser. View adds the cached load
// cycle on top of it.
package catalog

import (
	"github.com/xenking/storefront/internal/domain/product"
)

// AllCategories is the filter value meaning "no filter". It is empty so it
// can never collide with a category; blank categories fail validation.
const AllCategories = ""

// Messages shown in place of the product grid.
const (
	MessageEmpty     = "No products found in this category."
	MessageLoadError = "Unable to load products. Please try again later."
	allCategoriesLbl = "All Categories"
)

// Option is one entry of the category filter control.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Card is a rendered product.
type Card struct {
	ID       int64
	Name     string
	Image    string
	Price    string
	Category string
	OrderURL string
}

// Model is everything needed to paint the catalog page.
type Model struct {
	Filter  string
	Options []Option
	Cards   []Card
	// Message replaces the grid when set: the empty state or a load error.
	Message string
	Failed  bool
}

// Categories returns the distinct categories of products in order of first
// appearance.
func Categories(products []product.Product) []string {
	seen := make(map[string]struct{}, len(products))
	var out []string
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// Visible returns the products matching filter. AllCategories matches
// everything.
func Visible(products []product.Product, filter string) []product.Product {
	if filter == AllCategories {
		return products
	}
	var out []product.Product
	for _, p := range products {
		if p.Category == filter {
			out = append(out, p)
		}
	}
	return out
}

// Build computes the render model for products under the active filter.
// phone is the destination number for order deep links.
func Build(products []product.Product, filter, phone string) Model {
	m := Model{
		Filter:  filter,
		Options: options(Categories(products), filter),
	}

	visible := Visible(products, filter)
	if len(visible) == 0 {
		m.Message = MessageEmpty
		return m
	}

	m.Cards = make([]Card, len(visible))
	for i, p := range visible {
		m.Cards[i] = Card{
			ID:       p.ID,
			Name:     p.Name,
			Image:    p.Image,
			Price:    FormatNaira(p.Price),
			Category: p.Category,
			OrderURL: OrderLink(phone, p.Name, p.Price),
		}
	}
	return m
}

// Failure is the model for a render cycle whose load failed: a single error
// message and a filter control holding only the leading option.
func Failure(filter string) Model {
	return Model{
		Filter:  filter,
		Options: options(nil, filter),
		Message: MessageLoadError,
		Failed:  true,
	}
}

func options(categories []string, filter string) []Option {
	out := make([]Option, 0, len(categories)+1)
	out = append(out, Option{
		Value:    AllCategories,
		Label:    allCategoriesLbl,
		Selected: filter == AllCategories,
	})
	for _, c := range categories {
		out = append(out, Option{Value: c, Label: c, Selected: c == filter})
	}
	return out
}
