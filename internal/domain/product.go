package domain

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("Product not found")
	ErrInvalidPrice    = errors.New("product price must be a non-negative number")
)

// Origin tells where a product's identity comes from.
type Origin string

const (
	OriginSeed  Origin = "seed"
	OriginLocal Origin = "local"
)

// SeedIDCeiling is the largest id the remote catalog is expected to hand out.
// Only used to tag records persisted without an explicit origin.
const SeedIDCeiling = 1000

// CurrencySymbol prefixes every display price.
const CurrencySymbol = "$"

// PlaceholderImage is used when a product is created without an image URL.
const PlaceholderImage = "data:image/svg+xml,%3Csvg xmlns='http://www.w3.org/2000/svg' width='400' height='400'%3E%3Crect width='400' height='400' fill='%23e5e5e5'/%3E%3Ctext x='50%25' y='50%25' dominant-baseline='middle' text-anchor='middle' font-family='sans-serif' font-size='24' fill='%23999'%3ENo Image%3C/text%3E%3C/svg%3E"

// DefaultCategory is assigned when a product is created without a category.
const DefaultCategory = "other"

// Categories lists the conventional category values offered by the create form.
var Categories = []string{"electronics", "jewelery", "men's clothing", "women's clothing", DefaultCategory}

// Product represents a catalog entry
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	Category    string `json:"category"`
	IsFavorite  bool   `json:"isFavorite"`
	Origin      Origin `json:"origin,omitempty"`
}

// ProductInput carries the user-editable fields of a new product.
type ProductInput struct {
	Name        string
	Description string
	Price       string
	Image       string
	Category    string
}

// ProductPatch holds a partial update. Nil fields are left untouched.
type ProductPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *string `json:"price,omitempty"`
	Image       *string `json:"image,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// Apply merges the patch into p. ID, IsFavorite and Origin are never touched.
func (patch ProductPatch) Apply(p Product) Product {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	return p
}

// IsLocal reports whether the product was created in this catalog rather
// than imported from the remote source.
func (p Product) IsLocal() bool {
	return p.ResolvedOrigin() == OriginLocal
}

// ResolvedOrigin returns the explicit origin tag, inferring it from the id
// for records that predate the tag.
func (p Product) ResolvedOrigin() Origin {
	if p.Origin != "" {
		return p.Origin
	}
	return InferOrigin(p.ID)
}

// InferOrigin maps an id onto the seed or local id space.
func InferOrigin(id string) Origin {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n > SeedIDCeiling {
		return OriginLocal
	}
	return OriginSeed
}

// ParsePrice strips the currency symbol from a display price and returns its
// numeric value.
func ParsePrice(price string) (decimal.Decimal, error) {
	raw := stripCurrency(price)
	// display prices are plain numerals; decimal alone would take "1e3"
	if raw == "" || strings.ContainsAny(raw, "eE") {
		return decimal.Zero, ErrInvalidPrice
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	return d, nil
}

// FormatPrice renders a numeric price the way the storefront displays it:
// the currency symbol followed by the shortest decimal representation.
func FormatPrice(price float64) string {
	return CurrencySymbol + decimal.NewFromFloat(price).String()
}

// NormalizePrice accepts "12.5" or "$12.5" and returns "$12.5". The numeric
// part must be a non-negative decimal.
func NormalizePrice(price string) (string, error) {
	d, err := ParsePrice(price)
	if err != nil {
		return "", err
	}
	if d.IsNegative() {
		return "", ErrInvalidPrice
	}
	return CurrencySymbol + stripCurrency(price), nil
}

func stripCurrency(price string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(price), CurrencySymbol))
}
