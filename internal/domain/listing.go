package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidListing = errors.New("missing required fields")
)

// Listing is the product shape served by the standalone /api/products
// surface. It is not linked to the catalog store.
type Listing struct {
	ID          string
	Name        string
	Description string
	Price       string
}

// Validate performs business validation on the listing
func (l *Listing) Validate() error {
	if strings.TrimSpace(l.Name) == "" ||
		strings.TrimSpace(l.Description) == "" ||
		strings.TrimSpace(l.Price) == "" {
		return ErrInvalidListing
	}
	return nil
}

// SeedListings returns the fixed listings the API starts with.
func SeedListings() []*Listing {
	return []*Listing{
		{ID: "1", Name: "Premium Package", Description: "Everything you need to get started", Price: "$99"},
		{ID: "2", Name: "Starter Kit", Description: "Perfect for beginners", Price: "$49"},
		{ID: "3", Name: "Enterprise Solution", Description: "Advanced features for teams", Price: "$299"},
		{ID: "4", Name: "Custom Plan", Description: "Tailored to your needs", Price: "$199"},
	}
}
