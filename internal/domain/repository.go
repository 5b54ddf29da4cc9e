package domain

import (
	"context"
	"errors"
)

var (
	ErrListingNotFound = errors.New("Product not found")
)

// ListingRepository defines the contract for the API's listing storage
type ListingRepository interface {
	Create(ctx context.Context, listing *Listing) error
	FindByID(ctx context.Context, id string) (*Listing, error)
	FindAll(ctx context.Context) ([]*Listing, error)
}

// SeedRecord is one entry of the remote seed catalog as it comes off the wire.
type SeedRecord struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
}

// CatalogSource fetches the remote seed catalog.
type CatalogSource interface {
	FetchProducts(ctx context.Context) ([]SeedRecord, error)
}

// CatalogStorage persists the full product list under a single record.
// Load returns an empty list when nothing has been saved yet.
type CatalogStorage interface {
	Load(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, products []Product) error
}
