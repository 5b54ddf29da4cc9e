package dto

import (
	"bytes"
	"errors"

	jsoniter "github.com/json-iterator/go"
	"github.com/mrops-br/catalog-manager/internal/domain"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errInvalidListingPrice = errors.New("price must be a string or a number")

// ListingPrice is a listing price sent either as a display string ("$99")
// or as a bare JSON number (99). Numbers keep their literal text.
type ListingPrice string

// UnmarshalJSON implements json.Unmarshaler
func (p *ListingPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ListingPrice(s)
		return nil
	}

	if _, err := decimal.NewFromString(string(data)); err != nil {
		return errInvalidListingPrice
	}
	*p = ListingPrice(data)
	return nil
}

// CreateListingRequest represents the request to create a listing
type CreateListingRequest struct {
	Name        string       `json:"name" validate:"required"`
	Description string       `json:"description" validate:"required"`
	Price       ListingPrice `json:"price" validate:"required"`
}

// ListingResponse represents a listing on the wire
type ListingResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

// ListingEnvelope wraps a single listing
type ListingEnvelope struct {
	Product *ListingResponse `json:"product"`
}

// ListingsEnvelope wraps the listing collection
type ListingsEnvelope struct {
	Products []*ListingResponse `json:"products"`
}

// PatchedListingEnvelope echoes a patch request merged with the listing id
type PatchedListingEnvelope struct {
	Product map[string]any `json:"product"`
}

// SuccessResponse acknowledges a request with no other payload
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ToListingResponse converts a domain Listing to ListingResponse
func ToListingResponse(l *domain.Listing) *ListingResponse {
	return &ListingResponse{
		ID:          l.ID,
		Name:        l.Name,
		Description: l.Description,
		Price:       l.Price,
	}
}

// ToListingResponseList converts a list of domain Listings to ListingResponse list
func ToListingResponseList(listings []*domain.Listing) []*ListingResponse {
	responses := make([]*ListingResponse, len(listings))
	for i, l := range listings {
		responses[i] = ToListingResponse(l)
	}
	return responses
}
