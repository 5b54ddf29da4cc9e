package dto

import (
	"strings"

	"github.com/mrops-br/catalog-manager/internal/app/catalog"
	"github.com/mrops-br/catalog-manager/internal/domain"
)

// CreateProductRequest is the catalog create form. Price is a bare number or
// an already formatted display price.
type CreateProductRequest struct {
	Name        string `json:"name" validate:"required,notblank"`
	Description string `json:"description" validate:"required,notblank"`
	Price       string `json:"price" validate:"required,notblank"`
	Image       string `json:"image" validate:"omitempty,url"`
	Category    string `json:"category"`
}

// UpdateProductRequest is the catalog edit form. Absent fields are kept.
type UpdateProductRequest struct {
	Name        *string `json:"name" validate:"omitnil,notblank"`
	Description *string `json:"description" validate:"omitnil,notblank"`
	Price       *string `json:"price" validate:"omitnil,notblank"`
	Image       *string `json:"image"`
	Category    *string `json:"category"`
}

// ProductEnvelope wraps a single catalog product
type ProductEnvelope struct {
	Product domain.Product `json:"product"`
}

// ProductsResponse is the home page payload
type ProductsResponse struct {
	Products  []domain.Product `json:"products"`
	IsLoading bool             `json:"isLoading"`
}

// ProductPageResponse is the listing page payload
type ProductPageResponse struct {
	Products   []domain.Product `json:"products"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
	Categories []string         `json:"categories"`
	IsLoading  bool             `json:"isLoading"`
}

// ToProductInput normalizes the create form: the price gets its currency
// symbol, a missing image becomes the placeholder and a missing category
// becomes the default one.
func (r *CreateProductRequest) ToProductInput() (domain.ProductInput, error) {
	price, err := domain.NormalizePrice(r.Price)
	if err != nil {
		return domain.ProductInput{}, err
	}

	image := strings.TrimSpace(r.Image)
	if image == "" {
		image = domain.PlaceholderImage
	}
	category := strings.TrimSpace(r.Category)
	if category == "" {
		category = domain.DefaultCategory
	}

	return domain.ProductInput{
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		Price:       price,
		Image:       image,
		Category:    category,
	}, nil
}

// ToProductPatch converts the edit form into a store patch.
func (r *UpdateProductRequest) ToProductPatch() (domain.ProductPatch, error) {
	patch := domain.ProductPatch{
		Name:        trimmed(r.Name),
		Description: trimmed(r.Description),
		Image:       orDefault(trimmed(r.Image), domain.PlaceholderImage),
		Category:    orDefault(trimmed(r.Category), domain.DefaultCategory),
	}
	if r.Price != nil {
		price, err := domain.NormalizePrice(*r.Price)
		if err != nil {
			return domain.ProductPatch{}, err
		}
		patch.Price = &price
	}
	return patch, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// orDefault replaces a cleared field with its create-form default
func orDefault(s *string, def string) *string {
	if s != nil && *s == "" {
		return &def
	}
	return s
}

// ToProductPageResponse converts a listing page into its payload
func ToProductPageResponse(page catalog.Page, loading bool) *ProductPageResponse {
	products := page.Products
	if products == nil {
		products = []domain.Product{}
	}
	return &ProductPageResponse{
		Products:   products,
		Total:      page.Total,
		Page:       page.Page,
		TotalPages: page.TotalPages,
		Categories: page.Categories,
		IsLoading:  loading,
	}
}
