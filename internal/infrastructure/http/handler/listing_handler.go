package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/catalog-manager/internal/app/dto"
	"github.com/mrops-br/catalog-manager/internal/app/service"
	"github.com/mrops-br/catalog-manager/internal/domain"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/http/response"
)

// ListingHandler serves the standalone /api/products surface
type ListingHandler struct {
	service *service.ListingService
	logger  *slog.Logger
}

// NewListingHandler creates a new listing handler
func NewListingHandler(service *service.ListingService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		service: service,
		logger:  logger,
	}
}

// CreateListing handles POST /api/products
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateListingRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Rejected listing request",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	listing, err := h.service.CreateListing(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidListing) {
			response.Error(w, http.StatusBadRequest, errMissingFields)
			return
		}
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	response.JSON(w, http.StatusCreated, dto.ListingEnvelope{Product: listing})
}

// GetListing handles GET /api/products/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	listing, err := h.service.GetListingByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			response.Error(w, http.StatusNotFound, domain.ErrListingNotFound)
		} else {
			response.Error(w, http.StatusInternalServerError, err)
		}
		return
	}

	response.JSON(w, http.StatusOK, dto.ListingEnvelope{Product: listing})
}

// ListListings handles GET /api/products
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.service.ListListings(r.Context())
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	response.JSON(w, http.StatusOK, dto.ListingsEnvelope{Products: listings})
}

// PatchListing handles PATCH /api/products/{id}
func (h *ListingHandler) PatchListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch map[string]any
	if err := decodeBody(w, r, &patch); err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	product := h.service.PatchListing(r.Context(), id, patch)
	response.JSON(w, http.StatusOK, dto.PatchedListingEnvelope{Product: product})
}

// DeleteListing handles DELETE /api/products/{id}
func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	h.service.DeleteListing(r.Context(), chi.URLParam(r, "id"))
	response.JSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}
