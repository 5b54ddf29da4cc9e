package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/catalog-manager/internal/app/catalog"
	"github.com/mrops-br/catalog-manager/internal/app/dto"
	"github.com/mrops-br/catalog-manager/internal/domain"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/config"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/http/response"
)

// CatalogHandler exposes the catalog store to the storefront pages
type CatalogHandler struct {
	store  *catalog.Store
	config *config.CatalogConfig
	logger *slog.Logger

	closing   chan struct{}
	closeOnce sync.Once
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(store *catalog.Store, cfg *config.CatalogConfig, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		store:   store,
		config:  cfg,
		logger:  logger,
		closing: make(chan struct{}),
	}
}

// Close ends every open event stream
func (h *CatalogHandler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

type snapshotEvent struct {
	Products  []domain.Product `json:"products"`
	IsLoading bool             `json:"isLoading"`
	Error     string           `json:"error,omitempty"`
}

// Popular handles GET /catalog/popular
func (h *CatalogHandler) Popular(w http.ResponseWriter, r *http.Request) {
	h.store.EnsureLoaded(r.Context())
	snap := h.store.Snapshot()

	response.JSON(w, http.StatusOK, dto.ProductsResponse{
		Products:  nonNil(catalog.Popular(snap.Products, h.config.PopularCount)),
		IsLoading: snap.IsLoading,
	})
}

// ListProducts handles GET /catalog/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.store.EnsureLoaded(r.Context())
	snap := h.store.Snapshot()

	values := r.URL.Query()
	page, _ := strconv.Atoi(values.Get("page"))
	query := catalog.Query{
		Search:   values.Get("q"),
		Show:     values.Get("show"),
		Category: values.Get("category"),
		Sort:     values.Get("sort"),
		Page:     page,
		PageSize: h.config.PageSize,
	}

	response.JSON(w, http.StatusOK, dto.ToProductPageResponse(query.Apply(snap.Products), snap.IsLoading))
}

// GetProduct handles GET /catalog/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	h.store.EnsureLoaded(r.Context())

	product, ok := h.store.GetByID(chi.URLParam(r, "id"))
	if !ok {
		response.Error(w, http.StatusNotFound, domain.ErrProductNotFound)
		return
	}

	response.JSON(w, http.StatusOK, dto.ProductEnvelope{Product: product})
}

// CreateProduct handles POST /catalog/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProductRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	input, err := req.ToProductInput()
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	product := h.store.Create(r.Context(), input)
	response.JSON(w, http.StatusCreated, dto.ProductEnvelope{Product: product})
}

// UpdateProduct handles PATCH /catalog/products/{id}
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.store.GetByID(id); !ok {
		response.Error(w, http.StatusNotFound, domain.ErrProductNotFound)
		return
	}

	var req dto.UpdateProductRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	patch, err := req.ToProductPatch()
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	h.store.Update(r.Context(), id, patch)

	// a concurrent delete may have removed it in the meantime
	product, ok := h.store.GetByID(id)
	if !ok {
		response.Error(w, http.StatusNotFound, domain.ErrProductNotFound)
		return
	}
	response.JSON(w, http.StatusOK, dto.ProductEnvelope{Product: product})
}

// DeleteProduct handles DELETE /catalog/products/{id}
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.store.Remove(r.Context(), chi.URLParam(r, "id"))
	response.JSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

// ToggleFavorite handles POST /catalog/products/{id}/favorite
func (h *CatalogHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.store.GetByID(id); !ok {
		response.Error(w, http.StatusNotFound, domain.ErrProductNotFound)
		return
	}

	h.store.ToggleFavorite(r.Context(), id)

	product, ok := h.store.GetByID(id)
	if !ok {
		response.Error(w, http.StatusNotFound, domain.ErrProductNotFound)
		return
	}
	response.JSON(w, http.StatusOK, dto.ProductEnvelope{Product: product})
}

// Refresh handles POST /catalog/refresh
func (h *CatalogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reload(r.Context()); err != nil {
		response.Error(w, http.StatusBadGateway, errRefreshFailed)
		return
	}

	snap := h.store.Snapshot()
	response.JSON(w, http.StatusOK, dto.ProductsResponse{
		Products:  nonNil(snap.Products),
		IsLoading: snap.IsLoading,
	})
}

// Events handles GET /catalog/events, streaming a snapshot after every change
func (h *CatalogHandler) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	updates := make(chan catalog.Snapshot, 16)
	unsubscribe := h.store.Subscribe(func(snap catalog.Snapshot) {
		select {
		case updates <- snap:
		default:
			// slow reader; it will catch up on the next change
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := h.writeEvent(w, rc, h.store.Snapshot()); err != nil {
		h.logger.WarnContext(r.Context(), "Event stream closed",
			slog.String("error", err.Error()),
		)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.closing:
			return
		case snap := <-updates:
			if err := h.writeEvent(w, rc, snap); err != nil {
				h.logger.WarnContext(r.Context(), "Event stream closed",
					slog.String("error", err.Error()),
				)
				return
			}
		}
	}
}

func (h *CatalogHandler) writeEvent(w http.ResponseWriter, rc *http.ResponseController, snap catalog.Snapshot) error {
	event := snapshotEvent{
		Products:  nonNil(snap.Products),
		IsLoading: snap.IsLoading,
	}
	if snap.LastError != nil {
		event.Error = snap.LastError.Error()
	}

	payload, err := response.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return fmt.Errorf("%w: %v", errStreamingUnsupported, err)
	}
	return nil
}

func nonNil(products []domain.Product) []domain.Product {
	if products == nil {
		return []domain.Product{}
	}
	return products
}
