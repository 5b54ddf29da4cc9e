package handler

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/catalog-manager/internal/app/catalog"
	"github.com/mrops-br/catalog-manager/internal/app/service"
	"github.com/mrops-br/catalog-manager/internal/domain"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/config"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type stubSource struct {
	mu      sync.Mutex
	records []domain.SeedRecord
	err     error
	calls   int
}

func (s *stubSource) FetchProducts(context.Context) ([]domain.SeedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.SeedRecord(nil), s.records...), nil
}

func (s *stubSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func seedRecords() []domain.SeedRecord {
	return []domain.SeedRecord{
		{ID: 1, Title: "Backpack", Description: "Fits a laptop", Price: 109.95, Image: "https://example.com/1.jpg", Category: "men's clothing"},
		{ID: 2, Title: "T-Shirt", Description: "Slim fit", Price: 22.3, Image: "https://example.com/2.jpg", Category: "men's clothing"},
		{ID: 3, Title: "Ring", Description: "Gold plated", Price: 9.99, Image: "https://example.com/3.jpg", Category: "jewelery"},
		{ID: 4, Title: "Monitor", Description: "27 inch", Price: 599, Image: "https://example.com/4.jpg", Category: "electronics"},
		{ID: 5, Title: "Jacket", Description: "Rain proof", Price: 56.99, Image: "https://example.com/5.jpg", Category: "women's clothing"},
	}
}

type testEnv struct {
	router  *chi.Mux
	store   *catalog.Store
	source  *stubSource
	catalog *CatalogHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	meter := metricnoop.NewMeterProvider().Meter("test")

	source := &stubSource{records: seedRecords()}
	store := catalog.NewStore(source, nil, tracer, meter, logger)
	cfg := &config.CatalogConfig{PageSize: 2, PopularCount: 4}

	listings := NewListingHandler(
		service.NewListingService(memory.NewListingRepository(tracer, logger), tracer, meter, logger),
		logger,
	)
	catalogHandler := NewCatalogHandler(store, cfg, logger)

	r := chi.NewRouter()
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", listings.ListListings)
		r.Post("/", listings.CreateListing)
		r.Get("/{id}", listings.GetListing)
		r.Patch("/{id}", listings.PatchListing)
		r.Delete("/{id}", listings.DeleteListing)
	})
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/popular", catalogHandler.Popular)
		r.Post("/refresh", catalogHandler.Refresh)
		r.Get("/events", catalogHandler.Events)
		r.Get("/products", catalogHandler.ListProducts)
		r.Post("/products", catalogHandler.CreateProduct)
		r.Get("/products/{id}", catalogHandler.GetProduct)
		r.Patch("/products/{id}", catalogHandler.UpdateProduct)
		r.Delete("/products/{id}", catalogHandler.DeleteProduct)
		r.Post("/products/{id}/favorite", catalogHandler.ToggleFavorite)
	})

	return &testEnv{router: r, store: store, source: source, catalog: catalogHandler}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type listingBody struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

type pageBody struct {
	Products   []domain.Product `json:"products"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
	Categories []string         `json:"categories"`
	IsLoading  bool             `json:"isLoading"`
}

func TestListings_ListReturnsSeeds(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode[struct {
		Products []listingBody `json:"products"`
	}](t, rec)
	require.Len(t, body.Products, 4)
	assert.Equal(t, listingBody{ID: "1", Name: "Premium Package", Description: "Everything you need to get started", Price: "$99"}, body.Products[0])
}

func TestListings_CreateThenGet(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/products", `{"name":"X","description":"Y","price":"$1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decode[struct {
		Product listingBody `json:"product"`
	}](t, rec).Product
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "X", created.Name)
	assert.Equal(t, "Y", created.Description)
	assert.Equal(t, "$1", created.Price)

	rec = env.do(t, http.MethodGet, "/api/products/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decode[struct {
		Product listingBody `json:"product"`
	}](t, rec).Product)
}

func TestListings_CreateAcceptsNumericPrice(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/products", `{"name":"A","description":"B","price":99}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decode[struct {
		Product listingBody `json:"product"`
	}](t, rec).Product
	assert.Equal(t, "99", created.Price)

	rec = env.do(t, http.MethodPost, "/api/products", `{"name":"A","description":"B","price":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/products", `{"name":"A","description":"B","price":null}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing required fields"}`, rec.Body.String())
}

func TestListings_CreateRejectsBadBodies(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing price", body: `{"name":"X","description":"Y"}`, want: "Missing required fields"},
		{name: "blank name", body: `{"name":"  ","description":"Y","price":"$1"}`, want: "Missing required fields"},
		{name: "not json", body: `{nope`, want: "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/products", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"`+tt.want+`"}`, rec.Body.String())
		})
	}
}

func TestListings_GetUnknown(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Product not found"}`, rec.Body.String())
}

func TestListings_PatchEchoesWithoutStoring(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/products/2", `{"price":"$10","extra":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"product":{"id":"2","price":"$10","extra":true}}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/products/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "$49", decode[struct {
		Product listingBody `json:"product"`
	}](t, rec).Product.Price)
}

func TestListings_DeleteAcknowledgesWithoutRemoving(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/products/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/products/3", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalog_PopularLoadsLazily(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/catalog/popular", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Products  []domain.Product `json:"products"`
		IsLoading bool             `json:"isLoading"`
	}](t, rec)
	require.Len(t, body.Products, 4)
	assert.Equal(t, "1", body.Products[0].ID)
	assert.Equal(t, "$109.95", body.Products[0].Price)
	assert.False(t, body.IsLoading)

	env.do(t, http.MethodGet, "/catalog/popular", "")
	assert.Equal(t, 1, env.source.calls)
}

func TestCatalog_ListAppliesQuery(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/catalog/products?sort=price-desc&page=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	page := decode[pageBody](t, rec)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "4", page.Products[0].ID)
	assert.Equal(t, "1", page.Products[1].ID)
	assert.Equal(t, []string{"men's clothing", "jewelery", "electronics", "women's clothing"}, page.Categories)

	rec = env.do(t, http.MethodGet, "/catalog/products?category=jewelery", "")
	page = decode[pageBody](t, rec)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Ring", page.Products[0].Name)

	rec = env.do(t, http.MethodGet, "/catalog/products?q=nothing-matches", "")
	page = decode[pageBody](t, rec)
	assert.Equal(t, 0, page.Total)
	assert.NotNil(t, page.Products)
}

func TestCatalog_CreateNormalizesForm(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/catalog/popular", "")

	rec := env.do(t, http.MethodPost, "/catalog/products", `{"name":" Lamp ","description":"Warm light","price":"12.5"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decode[struct {
		Product domain.Product `json:"product"`
	}](t, rec).Product
	assert.Equal(t, "Lamp", created.Name)
	assert.Equal(t, "$12.5", created.Price)
	assert.Equal(t, domain.PlaceholderImage, created.Image)
	assert.Equal(t, domain.DefaultCategory, created.Category)
	assert.Equal(t, domain.OriginLocal, created.Origin)

	got, ok := env.store.GetByID(created.ID)
	require.True(t, ok)
	assert.Equal(t, created, got)
	assert.Len(t, env.store.Products(), 6)
}

func TestCatalog_CreateRejectsBadForms(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing name", body: `{"description":"d","price":"1"}`, want: "Missing required fields"},
		{name: "bad image", body: `{"name":"n","description":"d","price":"1","image":"not a url"}`, want: "Invalid image"},
		{name: "bad price", body: `{"name":"n","description":"d","price":"abc"}`, want: domain.ErrInvalidPrice.Error()},
		{name: "exponent price", body: `{"name":"n","description":"d","price":"1e3"}`, want: domain.ErrInvalidPrice.Error()},
		{name: "blank name and description", body: `{"name":"   ","description":"   ","price":"5"}`, want: "Missing required fields"},
		{name: "blank price", body: `{"name":"n","description":"d","price":" "}`, want: "Missing required fields"},
		{name: "not json", body: `[`, want: "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/catalog/products", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"`+tt.want+`"}`, rec.Body.String())
		})
	}
	assert.Empty(t, env.store.Products())
}

func TestCatalog_GetUpdateDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/catalog/popular", "")

	rec := env.do(t, http.MethodGet, "/catalog/products/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T-Shirt", decode[struct {
		Product domain.Product `json:"product"`
	}](t, rec).Product.Name)

	rec = env.do(t, http.MethodPatch, "/catalog/products/2", `{"price":"30","id":"999"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[struct {
		Product domain.Product `json:"product"`
	}](t, rec).Product
	assert.Equal(t, "2", updated.ID)
	assert.Equal(t, "$30", updated.Price)
	assert.Equal(t, "T-Shirt", updated.Name)

	rec = env.do(t, http.MethodDelete, "/catalog/products/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/catalog/products/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Product not found"}`, rec.Body.String())
}

func TestCatalog_UpdateUnknownAndEmptyName(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/catalog/popular", "")

	rec := env.do(t, http.MethodPatch, "/catalog/products/404", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, body := range []string{`{"name":""}`, `{"name":"   "}`, `{"description":"\t"}`} {
		rec = env.do(t, http.MethodPatch, "/catalog/products/1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"Missing required fields"}`, rec.Body.String(), body)
	}

	product, ok := env.store.GetByID("1")
	require.True(t, ok)
	assert.Equal(t, "Backpack", product.Name)
	assert.Equal(t, "Fits a laptop", product.Description)
}

func TestCatalog_UpdateTrimsAndDefaultsFields(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/catalog/popular", "")

	rec := env.do(t, http.MethodPatch, "/catalog/products/1", `{"name":"  Daypack ","image":" ","category":""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decode[struct {
		Product domain.Product `json:"product"`
	}](t, rec).Product
	assert.Equal(t, "Daypack", updated.Name)
	assert.Equal(t, domain.PlaceholderImage, updated.Image)
	assert.Equal(t, domain.DefaultCategory, updated.Category)
}

func TestCatalog_ToggleFavorite(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/catalog/popular", "")

	rec := env.do(t, http.MethodPost, "/catalog/products/3/favorite", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[struct {
		Product domain.Product `json:"product"`
	}](t, rec).Product.IsFavorite)

	rec = env.do(t, http.MethodGet, "/catalog/products?show=favorites", "")
	page := decode[pageBody](t, rec)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "3", page.Products[0].ID)

	rec = env.do(t, http.MethodPost, "/catalog/products/3/favorite", "")
	assert.False(t, decode[struct {
		Product domain.Product `json:"product"`
	}](t, rec).Product.IsFavorite)

	rec = env.do(t, http.MethodPost, "/catalog/products/404/favorite", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalog_RefreshKeepsFavoritesAndLocalProducts(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/catalog/popular", "")
	env.do(t, http.MethodPost, "/catalog/products/1/favorite", "")
	rec := env.do(t, http.MethodPost, "/catalog/products", `{"name":"Mine","description":"d","price":"5"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/catalog/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Products []domain.Product `json:"products"`
	}](t, rec)
	require.Len(t, body.Products, 6)
	assert.True(t, body.Products[0].IsFavorite)
	assert.Equal(t, "Mine", body.Products[5].Name)
}

func TestCatalog_RefreshFailure(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/catalog/popular", "")
	env.source.fail(errors.New("connection refused"))

	rec := env.do(t, http.MethodPost, "/catalog/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch products"}`, rec.Body.String())
	assert.Len(t, env.store.Products(), 5)
}

func readEvent(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	var event, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			require.Equal(t, "snapshot", event)
			return data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestCatalog_EventsStreamSnapshots(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)
	t.Cleanup(env.catalog.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/catalog/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	var first snapshotEvent
	require.NoError(t, json.Unmarshal([]byte(readEvent(t, reader)), &first))
	assert.Empty(t, first.Products)

	env.store.Create(ctx, domain.ProductInput{Name: "A", Description: "B", Price: "$1", Category: "other"})

	var second snapshotEvent
	require.NoError(t, json.Unmarshal([]byte(readEvent(t, reader)), &second))
	require.Len(t, second.Products, 1)
	assert.Equal(t, "A", second.Products[0].Name)
}
