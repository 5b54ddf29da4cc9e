package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/config"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/http/handler"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/http/middleware"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const meterName = "catalog-manager"

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	http      *http.Server
	config    *config.ServerConfig
	listings  *handler.ListingHandler
	catalog   *handler.CatalogHandler
	logger    *slog.Logger
	telemetry *telemetry.Telemetry
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.ServerConfig,
	listings *handler.ListingHandler,
	catalog *handler.CatalogHandler,
	logger *slog.Logger,
	telem *telemetry.Telemetry,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		listings:  listings,
		catalog:   catalog,
		logger:    logger,
		telemetry: telem,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.http = &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler: s.Handler(),
	}
	s.http.RegisterOnShutdown(catalog.Close)

	return s
}

// setupMiddleware configures the middleware chain
func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	// Structured JSON logging middleware (replaces chimiddleware.Logger)
	s.router.Use(middleware.StructuredLogger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// Add HTTP route to context so all logs include it automatically
	s.router.Use(middleware.HTTPRouteContext())
	s.router.Use(middleware.RouteSpanAttributes())

	meter := s.telemetry.MeterProvider.Meter(meterName)
	s.router.Use(middleware.ActiveRequestsMiddleware(meter))
	s.router.Use(middleware.DurationMillisecondsMiddleware(meter))
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Route("/api/products", func(r chi.Router) {
		r.Get("/", s.listings.ListListings)
		r.Post("/", s.listings.CreateListing)
		r.Get("/{id}", s.listings.GetListing)
		r.Patch("/{id}", s.listings.PatchListing)
		r.Delete("/{id}", s.listings.DeleteListing)
	})

	s.router.Route("/catalog", func(r chi.Router) {
		r.Get("/popular", s.catalog.Popular)
		r.Post("/refresh", s.catalog.Refresh)
		r.Get("/events", s.catalog.Events)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.catalog.ListProducts)
			r.Post("/", s.catalog.CreateProduct)
			r.Get("/{id}", s.catalog.GetProduct)
			r.Patch("/{id}", s.catalog.UpdateProduct)
			r.Delete("/{id}", s.catalog.DeleteProduct)
			r.Post("/{id}/favorite", s.catalog.ToggleFavorite)
		})
	})

	// Health check endpoint
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint - exposes OpenTelemetry metrics
	s.router.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.telemetry.Registry, promhttp.HandlerOpts{}))
}

// Handler returns the router wrapped with otelhttp for automatic HTTP metrics
// and tracing (http.server.request.duration, http.server.request.body.size, ...)
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "http-server",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
		otelhttp.WithTracerProvider(s.telemetry.TracerProvider),
		otelhttp.WithMeterProvider(s.telemetry.MeterProvider),
		otelhttp.WithMetricAttributesFn(func(r *http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{
				attribute.String("http.route", middleware.RoutePattern(r)),
			}
		}),
	)
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		slog.String("address", s.http.Addr),
	)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
