package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mrops-br/catalog-manager/internal/app/catalog"
	"github.com/mrops-br/catalog-manager/internal/app/service"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/config"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/http"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/http/handler"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/remote"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/repository/memory"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/storage/bolt"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/telemetry"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "catalog-manager"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var telem *telemetry.Telemetry
	if cfg.OTLP.Enabled {
		telem, err = telemetry.NewTelemetry(ctx, &cfg.OTLP)
	} else {
		telem, err = telemetry.NewNoOpTelemetry(&cfg.OTLP)
	}
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	// Ensure telemetry is shutdown on exit
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	tracer := telem.TracerProvider.Tracer(instrumentationName)
	meter := telem.MeterProvider.Meter(instrumentationName)
	logger := telem.Logger

	logger.Info("Starting Catalog Manager")

	storage, err := bolt.Open(cfg.Catalog.StoragePath, tracer, logger)
	if err != nil {
		logger.Error("Failed to open catalog storage",
			slog.String("path", cfg.Catalog.StoragePath),
			slog.String("error", err.Error()),
		)
		return
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Error("Failed to close catalog storage", slog.String("error", err.Error()))
		}
	}()

	source := remote.NewCatalogClient(&cfg.Catalog, tracer, logger)
	store := catalog.NewStore(source, storage, tracer, meter, logger)
	if err := store.Hydrate(ctx); err != nil {
		// an unreadable record is treated as an empty catalog
		logger.Warn("Starting with an empty catalog",
			slog.String("error", err.Error()),
		)
	}

	listingRepo := memory.NewListingRepository(tracer, logger)
	listingService := service.NewListingService(listingRepo, tracer, meter, logger)

	server := http.NewServer(
		&cfg.Server,
		handler.NewListingHandler(listingService, logger),
		handler.NewCatalogHandler(store, &cfg.Catalog, logger),
		logger,
		telem,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", slog.String("error", err.Error()))
	}

	logger.Info("Server stopped")
}
