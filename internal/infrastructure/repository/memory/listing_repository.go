package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mrops-br/catalog-manager/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ListingRepository is an in-memory implementation of domain.ListingRepository.
// Every instance starts from the fixed seed listings; nothing survives a restart.
type ListingRepository struct {
	mu       sync.RWMutex
	order    []string
	listings map[string]*domain.Listing
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewListingRepository creates a repository holding the seed listings
func NewListingRepository(tracer trace.Tracer, logger *slog.Logger) *ListingRepository {
	r := &ListingRepository{
		listings: make(map[string]*domain.Listing),
		tracer:   tracer,
		logger:   logger,
	}
	for _, l := range domain.SeedListings() {
		r.order = append(r.order, l.ID)
		r.listings[l.ID] = l
	}
	return r
}

// Create stores a new listing
func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	ctx, span := r.tracer.Start(ctx, "ListingRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("listing.id", listing.ID),
		attribute.String("listing.name", listing.Name),
	)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.listings[listing.ID]; !exists {
		r.order = append(r.order, listing.ID)
	}
	stored := *listing
	r.listings[listing.ID] = &stored

	r.logger.InfoContext(ctx, "Listing created in repository",
		slog.String("listing_id", listing.ID),
		slog.String("listing_name", listing.Name),
	)

	span.SetStatus(codes.Ok, "Listing created successfully")
	return nil
}

// FindByID retrieves a listing by ID
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	ctx, span := r.tracer.Start(ctx, "ListingRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.String("listing.id", id))

	r.mu.RLock()
	defer r.mu.RUnlock()

	listing, exists := r.listings[id]
	if !exists {
		span.RecordError(domain.ErrListingNotFound)
		span.SetStatus(codes.Error, "Listing not found")
		r.logger.WarnContext(ctx, "Listing not found",
			slog.String("listing_id", id),
		)
		return nil, domain.ErrListingNotFound
	}

	span.SetStatus(codes.Ok, "Listing found")
	found := *listing
	return &found, nil
}

// FindAll retrieves all listings in insertion order
func (r *ListingRepository) FindAll(ctx context.Context) ([]*domain.Listing, error) {
	ctx, span := r.tracer.Start(ctx, "ListingRepository.FindAll")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	listings := make([]*domain.Listing, 0, len(r.order))
	for _, id := range r.order {
		l := *r.listings[id]
		listings = append(listings, &l)
	}

	span.SetAttributes(attribute.Int("listing.count", len(listings)))
	r.logger.DebugContext(ctx, "Listings retrieved from repository",
		slog.Int("count", len(listings)),
	)

	span.SetStatus(codes.Ok, "Listings retrieved successfully")
	return listings, nil
}
