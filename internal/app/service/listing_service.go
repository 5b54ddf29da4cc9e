package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/mrops-br/catalog-manager/internal/app/dto"
	"github.com/mrops-br/catalog-manager/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ListingService handles the /api/products use cases. Patch and delete are
// acknowledged but never applied to the repository.
type ListingService struct {
	repo              domain.ListingRepository
	tracer            trace.Tracer
	logger            *slog.Logger
	listingOperations metric.Int64Counter
	now               func() time.Time
}

// NewListingService creates a new listing service
func NewListingService(
	repo domain.ListingRepository,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *ListingService {
	listingOperations, _ := meter.Int64Counter(
		"listings.operations",
		metric.WithDescription("Total number of listing API operations"),
	)

	return &ListingService{
		repo:              repo,
		tracer:            tracer,
		logger:            logger,
		listingOperations: listingOperations,
		now:               time.Now,
	}
}

// CreateListing validates and stores a new listing with a timestamp id
func (s *ListingService) CreateListing(ctx context.Context, req *dto.CreateListingRequest) (*dto.ListingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ListingService.CreateListing")
	defer span.End()

	span.SetAttributes(attribute.String("listing.name", req.Name))

	listing := &domain.Listing{
		ID:          strconv.FormatInt(s.now().UnixMilli(), 10),
		Name:        req.Name,
		Description: req.Description,
		Price:       string(req.Price),
	}
	if err := listing.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Validation failed")
		s.logger.WarnContext(ctx, "Rejected listing",
			slog.String("error", err.Error()),
		)
		s.record(ctx, "create", "failure")
		return nil, err
	}

	span.SetAttributes(attribute.String("listing.id", listing.ID))

	if err := s.repo.Create(ctx, listing); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store listing")
		s.logger.ErrorContext(ctx, "Failed to store listing",
			slog.String("error", err.Error()),
		)
		s.record(ctx, "create", "failure")
		return nil, err
	}

	s.record(ctx, "create", "success")
	s.logger.InfoContext(ctx, "Listing created successfully",
		slog.String("listing_id", listing.ID),
	)

	span.SetStatus(codes.Ok, "Listing created successfully")
	return dto.ToListingResponse(listing), nil
}

// GetListingByID retrieves a listing by ID
func (s *ListingService) GetListingByID(ctx context.Context, id string) (*dto.ListingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ListingService.GetListingByID")
	defer span.End()

	span.SetAttributes(attribute.String("listing.id", id))

	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Listing not found")
		s.record(ctx, "read", "not_found")
		return nil, err
	}

	s.record(ctx, "read", "success")
	span.SetStatus(codes.Ok, "Listing retrieved successfully")
	return dto.ToListingResponse(listing), nil
}

// ListListings retrieves all listings
func (s *ListingService) ListListings(ctx context.Context) ([]*dto.ListingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ListingService.ListListings")
	defer span.End()

	listings, err := s.repo.FindAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to retrieve listings")
		s.logger.ErrorContext(ctx, "Failed to list listings",
			slog.String("error", err.Error()),
		)
		s.record(ctx, "list", "failure")
		return nil, err
	}

	span.SetAttributes(attribute.Int("listing.count", len(listings)))
	s.record(ctx, "list", "success")

	span.SetStatus(codes.Ok, "Listings listed successfully")
	return dto.ToListingResponseList(listings), nil
}

// PatchListing echoes the patch merged with id. The stored listing is not changed.
func (s *ListingService) PatchListing(ctx context.Context, id string, patch map[string]any) map[string]any {
	ctx, span := s.tracer.Start(ctx, "ListingService.PatchListing")
	defer span.End()

	span.SetAttributes(
		attribute.String("listing.id", id),
		attribute.Int("patch.fields", len(patch)),
	)

	// fields from the body win, including an explicit id
	merged := map[string]any{"id": id}
	for k, v := range patch {
		merged[k] = v
	}

	s.record(ctx, "patch", "success")
	s.logger.InfoContext(ctx, "Listing patch acknowledged",
		slog.String("listing_id", id),
	)
	return merged
}

// DeleteListing acknowledges a delete. The stored listing is not removed.
func (s *ListingService) DeleteListing(ctx context.Context, id string) {
	ctx, span := s.tracer.Start(ctx, "ListingService.DeleteListing")
	defer span.End()

	span.SetAttributes(attribute.String("listing.id", id))

	s.record(ctx, "delete", "success")
	s.logger.InfoContext(ctx, "Listing delete acknowledged",
		slog.String("listing_id", id),
	)
}

func (s *ListingService) record(ctx context.Context, operation, result string) {
	s.listingOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}
