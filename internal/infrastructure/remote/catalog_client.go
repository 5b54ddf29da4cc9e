// Package remote talks to the read-only seed catalog.
package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	jsoniter "github.com/json-iterator/go"
	"github.com/mrops-br/catalog-manager/internal/domain"
	"github.com/mrops-br/catalog-manager/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	userAgent       = "catalog-manager/1.0"
	maxResponseSize = 8 << 20
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ensure CatalogClient implements domain.CatalogSource at compile time.
var _ domain.CatalogSource = (*CatalogClient)(nil)

// CatalogClient fetches seed products over HTTP.
type CatalogClient struct {
	url    string
	http   *retryablehttp.Client
	tracer trace.Tracer
	logger *slog.Logger
}

// NewCatalogClient builds a client for the configured source URL.
func NewCatalogClient(cfg *config.CatalogConfig, tracer trace.Tracer, logger *slog.Logger) *CatalogClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.SourceRetries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = logger
	rc.HTTPClient = &http.Client{
		Timeout:   cfg.SourceTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return &CatalogClient{
		url:    cfg.SourceURL,
		http:   rc,
		tracer: tracer,
		logger: logger,
	}
}

// FetchProducts retrieves the full seed catalog. Any non-2xx status or body
// that does not decode as a product array is an error.
func (c *CatalogClient) FetchProducts(ctx context.Context) ([]domain.SeedRecord, error) {
	ctx, span := c.tracer.Start(ctx, "CatalogClient.FetchProducts")
	defer span.End()

	span.SetAttributes(attribute.String("catalog.source", c.url))

	records, err := c.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch seed catalog")
		return nil, err
	}

	span.SetAttributes(attribute.Int("seed.count", len(records)))
	c.logger.DebugContext(ctx, "Seed catalog fetched",
		slog.Int("count", len(records)),
	)
	span.SetStatus(codes.Ok, "Seed catalog fetched")
	return records, nil
}

func (c *CatalogClient) fetch(ctx context.Context) ([]domain.SeedRecord, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch seed catalog: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch seed catalog: unexpected status %d: %s", resp.StatusCode, string(snippet))
	}

	var records []domain.SeedRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}
	if records == nil {
		return nil, fmt.Errorf("decode seed catalog: expected an array")
	}
	return records, nil
}
