// Package bolt persists the catalog product list in a bbolt file.
//
// The whole list lives under one key so a reload reconstructs exactly the
// state that was last saved.
package bolt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mrops-br/catalog-manager/internal/domain"
	bbolt "go.etcd.io/bbolt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	bucketName = "catalog"
	// RecordKey names the single record holding the product list.
	RecordKey     = "products-storage"
	recordVersion = 0
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ensure CatalogStorage implements domain.CatalogStorage at compile time.
var _ domain.CatalogStorage = (*CatalogStorage)(nil)

type record struct {
	State   recordState `json:"state"`
	Version int         `json:"version"`
}

type recordState struct {
	Products []domain.Product `json:"products"`
}

// CatalogStorage stores the catalog in a bbolt database.
type CatalogStorage struct {
	db     *bbolt.DB
	tracer trace.Tracer
	logger *slog.Logger
}

// Open opens (or creates) the database file at path.
func Open(path string, tracer trace.Tracer, logger *slog.Logger) (*CatalogStorage, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open catalog db %q: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog bucket: %w", err)
	}

	return &CatalogStorage{db: db, tracer: tracer, logger: logger}, nil
}

// Load returns the persisted products, or an empty list when nothing was saved.
func (s *CatalogStorage) Load(ctx context.Context) ([]domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogStorage.Load")
	defer span.End()

	var rec record
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(bucketName)).Get([]byte(RecordKey))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load catalog record")
		return nil, fmt.Errorf("decode %s: %w", RecordKey, err)
	}

	span.SetAttributes(
		attribute.Bool("record.found", found),
		attribute.Int("product.count", len(rec.State.Products)),
	)
	s.logger.DebugContext(ctx, "Catalog record loaded",
		slog.Bool("found", found),
		slog.Int("count", len(rec.State.Products)),
	)

	span.SetStatus(codes.Ok, "Catalog record loaded")
	return rec.State.Products, nil
}

// Save replaces the persisted record with products.
func (s *CatalogStorage) Save(ctx context.Context, products []domain.Product) error {
	ctx, span := s.tracer.Start(ctx, "CatalogStorage.Save")
	defer span.End()

	if products == nil {
		products = []domain.Product{}
	}
	raw, err := json.Marshal(record{
		State:   recordState{Products: products},
		Version: recordVersion,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to encode catalog record")
		return fmt.Errorf("encode %s: %w", RecordKey, err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(RecordKey), raw)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to write catalog record")
		return fmt.Errorf("write %s: %w", RecordKey, err)
	}

	span.SetAttributes(
		attribute.Int("product.count", len(products)),
		attribute.Int("record.bytes", len(raw)),
	)
	s.logger.DebugContext(ctx, "Catalog record saved",
		slog.Int("count", len(products)),
	)
	span.SetStatus(codes.Ok, "Catalog record saved")
	return nil
}

// Close releases the database file.
func (s *CatalogStorage) Close() error {
	return s.db.Close()
}
