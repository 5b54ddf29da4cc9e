// Package catalog holds the product state container every catalog view reads
// from and writes to, plus the query helpers the views use to slice it.
//
// The store keeps the ordered product list for the running session. It is
// hydrated from durable storage at startup, lazily seeded from the remote
// catalog when empty, and persisted after every mutation.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mrops-br/catalog-manager/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	resultSuccess  = "success"
	resultNotFound = "not_found"
	resultFailure  = "failure"
)

// Snapshot is a point-in-time copy of the store state.
type Snapshot struct {
	Products      []domain.Product
	IsLoading     bool
	LastError     error
	LastRefreshed time.Time
}

// Store is the single source of truth for catalog products.
type Store struct {
	mu            sync.RWMutex
	products      []domain.Product
	inFlight      int
	lastError     error
	lastRefreshed time.Time
	lastID        int64

	// saveMu orders persistence so a slow save never overwrites a newer one.
	saveMu sync.Mutex

	subMu   sync.Mutex
	subs    map[uint64]func(Snapshot)
	nextSub uint64

	source  domain.CatalogSource
	storage domain.CatalogStorage
	now     func() time.Time

	tracer          trace.Tracer
	logger          *slog.Logger
	operations      metric.Int64Counter
	createdCounter  metric.Int64Counter
	refreshDuration metric.Float64Histogram
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for id generation.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty store backed by the given source and storage.
// A nil storage keeps the store purely in memory.
func NewStore(
	source domain.CatalogSource,
	storage domain.CatalogStorage,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
	opts ...Option,
) *Store {
	operations, _ := meter.Int64Counter(
		"catalog.operations",
		metric.WithDescription("Total number of catalog store operations"),
	)

	createdCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created in the catalog"),
	)

	refreshDuration, _ := meter.Float64Histogram(
		"catalog.refresh.duration",
		metric.WithDescription("Duration of remote catalog refreshes"),
		metric.WithUnit("s"),
	)

	s := &Store{
		subs:            make(map[uint64]func(Snapshot)),
		source:          source,
		storage:         storage,
		now:             time.Now,
		tracer:          tracer,
		logger:          logger.With(slog.String("catalog.session", uuid.NewString())),
		operations:      operations,
		createdCounter:  createdCounter,
		refreshDuration: refreshDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the persisted product list. It does not write back.
func (s *Store) Hydrate(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "CatalogStore.Hydrate")
	defer span.End()

	if s.storage == nil {
		return nil
	}

	products, err := s.storage.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load catalog")
		return fmt.Errorf("load catalog: %w", err)
	}

	s.mu.Lock()
	s.products = s.normalize(ctx, products)
	s.lastID = maxLocalID(s.products)
	count := len(s.products)
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("product.count", count))
	s.logger.InfoContext(ctx, "Catalog hydrated from storage",
		slog.Int("count", count),
	)

	s.publish(s.Snapshot())
	span.SetStatus(codes.Ok, "Catalog hydrated")
	return nil
}

// Refresh re-fetches the seed catalog and merges it with the local products.
// Failures are logged and recorded in the snapshot; they are never returned.
func (s *Store) Refresh(ctx context.Context) {
	_ = s.refresh(ctx)
}

// Reload is Refresh for callers that need the outcome of their own fetch.
// LastError may meanwhile describe an overlapping refresh.
func (s *Store) Reload(ctx context.Context) error {
	return s.refresh(ctx)
}

func (s *Store) refresh(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "CatalogStore.Refresh")
	defer span.End()

	start := time.Now()

	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
	s.publish(s.Snapshot())

	s.logger.InfoContext(ctx, "Refreshing catalog from remote source")

	records, err := s.source.FetchProducts(ctx)
	s.refreshDuration.Record(ctx, time.Since(start).Seconds())

	s.mu.Lock()
	s.inFlight--
	s.lastRefreshed = s.now()
	if err != nil {
		s.lastError = err
		s.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch products")
		s.logger.ErrorContext(ctx, "Failed to fetch products",
			slog.String("error", err.Error()),
		)
		s.count(ctx, "refresh", resultFailure)
		s.publish(s.Snapshot())
		return fmt.Errorf("fetch seed catalog: %w", err)
	}

	s.products = merge(s.products, records)
	s.lastError = nil
	count := len(s.products)
	s.mu.Unlock()

	span.SetAttributes(
		attribute.Int("seed.count", len(records)),
		attribute.Int("product.count", count),
	)
	s.logger.InfoContext(ctx, "Catalog refreshed",
		slog.Int("seed_count", len(records)),
		slog.Int("count", count),
	)

	s.commit(ctx, "refresh", resultSuccess)
	span.SetStatus(codes.Ok, "Catalog refreshed")
	return nil
}

// EnsureLoaded refreshes the catalog when it holds no products and no
// refresh is already running.
func (s *Store) EnsureLoaded(ctx context.Context) {
	s.mu.RLock()
	empty := len(s.products) == 0 && s.inFlight == 0
	s.mu.RUnlock()

	if empty {
		s.Refresh(ctx)
	}
}

// ReplaceAll overwrites the product list.
func (s *Store) ReplaceAll(ctx context.Context, products []domain.Product) {
	ctx, span := s.tracer.Start(ctx, "CatalogStore.ReplaceAll")
	defer span.End()
	defer s.commit(ctx, "replace_all", resultSuccess)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = s.normalize(ctx, products)
	if id := maxLocalID(s.products); id > s.lastID {
		s.lastID = id
	}
	span.SetAttributes(attribute.Int("product.count", len(s.products)))
}

// Create appends a new local product and returns it.
func (s *Store) Create(ctx context.Context, input domain.ProductInput) domain.Product {
	ctx, span := s.tracer.Start(ctx, "CatalogStore.Create")
	defer span.End()
	defer s.commit(ctx, "create", resultSuccess)

	s.mu.Lock()
	defer s.mu.Unlock()

	product := domain.Product{
		ID:          s.nextID(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Image:       input.Image,
		Category:    input.Category,
		IsFavorite:  false,
		Origin:      domain.OriginLocal,
	}
	s.products = append(s.products, product)

	span.SetAttributes(
		attribute.String("product.id", product.ID),
		attribute.String("product.name", product.Name),
	)
	s.createdCounter.Add(ctx, 1)
	s.logger.InfoContext(ctx, "Product created",
		slog.String("product_id", product.ID),
		slog.String("product_name", product.Name),
	)
	return product
}

// Remove deletes the product with the given id. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id string) {
	ctx, span := s.tracer.Start(ctx, "CatalogStore.Remove")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	result := resultSuccess
	defer func() { s.commit(ctx, "remove", result) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		result = resultNotFound
		return
	}
	s.products = append(s.products[:i:i], s.products[i+1:]...)

	s.logger.InfoContext(ctx, "Product removed",
		slog.String("product_id", id),
	)
}

// Update merges patch into the product with the given id. Unknown ids are
// ignored.
func (s *Store) Update(ctx context.Context, id string, patch domain.ProductPatch) {
	ctx, span := s.tracer.Start(ctx, "CatalogStore.Update")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	result := resultSuccess
	defer func() { s.commit(ctx, "update", result) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		result = resultNotFound
		return
	}
	s.products[i] = patch.Apply(s.products[i])

	s.logger.InfoContext(ctx, "Product updated",
		slog.String("product_id", id),
	)
}

// ToggleFavorite flips the favorite flag of the product with the given id.
func (s *Store) ToggleFavorite(ctx context.Context, id string) {
	ctx, span := s.tracer.Start(ctx, "CatalogStore.ToggleFavorite")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	result := resultSuccess
	defer func() { s.commit(ctx, "toggle_favorite", result) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		result = resultNotFound
		return
	}
	s.products[i].IsFavorite = !s.products[i].IsFavorite
	span.SetAttributes(attribute.Bool("product.favorite", s.products[i].IsFavorite))
}

// GetByID returns the product with the given id.
func (s *Store) GetByID(id string) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.products[i], true
	}
	return domain.Product{}, false
}

// Products returns a copy of the current product list.
func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Products:      cloneProducts(s.products),
		IsLoading:     s.inFlight > 0,
		LastError:     s.lastError,
		LastRefreshed: s.lastRefreshed,
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// Callbacks run on the goroutine that changed the state and must not block.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// commit persists the current list and notifies subscribers. Mutators defer
// it so it runs once their lock is released, whatever path they return by.
func (s *Store) commit(ctx context.Context, op, result string) {
	s.saveMu.Lock()
	snap := s.Snapshot()
	if s.storage != nil {
		if err := s.storage.Save(ctx, snap.Products); err != nil {
			trace.SpanFromContext(ctx).RecordError(err)
			s.logger.ErrorContext(ctx, "Failed to persist catalog",
				slog.String("operation", op),
				slog.String("error", err.Error()),
			)
		}
	}
	s.saveMu.Unlock()

	s.count(ctx, op, result)
	s.publish(snap)
}

func (s *Store) count(ctx context.Context, op, result string) {
	s.operations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("result", result),
		),
	)
}

func (s *Store) publish(snap Snapshot) {
	s.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// nextID returns a millisecond timestamp id above every id issued so far and
// outside the seed id space. Caller must hold s.mu.
func (s *Store) nextID() string {
	id := s.now().UnixMilli()
	if id <= domain.SeedIDCeiling {
		id = domain.SeedIDCeiling + 1
	}
	if id <= s.lastID {
		id = s.lastID + 1
	}
	for s.indexOf(strconv.FormatInt(id, 10)) >= 0 {
		id++
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// indexOf returns the position of id or -1. Caller must hold s.mu.
func (s *Store) indexOf(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

// normalize tags products missing an origin and drops repeated ids, keeping
// the first occurrence.
func (s *Store) normalize(ctx context.Context, products []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		if _, dup := seen[p.ID]; dup {
			s.logger.WarnContext(ctx, "Dropping product with duplicate id",
				slog.String("product_id", p.ID),
			)
			continue
		}
		seen[p.ID] = struct{}{}
		p.Origin = p.ResolvedOrigin()
		out = append(out, p)
	}
	return out
}

// merge rebuilds the list from fresh seed records, carrying favorite flags
// over by id and appending local products in their previous order.
func merge(current []domain.Product, records []domain.SeedRecord) []domain.Product {
	favorites := make(map[string]bool, len(current))
	local := make([]domain.Product, 0)
	localIDs := make(map[string]struct{})
	for _, p := range current {
		favorites[p.ID] = p.IsFavorite
		if p.IsLocal() {
			local = append(local, p)
			localIDs[p.ID] = struct{}{}
		}
	}

	merged := make([]domain.Product, 0, len(records)+len(local))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		id := strconv.FormatInt(r.ID, 10)
		if _, dup := seen[id]; dup {
			continue
		}
		if _, taken := localIDs[id]; taken {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, domain.Product{
			ID:          id,
			Name:        r.Title,
			Description: r.Description,
			Price:       domain.FormatPrice(r.Price),
			Image:       r.Image,
			Category:    r.Category,
			IsFavorite:  favorites[id],
			Origin:      domain.OriginSeed,
		})
	}
	return append(merged, local...)
}

func maxLocalID(products []domain.Product) int64 {
	var highest int64
	for _, p := range products {
		if !p.IsLocal() {
			continue
		}
		if n, err := strconv.ParseInt(p.ID, 10, 64); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

func cloneProducts(products []domain.Product) []domain.Product {
	if len(products) == 0 {
		return nil
	}
	dup := make([]domain.Product, len(products))
	copy(dup, products)
	return dup
}
