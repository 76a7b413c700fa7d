package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"opticpos/internal/cache"
	"opticpos/internal/domain"
	"opticpos/internal/logger"
	"opticpos/internal/sequence"
	"opticpos/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ValidationError is a client input problem. It matches store.ErrInvalidInput
// under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return store.ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type Options struct {
	ItemIDPrefix     string
	BulkItemIDPrefix string
	CatalogCacheTTL  time.Duration
}

type Service struct {
	repo       store.Repository
	catalog    cache.CatalogCache
	sequencer  sequence.Sequencer
	ledger     *StockLedger
	itemPrefix string
	bulkPrefix string
	cacheTTL   time.Duration
	// catalogGen is bumped on every catalog invalidation.
	catalogGen atomic.Uint64
	log        zerolog.Logger
	now        func() time.Time
}

func New(repo store.Repository, catalog cache.CatalogCache, sequencer sequence.Sequencer, opts Options) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if opts.ItemIDPrefix == "" {
		opts.ItemIDPrefix = "NE-"
	}
	if opts.BulkItemIDPrefix == "" {
		opts.BulkItemIDPrefix = "N"
	}
	if opts.CatalogCacheTTL <= 0 {
		opts.CatalogCacheTTL = 30 * time.Second
	}

	s := &Service{
		repo:       repo,
		catalog:    catalog,
		sequencer:  sequencer,
		itemPrefix: opts.ItemIDPrefix,
		bulkPrefix: opts.BulkItemIDPrefix,
		cacheTTL:   opts.CatalogCacheTTL,
		log:        logger.WithComponent("service"),
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.ledger = NewStockLedger(repo, s.invalidateCatalog)
	return s
}

// invalidateCatalog drops the cached item list. A failure only leaves a
// stale listing until the TTL expires, so it is logged and swallowed.
func (s *Service) invalidateCatalog(ctx context.Context) {
	s.catalogGen.Add(1)
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Username
	}
	return ""
}
