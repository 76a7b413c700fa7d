package cache

import (
	"context"
	"time"

	"opticpos/internal/domain"
)

// CatalogCache holds the full item list between writes.
type CatalogCache interface {
	GetItems(ctx context.Context) ([]domain.InventoryItem, bool, error)
	SetItems(ctx context.Context, items []domain.InventoryItem, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) GetItems(_ context.Context) ([]domain.InventoryItem, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) SetItems(_ context.Context, _ []domain.InventoryItem, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context) error {
	return nil
}
