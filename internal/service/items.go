package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"opticpos/internal/domain"
	"opticpos/internal/idalloc"
	"opticpos/internal/metrics"
	"opticpos/internal/pricing"
	"opticpos/internal/store"
)

func (s *Service) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	cached, ok, err := s.catalog.GetItems(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("catalog cache read failed")
	}
	if ok {
		return cached, nil
	}

	gen := s.catalogGen.Load()
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	// A mutation that lands during the read makes this listing stale; it is
	// returned but not cached, and a write that raced the mutation is dropped.
	if s.catalogGen.Load() != gen {
		return items, nil
	}
	if err := s.catalog.SetItems(ctx, items, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("catalog cache write failed")
	}
	if s.catalogGen.Load() != gen {
		s.invalidateCatalog(ctx)
	}
	return items, nil
}

func (s *Service) GetItem(ctx context.Context, id string) (domain.InventoryItem, error) {
	item, err := s.repo.GetItem(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return *item, nil
}

// CreateItem assigns the next single-add id. Two concurrent creates may
// compute the same id; the loser gets store.ErrDuplicateKey.
func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.InventoryItem, error) {
	item, err := s.newItem(req)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	ids, err := s.repo.ListItemIDs(ctx)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("list item ids: %w", err)
	}
	item.ID = idalloc.Next(ids, s.itemPrefix)

	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	metrics.ItemsCreatedTotal.WithLabelValues("single").Inc()
	s.invalidateCatalog(ctx)
	s.log.Info().Str("item_id", created.ID).Str("item_number", created.ItemNumber).Str("actor", actorName(ctx)).Msg("item created")
	return *created, nil
}

// BulkCreateItems reserves one contiguous id block for the whole batch.
// Rows that fail validation or collide on a unique key are skipped and keep
// their reserved id unused. Rows inserted before a hard failure stay.
func (s *Service) BulkCreateItems(ctx context.Context, req domain.BulkItemRequest) (domain.BulkItemResponse, error) {
	if len(req.Items) == 0 {
		return domain.BulkItemResponse{}, invalid("items", "at least one item is required")
	}

	ids, err := s.repo.ListItemIDs(ctx)
	if err != nil {
		return domain.BulkItemResponse{}, fmt.Errorf("list item ids: %w", err)
	}
	block := idalloc.Block(ids, s.bulkPrefix, len(req.Items))

	result := domain.BulkItemResponse{
		Inserted: make([]domain.InventoryItem, 0, len(req.Items)),
		Skipped:  []domain.BulkSkip{},
	}
	defer func() {
		if len(result.Inserted) > 0 {
			s.invalidateCatalog(ctx)
		}
	}()

	for i, row := range req.Items {
		item, err := s.newItem(row)
		if err != nil {
			result.Skipped = append(result.Skipped, domain.BulkSkip{Index: i, ItemNumber: strings.TrimSpace(row.ItemNumber), Reason: err.Error()})
			continue
		}
		item.ID = block[i]

		created, err := s.repo.CreateItem(ctx, item)
		if errors.Is(err, store.ErrDuplicateKey) {
			result.Skipped = append(result.Skipped, domain.BulkSkip{Index: i, ItemNumber: item.ItemNumber, Reason: "duplicate item"})
			continue
		}
		if err != nil {
			return result, fmt.Errorf("bulk insert row %d: %w", i, err)
		}
		result.Inserted = append(result.Inserted, *created)
	}

	metrics.ItemsCreatedTotal.WithLabelValues("bulk").Add(float64(len(result.Inserted)))
	s.log.Info().Int("inserted", len(result.Inserted)).Int("skipped", len(result.Skipped)).Str("actor", actorName(ctx)).Msg("bulk items created")
	return result, nil
}

func (s *Service) UpdateItem(ctx context.Context, id string, req domain.ItemUpdateRequest) (domain.InventoryItem, error) {
	existing, err := s.repo.GetItem(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.InventoryItem{}, err
	}

	updated := *existing
	if req.ItemNumber != nil {
		updated.ItemNumber = strings.TrimSpace(*req.ItemNumber)
	}
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		updated.Type = strings.TrimSpace(*req.Type)
	}
	if req.RetailPrice != nil {
		updated.RetailPrice = *req.RetailPrice
	}
	if req.SalePrice != nil {
		updated.SalePrice = *req.SalePrice
	}
	if req.MRP != nil {
		updated.MRP = *req.MRP
	}
	if req.HSNCode != nil {
		updated.HSNCode = strings.TrimSpace(*req.HSNCode)
	}
	if req.GSTPercent != nil {
		updated.GSTPercent = *req.GSTPercent
		updated.CGSTPercent, updated.SGSTPercent = pricing.SplitGST(updated.GSTPercent)
	}
	if req.Stock != nil {
		updated.Stock = *req.Stock
	}
	if err := validateItem(updated); err != nil {
		return domain.InventoryItem{}, err
	}
	updated.UpdatedAt = s.now()

	saved, err := s.repo.UpdateItem(ctx, updated)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	s.invalidateCatalog(ctx)
	return *saved, nil
}

func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if err := s.repo.DeleteItem(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	s.log.Info().Str("item_id", id).Str("actor", actorName(ctx)).Msg("item deleted")
	return nil
}

func (s *Service) DeleteAllItems(ctx context.Context) (int, error) {
	removed, err := s.repo.DeleteAllItems(ctx)
	if err != nil {
		return 0, err
	}
	s.invalidateCatalog(ctx)
	s.log.Warn().Int("removed", removed).Str("actor", actorName(ctx)).Msg("catalog wiped")
	return removed, nil
}

func (s *Service) newItem(req domain.ItemCreateRequest) (domain.InventoryItem, error) {
	now := s.now()
	item := domain.InventoryItem{
		ItemNumber:  strings.TrimSpace(req.ItemNumber),
		Name:        strings.TrimSpace(req.Name),
		Type:        strings.TrimSpace(req.Type),
		RetailPrice: req.RetailPrice,
		SalePrice:   req.SalePrice,
		MRP:         req.MRP,
		HSNCode:     strings.TrimSpace(req.HSNCode),
		GSTPercent:  req.GSTPercent,
		Stock:       req.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	item.CGSTPercent, item.SGSTPercent = pricing.SplitGST(item.GSTPercent)
	if err := validateItem(item); err != nil {
		return domain.InventoryItem{}, err
	}
	return item, nil
}

func validateItem(item domain.InventoryItem) error {
	if item.Name == "" {
		return invalid("name", "is required")
	}
	prices := []struct {
		field string
		value float64
	}{
		{"retailPrice", item.RetailPrice},
		{"salePrice", item.SalePrice},
		{"mrp", item.MRP},
	}
	for _, p := range prices {
		if p.value < 0 || math.IsNaN(p.value) || math.IsInf(p.value, 0) {
			return invalid(p.field, "must be a non-negative number")
		}
	}
	if item.GSTPercent < 0 || item.GSTPercent > 100 || math.IsNaN(item.GSTPercent) {
		return invalid("gstPercent", "must be between 0 and 100")
	}
	return nil
}
