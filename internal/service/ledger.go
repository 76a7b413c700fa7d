package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"opticpos/internal/domain"
	"opticpos/internal/logger"
	"opticpos/internal/metrics"
	"opticpos/internal/store"
)

type StockDecrementer interface {
	DecrementStock(ctx context.Context, id string, qty int) error
}

// StockLedger applies sale decrements. Each entry is its own atomic
// decrement with no floor check and no cross-entry transaction. Calls are
// not idempotent: replaying a request subtracts again.
type StockLedger struct {
	repo     StockDecrementer
	onChange func(ctx context.Context)
	log      zerolog.Logger
}

func NewStockLedger(repo StockDecrementer, onChange func(ctx context.Context)) *StockLedger {
	if onChange == nil {
		onChange = func(context.Context) {}
	}
	return &StockLedger{
		repo:     repo,
		onChange: onChange,
		log:      logger.WithComponent("stock-ledger"),
	}
}

// Apply validates every entry up front, then decrements in order. Unknown
// item ids are skipped and reported. A storage failure aborts the call but
// leaves earlier decrements in place.
func (l *StockLedger) Apply(ctx context.Context, entries []domain.StockDecrement) (domain.ReduceStockResponse, error) {
	resp := domain.ReduceStockResponse{Missing: []string{}}
	if len(entries) == 0 {
		return resp, invalid("items", "at least one entry is required")
	}
	for i := range entries {
		entries[i].ItemID = strings.TrimSpace(entries[i].ItemID)
		if entries[i].ItemID == "" {
			return resp, invalid(fmt.Sprintf("items[%d].itemId", i), "is required")
		}
		if entries[i].Quantity < 1 {
			return resp, invalid(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
	}

	defer func() {
		if resp.Applied > 0 {
			l.onChange(ctx)
		}
	}()

	units := 0
	for _, entry := range entries {
		err := l.repo.DecrementStock(ctx, entry.ItemID, entry.Quantity)
		if errors.Is(err, store.ErrNotFound) {
			resp.Missing = append(resp.Missing, entry.ItemID)
			continue
		}
		if err != nil {
			l.log.Error().Err(err).Str("item_id", entry.ItemID).Int("applied", resp.Applied).Msg("stock decrement aborted")
			return resp, fmt.Errorf("decrement %s: %w", entry.ItemID, err)
		}
		resp.Applied++
		units += entry.Quantity
	}

	metrics.StockDecrementUnitsTotal.Add(float64(units))
	if len(resp.Missing) > 0 {
		l.log.Warn().Strs("missing", resp.Missing).Msg("stock decrement skipped unknown items")
	}
	return resp, nil
}

// ReduceStock is the client-triggered second call after an invoice is saved.
func (s *Service) ReduceStock(ctx context.Context, req domain.ReduceStockRequest) (domain.ReduceStockResponse, error) {
	return s.ledger.Apply(ctx, req.Items)
}
