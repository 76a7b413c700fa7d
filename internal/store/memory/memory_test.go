package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"opticpos/internal/domain"
	"opticpos/internal/store"
)

func TestDecrementStockHasNoFloor(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateItem(ctx, domain.InventoryItem{ID: "NE-1", Name: "Frame", Stock: 1}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	if err := s.DecrementStock(ctx, "NE-1", 3); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	item, err := s.GetItem(ctx, "NE-1")
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Stock != -2 {
		t.Fatalf("expected stock -2, got %d", item.Stock)
	}

	if err := s.DecrementStock(ctx, "NE-404", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateItemRejectsDuplicates(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateItem(ctx, domain.InventoryItem{ID: "NE-1", ItemNumber: "FR-1", Name: "Frame"}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	if _, err := s.CreateItem(ctx, domain.InventoryItem{ID: "NE-1", Name: "Other"}); !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
	if _, err := s.CreateItem(ctx, domain.InventoryItem{ID: "NE-2", ItemNumber: "FR-1", Name: "Other"}); !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected duplicate item number error, got %v", err)
	}
	if _, err := s.CreateItem(ctx, domain.InventoryItem{ID: "NE-3", Name: "No SKU"}); err != nil {
		t.Fatalf("empty item numbers should not collide: %v", err)
	}
	if _, err := s.CreateItem(ctx, domain.InventoryItem{ID: "NE-4", Name: "No SKU either"}); err != nil {
		t.Fatalf("empty item numbers should not collide: %v", err)
	}
}

func TestInvoiceNumberIsUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()
	if _, err := s.CreateInvoice(ctx, domain.Invoice{ID: "a", InvoiceNo: "INV-0001", CreatedAt: now}); err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if _, err := s.CreateInvoice(ctx, domain.Invoice{ID: "b", InvoiceNo: "INV-0001", CreatedAt: now}); !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected duplicate invoice number, got %v", err)
	}
	if taken, err := s.InvoiceNumberExists(ctx, "INV-0001"); err != nil || !taken {
		t.Fatalf("expected INV-0001 to be taken, got %t err=%v", taken, err)
	}
	if taken, _ := s.InvoiceNumberExists(ctx, "INV-0002"); taken {
		t.Fatalf("expected INV-0002 to be free")
	}
}

func TestListInvoicesFiltersAndSortsNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	fixtures := []domain.Invoice{
		{ID: "a", InvoiceNo: "INV-0001", OrderStatus: domain.NewOrderStatus(), CreatedAt: base},
		{ID: "b", InvoiceNo: "INV-0002", OrderStatus: domain.OrderStatus{Ordered: true, Delivered: true}, CreatedAt: base.Add(time.Hour)},
		{ID: "c", InvoiceNo: "INV-0003", OrderStatus: domain.NewOrderStatus(), CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, inv := range fixtures {
		if _, err := s.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("create invoice: %v", err)
		}
	}

	ordered, _ := s.ListInvoices(ctx, domain.StateOrdered)
	if len(ordered) != 2 || ordered[0].ID != "c" || ordered[1].ID != "a" {
		t.Fatalf("unexpected ordered list: %+v", ordered)
	}
	delivered, _ := s.ListInvoices(ctx, domain.StateDelivered)
	if len(delivered) != 1 || delivered[0].ID != "b" {
		t.Fatalf("unexpected delivered list: %+v", delivered)
	}
	all, _ := s.ListInvoices(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 invoices, got %d", len(all))
	}
}

func TestCountersAreMonotonic(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.SeedCounter(ctx, "invoice", 4); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.SeedCounter(ctx, "invoice", 2); err != nil {
		t.Fatalf("seed: %v", err)
	}
	next, _ := s.NextCounter(ctx, "invoice")
	if next != 5 {
		t.Fatalf("expected 5, got %d", next)
	}
	current, _ := s.CurrentCounter(ctx, "invoice")
	if current != 5 {
		t.Fatalf("expected current 5, got %d", current)
	}
}

func TestSeededCatalogSplitsGST(t *testing.T) {
	s := NewSeeded()
	items, err := s.ListItems(context.Background())
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) == 0 || items[0].ID != "NE-1" {
		t.Fatalf("expected seeded items ordered by creation, got %+v", items)
	}
	for _, item := range items {
		if item.CGSTPercent+item.SGSTPercent != item.GSTPercent {
			t.Fatalf("item %s gst split mismatch: %+v", item.ID, item)
		}
	}
}
