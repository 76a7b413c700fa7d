// Package sequence issues invoice numbers.
package sequence

import (
	"context"
	"fmt"
	"strings"
)

const (
	ModeCount  = "count"
	ModeAtomic = "atomic"

	InvoiceCounterName = "invoice"
)

// Sequencer hands out display invoice numbers. Peek previews the next value
// without consuming it; Allocate is used when an invoice is persisted.
type Sequencer interface {
	Peek(ctx context.Context) (string, error)
	Allocate(ctx context.Context) (string, error)
}

type InvoiceCounter interface {
	CountInvoices(ctx context.Context) (int, error)
}

// InvoiceNumberChecker reports whether a number is held by a stored invoice.
type InvoiceNumberChecker interface {
	InvoiceNumberExists(ctx context.Context, invoiceNo string) (bool, error)
}

// Counter is a monotonically increasing named counter.
type Counter interface {
	Next(ctx context.Context) (int64, error)
	Current(ctx context.Context) (int64, error)
	Seed(ctx context.Context, floor int64) error
}

func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}

// CountSequencer derives the number from the invoice count. After a delete
// the count can point at a number a remaining invoice still holds, so when
// the counter source can answer InvoiceNumberExists the candidate steps
// forward to the first free number. Two concurrent callers can still receive
// the same number; the store's unique constraint rejects the second insert.
type CountSequencer struct {
	invoices InvoiceCounter
	prefix   string
}

func NewCountSequencer(invoices InvoiceCounter, prefix string) *CountSequencer {
	return &CountSequencer{invoices: invoices, prefix: prefix}
}

func (s *CountSequencer) Peek(ctx context.Context) (string, error) {
	count, err := s.invoices.CountInvoices(ctx)
	if err != nil {
		return "", fmt.Errorf("count invoices: %w", err)
	}
	n := int64(count) + 1
	checker, ok := s.invoices.(InvoiceNumberChecker)
	if !ok {
		return Format(s.prefix, n), nil
	}
	// At most count numbers can be taken, so the walk is bounded.
	for limit := n + int64(count); n <= limit; n++ {
		taken, err := checker.InvoiceNumberExists(ctx, Format(s.prefix, n))
		if err != nil {
			return "", fmt.Errorf("check invoice number: %w", err)
		}
		if !taken {
			break
		}
	}
	return Format(s.prefix, n), nil
}

func (s *CountSequencer) Allocate(ctx context.Context) (string, error) {
	return s.Peek(ctx)
}

// AtomicSequencer never issues the same number twice.
type AtomicSequencer struct {
	counter Counter
	prefix  string
}

func NewAtomicSequencer(counter Counter, prefix string) *AtomicSequencer {
	return &AtomicSequencer{counter: counter, prefix: prefix}
}

func (s *AtomicSequencer) Peek(ctx context.Context) (string, error) {
	current, err := s.counter.Current(ctx)
	if err != nil {
		return "", fmt.Errorf("read invoice counter: %w", err)
	}
	return Format(s.prefix, current+1), nil
}

func (s *AtomicSequencer) Allocate(ctx context.Context) (string, error) {
	next, err := s.counter.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("advance invoice counter: %w", err)
	}
	return Format(s.prefix, next), nil
}

// New builds the sequencer for mode. In atomic mode the counter is first
// seeded with the current invoice count so numbers issued under count mode
// are not handed out again.
func New(ctx context.Context, mode, prefix string, invoices InvoiceCounter, counter Counter) (Sequencer, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeCount:
		return NewCountSequencer(invoices, prefix), nil
	case ModeAtomic:
		if counter == nil {
			return nil, fmt.Errorf("atomic sequence mode requires a counter")
		}
		count, err := invoices.CountInvoices(ctx)
		if err != nil {
			return nil, fmt.Errorf("count invoices: %w", err)
		}
		if err := counter.Seed(ctx, int64(count)); err != nil {
			return nil, fmt.Errorf("seed invoice counter: %w", err)
		}
		return NewAtomicSequencer(counter, prefix), nil
	default:
		return nil, fmt.Errorf("unknown sequence mode %q", mode)
	}
}
