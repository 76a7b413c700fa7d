package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"opticpos/internal/domain"
	"opticpos/internal/metrics"
	"opticpos/internal/pricing"
)

// settledTolerance absorbs float noise when checking that a balance is paid.
const settledTolerance = 0.005

func (s *Service) NextInvoiceNumber(ctx context.Context) (string, error) {
	return s.sequencer.Peek(ctx)
}

// PreviewTotals prices a cart without persisting anything.
func (s *Service) PreviewTotals(_ context.Context, req domain.InvoiceRequest) (pricing.Totals, error) {
	_, totals, err := normalizeInvoiceRequest(req)
	return totals, err
}

// SubmitInvoice saves a new invoice in the Ordered state. It does not touch
// stock; the client follows up with a reduce-stock call.
func (s *Service) SubmitInvoice(ctx context.Context, req domain.InvoiceRequest) (domain.Invoice, error) {
	lines, totals, err := normalizeInvoiceRequest(req)
	if err != nil {
		return domain.Invoice{}, err
	}

	number, err := s.sequencer.Allocate(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}

	now := s.now()
	invoice := domain.Invoice{
		ID:          uuid.NewString(),
		InvoiceNo:   number,
		Date:        now,
		OrderStatus: domain.NewOrderStatus(),
		CreatedAt:   now,
	}
	applyRequest(&invoice, req, lines, totals)
	invoice.UpdatedAt = now

	created, err := s.repo.CreateInvoice(ctx, invoice)
	if err != nil {
		return domain.Invoice{}, err
	}

	metrics.InvoicesCreatedTotal.Inc()
	s.log.Info().
		Str("invoice_id", created.ID).
		Str("invoice_no", created.InvoiceNo).
		Float64("grand_total", created.GrandTotal).
		Float64("remaining", created.Remaining).
		Str("actor", actorName(ctx)).
		Msg("invoice submitted")
	return *created, nil
}

// UpdateInvoice recomputes totals and payments from the request. Number,
// date and status are preserved and stock is never adjusted.
func (s *Service) UpdateInvoice(ctx context.Context, id string, req domain.InvoiceRequest) (domain.Invoice, error) {
	existing, err := s.repo.GetInvoice(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Invoice{}, err
	}

	lines, totals, err := normalizeInvoiceRequest(req)
	if err != nil {
		return domain.Invoice{}, err
	}

	updated := *existing
	applyRequest(&updated, req, lines, totals)
	updated.UpdatedAt = s.now()

	saved, err := s.repo.UpdateInvoice(ctx, updated)
	if err != nil {
		return domain.Invoice{}, err
	}
	s.log.Info().Str("invoice_id", saved.ID).Float64("remaining", saved.Remaining).Str("actor", actorName(ctx)).Msg("invoice updated")
	return *saved, nil
}

// SetStatus performs the Ordered to Delivered transition. The balance must
// be settled first. Delivering an already delivered invoice is a no-op.
func (s *Service) SetStatus(ctx context.Context, id string, req domain.StatusRequest) (domain.Invoice, error) {
	target := strings.ToLower(strings.TrimSpace(req.Status))
	if target != domain.StateDelivered {
		return domain.Invoice{}, invalid("status", `only "delivered" is supported`)
	}

	invoice, err := s.repo.GetInvoice(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice.OrderStatus.Delivered {
		return *invoice, nil
	}
	if invoice.Remaining > settledTolerance {
		return domain.Invoice{}, invalid("remaining", "balance must be collected before delivery")
	}

	next, err := invoice.OrderStatus.Transition(target)
	if err != nil {
		return domain.Invoice{}, invalid("status", err.Error())
	}

	now := s.now()
	invoice.OrderStatus = next
	invoice.DeliveredAt = &now
	invoice.UpdatedAt = now
	if method := strings.TrimSpace(req.PaymentMethod); method != "" {
		invoice.PaymentMethod = method
	}

	saved, err := s.repo.UpdateInvoice(ctx, *invoice)
	if err != nil {
		return domain.Invoice{}, err
	}
	s.log.Info().Str("invoice_id", saved.ID).Str("payment_method", saved.PaymentMethod).Str("actor", actorName(ctx)).Msg("invoice delivered")
	return *saved, nil
}

// DeleteInvoice removes the record only. Stock taken by the sale is not
// restored.
func (s *Service) DeleteInvoice(ctx context.Context, id string) error {
	if err := s.repo.DeleteInvoice(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	s.log.Warn().Str("invoice_id", id).Str("actor", actorName(ctx)).Msg("invoice deleted")
	return nil
}

func (s *Service) GetInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	invoice, err := s.repo.GetInvoice(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Invoice{}, err
	}
	return *invoice, nil
}

func (s *Service) ListInvoices(ctx context.Context, filter string) ([]domain.Invoice, error) {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if !domain.ValidFilter(filter) {
		return nil, invalid("type", `must be "ordered" or "delivered"`)
	}
	return s.repo.ListInvoices(ctx, filter)
}

func normalizeInvoiceRequest(req domain.InvoiceRequest) ([]domain.LineItem, pricing.Totals, error) {
	if strings.TrimSpace(req.Customer.Name) == "" {
		return nil, pricing.Totals{}, invalid("customer.name", "is required")
	}
	if strings.TrimSpace(req.Customer.Mobile) == "" {
		return nil, pricing.Totals{}, invalid("customer.mobile", "is required")
	}
	if len(req.Items) == 0 {
		return nil, pricing.Totals{}, invalid("items", "at least one line item is required")
	}
	if badAmount(req.DiscountPercent) {
		return nil, pricing.Totals{}, invalid("discountPercent", "must be a number")
	}
	payments := pricing.Payments{Cash: req.PaymentCash, UPI: req.PaymentUPI, Card: req.PaymentCard}
	amounts := []struct {
		field string
		value float64
	}{
		{"paymentCash", payments.Cash},
		{"paymentUPI", payments.UPI},
		{"paymentCard", payments.Card},
	}
	for _, a := range amounts {
		if a.value < 0 || badAmount(a.value) {
			return nil, pricing.Totals{}, invalid(a.field, "must be a non-negative number")
		}
	}
	if date := strings.TrimSpace(req.DeliveryDate); date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return nil, pricing.Totals{}, invalid("deliveryDate", "must be YYYY-MM-DD")
		}
	}

	lines := make([]domain.LineItem, len(req.Items))
	priced := make([]pricing.Line, len(req.Items))
	for i, item := range req.Items {
		item.Name = strings.TrimSpace(item.Name)
		item.ItemID = strings.TrimSpace(item.ItemID)
		if item.Name == "" {
			return nil, pricing.Totals{}, invalid("items.name", "is required")
		}
		if item.Quantity < 1 {
			return nil, pricing.Totals{}, invalid("items.quantity", "must be at least 1")
		}
		if item.UnitPrice < 0 || badAmount(item.UnitPrice) {
			return nil, pricing.Totals{}, invalid("items.unitPrice", "must be a non-negative number")
		}
		if item.CGSTPercent == 0 && item.SGSTPercent == 0 && item.GSTPercent > 0 {
			item.CGSTPercent, item.SGSTPercent = pricing.SplitGST(item.GSTPercent)
		}
		if item.GSTPercent == 0 {
			item.GSTPercent = item.CGSTPercent + item.SGSTPercent
		}
		if item.CGSTPercent < 0 || item.SGSTPercent < 0 || item.GSTPercent > 100 {
			return nil, pricing.Totals{}, invalid("items.gstPercent", "must be between 0 and 100")
		}
		lines[i] = item
		priced[i] = pricing.Line{
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			CGSTPercent: item.CGSTPercent,
			SGSTPercent: item.SGSTPercent,
		}
	}

	totals := pricing.Calculate(priced, req.DiscountPercent, payments)
	for i := range lines {
		lines[i].LineTotal = pricing.Display(totals.LineTotals[i])
	}
	return lines, totals, nil
}

func applyRequest(invoice *domain.Invoice, req domain.InvoiceRequest, lines []domain.LineItem, totals pricing.Totals) {
	invoice.Customer = domain.CustomerSnapshot{
		Name:      strings.TrimSpace(req.Customer.Name),
		Mobile:    strings.TrimSpace(req.Customer.Mobile),
		Age:       req.Customer.Age,
		Address:   strings.TrimSpace(req.Customer.Address),
		GSTNumber: strings.ToUpper(strings.TrimSpace(req.Customer.GSTNumber)),
	}
	invoice.LineItems = lines
	invoice.SubTotal = totals.SubTotal
	invoice.DiscountPercent = totals.DiscountPercent
	invoice.DiscountAmount = totals.DiscountAmount
	invoice.TaxableValue = totals.TaxableValue
	invoice.CGSTAmount = totals.CGSTAmount
	invoice.SGSTAmount = totals.SGSTAmount
	invoice.RoundOffAmount = totals.RoundOffAmount
	invoice.GrandTotal = totals.GrandTotal
	invoice.PaymentCash = req.PaymentCash
	invoice.PaymentUPI = req.PaymentUPI
	invoice.PaymentCard = req.PaymentCard
	invoice.Advance = totals.TotalPaid
	invoice.Remaining = totals.Remaining
	invoice.DeliveryDate = strings.TrimSpace(req.DeliveryDate)
}

func badAmount(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
