// Package pricing turns a cart into invoice totals. Amounts are float64
// throughout; only the grand total is rounded, to the nearest whole unit.
package pricing

import "math"

type Line struct {
	UnitPrice   float64
	Quantity    int
	CGSTPercent float64
	SGSTPercent float64
}

type Payments struct {
	Cash float64
	UPI  float64
	Card float64
}

func (p Payments) Total() float64 {
	return p.Cash + p.UPI + p.Card
}

type Totals struct {
	SubTotal        float64   `json:"subTotal"`
	DiscountPercent float64   `json:"discountPercent"`
	DiscountAmount  float64   `json:"discountAmount"`
	TaxableValue    float64   `json:"taxableValue"`
	CGSTAmount      float64   `json:"cgstAmount"`
	SGSTAmount      float64   `json:"sgstAmount"`
	GrossTotal      float64   `json:"grossTotal"`
	RoundOffAmount  float64   `json:"roundOffAmount"`
	GrandTotal      float64   `json:"grandTotal"`
	TotalPaid       float64   `json:"totalPaid"`
	Remaining       float64   `json:"remaining"`
	LineTotals      []float64 `json:"lineTotals"`
}

// ClampDiscount bounds a discount percentage to [0, 100].
func ClampDiscount(percent float64) float64 {
	if math.IsNaN(percent) || percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// Calculate is pure: the same cart always yields the same totals.
//
// Taxes are accumulated per line on the undiscounted amounts and then scaled
// by taxable/subtotal, which equals applying the discount to every line
// before taxing it.
func Calculate(lines []Line, discountPercent float64, payments Payments) Totals {
	totals := Totals{LineTotals: make([]float64, len(lines))}

	var rawCGST, rawSGST float64
	for i, line := range lines {
		lineTotal := line.UnitPrice * float64(line.Quantity)
		totals.LineTotals[i] = lineTotal
		totals.SubTotal += lineTotal
		rawCGST += lineTotal * line.CGSTPercent / 100
		rawSGST += lineTotal * line.SGSTPercent / 100
	}

	totals.DiscountPercent = ClampDiscount(discountPercent)
	totals.DiscountAmount = totals.SubTotal * totals.DiscountPercent / 100
	totals.TaxableValue = math.Max(0, totals.SubTotal-totals.DiscountAmount)

	factor := 0.0
	if totals.SubTotal > 0 {
		factor = totals.TaxableValue / totals.SubTotal
	}
	totals.CGSTAmount = rawCGST * factor
	totals.SGSTAmount = rawSGST * factor

	totals.GrossTotal = totals.TaxableValue + totals.CGSTAmount + totals.SGSTAmount
	totals.GrandTotal = math.Round(totals.GrossTotal)
	totals.RoundOffAmount = totals.GrandTotal - totals.GrossTotal

	totals.TotalPaid = payments.Total()
	totals.Remaining = math.Max(0, totals.GrandTotal-totals.TotalPaid)
	return totals
}

// Display rounds to two decimals for presentation only.
func Display(v float64) float64 {
	return math.Round(v*100) / 100
}

// SplitGST divides a combined GST rate evenly into its CGST and SGST halves.
func SplitGST(gstPercent float64) (cgst, sgst float64) {
	half := gstPercent / 2
	return half, half
}
