package billing

import (
	"fmt"
	"math"
)

// DefaultTaxPercent applies when a quote does not carry an explicit tax rate.
const DefaultTaxPercent = 20.0

// LineAmount is the minimal line shape the calculator needs.
type LineAmount struct {
	UnitPrice float64
	Quantity  float64
}

// Totals holds every derived amount for a document. Subtotal is the sum of
// price times quantity before discount; Total is the amount with tax.
type Totals struct {
	Subtotal       float64
	DiscountAmount float64
	TaxableAmount  float64
	TaxAmount      float64
	Total          float64
}

// ComputeTotals derives document totals from line items under the given
// document-level discount and tax percentages. Intermediate amounts stay
// unrounded; only the returned fields are rounded to cents, so rounding error
// never compounds across steps.
//
// Invalid numeric input is rejected rather than coerced: a negative price, a
// non-positive quantity, or a non-finite value yields ErrValidation.
func ComputeTotals(lines []LineAmount, discountPercent, taxPercent float64) (Totals, error) {
	var subtotal float64
	for i, line := range lines {
		if !isFinite(line.UnitPrice) || !isFinite(line.Quantity) {
			return Totals{}, fmt.Errorf("%w: line %d: price and quantity must be numeric", ErrValidation, i+1)
		}
		if line.UnitPrice < 0 {
			return Totals{}, fmt.Errorf("%w: line %d: unit price must not be negative", ErrValidation, i+1)
		}
		if line.Quantity <= 0 {
			return Totals{}, fmt.Errorf("%w: line %d: quantity must be positive", ErrValidation, i+1)
		}
		subtotal += line.UnitPrice * line.Quantity
	}

	discountPercent = clampPercent(discountPercent)
	taxPercent = clampPercent(taxPercent)

	discount := subtotal * (discountPercent / 100)
	taxable := subtotal - discount
	tax := taxable * (taxPercent / 100)
	total := taxable + tax

	return Totals{
		Subtotal:       Round2(subtotal),
		DiscountAmount: Round2(discount),
		TaxableAmount:  Round2(taxable),
		TaxAmount:      Round2(tax),
		Total:          Round2(total),
	}, nil
}

// NormalizePercents resolves optional percentage fields to effective values:
// discount defaults to 0, tax to DefaultTaxPercent, both clamped to [0,100].
// The defaults live here and nowhere else.
func NormalizePercents(discount, tax *float64) (float64, float64) {
	d := 0.0
	if discount != nil {
		d = clampPercent(*discount)
	}
	t := DefaultTaxPercent
	if tax != nil {
		t = clampPercent(*tax)
	}
	return d, t
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func quoteLineAmounts(lines []QuoteLine) []LineAmount {
	amounts := make([]LineAmount, len(lines))
	for i, l := range lines {
		amounts[i] = LineAmount{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	return amounts
}

func inputLineAmounts(lines []QuoteLineInput) []LineAmount {
	amounts := make([]LineAmount, len(lines))
	for i, l := range lines {
		amounts[i] = LineAmount{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	return amounts
}
