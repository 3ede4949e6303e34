package billing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals(t *testing.T) {
	// 100*2 + 50*1 = 250, 10% discount = 25, taxable = 225,
	// 20% tax = 45, total = 270.
	lines := []LineAmount{
		{UnitPrice: 100, Quantity: 2},
		{UnitPrice: 50, Quantity: 1},
	}

	totals, err := ComputeTotals(lines, 10, 20)
	require.NoError(t, err)

	assert.InDelta(t, 250.00, totals.Subtotal, 0.001)
	assert.InDelta(t, 25.00, totals.DiscountAmount, 0.001)
	assert.InDelta(t, 225.00, totals.TaxableAmount, 0.001)
	assert.InDelta(t, 45.00, totals.TaxAmount, 0.001)
	assert.InDelta(t, 270.00, totals.Total, 0.001)
}

func TestComputeTotalsNoLines(t *testing.T) {
	totals, err := ComputeTotals(nil, 10, 20)
	require.NoError(t, err)
	assert.Zero(t, totals.Subtotal)
	assert.Zero(t, totals.Total)
}

func TestComputeTotalsRoundsOnlyAtBoundaries(t *testing.T) {
	// 3 * 9.99 = 29.97; 15% discount = 4.4955; taxable = 25.4745;
	// 20% tax = 5.0949; total = 30.5694 → 30.57.
	// Rounding intermediates first would yield 25.47 + 5.09 = 30.56.
	lines := []LineAmount{{UnitPrice: 9.99, Quantity: 3}}

	totals, err := ComputeTotals(lines, 15, 20)
	require.NoError(t, err)

	assert.InDelta(t, 29.97, totals.Subtotal, 0.001)
	assert.InDelta(t, 4.50, totals.DiscountAmount, 0.001)
	assert.InDelta(t, 25.47, totals.TaxableAmount, 0.001)
	assert.InDelta(t, 5.09, totals.TaxAmount, 0.001)
	assert.InDelta(t, 30.57, totals.Total, 0.001)
}

func TestComputeTotalsClampsPercents(t *testing.T) {
	lines := []LineAmount{{UnitPrice: 100, Quantity: 1}}

	totals, err := ComputeTotals(lines, 150, -5)
	require.NoError(t, err)

	// Discount clamped to 100%, tax clamped to 0%.
	assert.InDelta(t, 100.00, totals.Subtotal, 0.001)
	assert.InDelta(t, 100.00, totals.DiscountAmount, 0.001)
	assert.Zero(t, totals.TaxAmount)
	assert.Zero(t, totals.Total)
}

func TestComputeTotalsRejectsInvalidLines(t *testing.T) {
	cases := []struct {
		name  string
		lines []LineAmount
	}{
		{"negative price", []LineAmount{{UnitPrice: -1, Quantity: 1}}},
		{"zero quantity", []LineAmount{{UnitPrice: 10, Quantity: 0}}},
		{"negative quantity", []LineAmount{{UnitPrice: 10, Quantity: -2}}},
		{"nan price", []LineAmount{{UnitPrice: math.NaN(), Quantity: 1}}},
		{"infinite quantity", []LineAmount{{UnitPrice: 10, Quantity: math.Inf(1)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeTotals(tc.lines, 0, 20)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestNormalizePercents(t *testing.T) {
	d, tax := NormalizePercents(nil, nil)
	assert.Zero(t, d)
	assert.InDelta(t, DefaultTaxPercent, tax, 0.001)

	five := 5.5
	seven := 7.0
	d, tax = NormalizePercents(&five, &seven)
	assert.InDelta(t, 5.5, d, 0.001)
	assert.InDelta(t, 7.0, tax, 0.001)

	over := 120.0
	under := -3.0
	d, tax = NormalizePercents(&over, &under)
	assert.InDelta(t, 100.0, d, 0.001)
	assert.Zero(t, tax)
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 2.35, Round2(2.346), 0.0001)
	assert.InDelta(t, 2.34, Round2(2.344), 0.0001)
	assert.InDelta(t, -2.35, Round2(-2.346), 0.0001)
	assert.InDelta(t, 0, Round2(0), 0.0001)
}
