package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/ims-analytics/internal/models"
)

func TestSuggestPrices_ThreeWayClassification(t *testing.T) {
	// Median CTR across the batch is 3.
	eff := []models.ProductEfficiency{
		{ProductCode: "A", ProductName: "Popular", CTRPct: 5, Revenue: 1000, SupplyCost: 90},
		{ProductCode: "B", ProductName: "Sleeper", CTRPct: 1, Revenue: 1000, SupplyCost: 50},
		{ProductCode: "C", ProductName: "Steady", CTRPct: 3, Revenue: 1000, SupplyCost: 70},
	}
	quantities := map[string]int{"A": 10, "B": 10, "C": 10}

	report := SuggestPrices(eff, quantities)
	require.Len(t, report.Suggestions, 3)
	assert.InDelta(t, 3, report.MedianCTRPct, 1e-9)

	// A: margin 10% with CTR above median -> raise 10% on the 100 unit
	// price.
	a := report.Suggestions[0]
	assert.Equal(t, ActionRaise, a.Action)
	assert.InDelta(t, 10, a.MarginRatePct, 1e-9)
	assert.InDelta(t, 110, a.SuggestedPrice, 1e-9)
	assert.Equal(t, "popular but low-margin", a.Reason)

	// B: margin 50% with CTR below median -> discount 10%.
	b := report.Suggestions[1]
	assert.Equal(t, ActionDiscount, b.Action)
	assert.InDelta(t, 50, b.MarginRatePct, 1e-9)
	assert.InDelta(t, 90, b.SuggestedPrice, 1e-9)
	assert.Equal(t, "high-margin but under-trafficked", b.Reason)

	// C: margin 30% sits between the branches -> hold at the current
	// unit price.
	c := report.Suggestions[2]
	assert.Equal(t, ActionHold, c.Action)
	assert.InDelta(t, 30, c.MarginRatePct, 1e-9)
	assert.InDelta(t, 100, c.SuggestedPrice, 1e-9)
	assert.Equal(t, "stable performance", c.Reason)
}

func TestSuggestPrices_HoldBetweenThresholdsRegardlessOfCTR(t *testing.T) {
	eff := []models.ProductEfficiency{
		{ProductCode: "HI", CTRPct: 9, Revenue: 1000, SupplyCost: 70},
		{ProductCode: "LO", CTRPct: 0.1, Revenue: 1000, SupplyCost: 70},
		{ProductCode: "MID", CTRPct: 4, Revenue: 1000, SupplyCost: 70},
	}
	quantities := map[string]int{"HI": 10, "LO": 10, "MID": 10}

	report := SuggestPrices(eff, quantities)
	for _, s := range report.Suggestions {
		// 30% margin falls through both branches every time.
		assert.Equal(t, ActionHold, s.Action, s.ProductCode)
	}
}

func TestSuggestPrices_ZeroRevenueDegradesToZeroMargin(t *testing.T) {
	eff := []models.ProductEfficiency{
		{ProductCode: "Z", ProductName: "Ghost", CTRPct: 2, Revenue: 0, SupplyCost: 10},
	}

	report := SuggestPrices(eff, map[string]int{})
	require.Len(t, report.Suggestions, 1)

	z := report.Suggestions[0]
	assert.InDelta(t, 0, z.MarginRatePct, 1e-9)
	assert.Equal(t, ActionHold, z.Action)
	assert.InDelta(t, 0, z.SuggestedPrice, 1e-9)
}

func TestSuggestPrices_ZeroQuantityHolds(t *testing.T) {
	// No sold units means no unit price to adjust, whatever the margin
	// or CTR looks like.
	eff := []models.ProductEfficiency{
		{ProductCode: "Q", CTRPct: 10, Revenue: 500, SupplyCost: 0},
		{ProductCode: "R", CTRPct: 1, Revenue: 500, SupplyCost: 0},
	}

	report := SuggestPrices(eff, map[string]int{})
	for _, s := range report.Suggestions {
		assert.Equal(t, ActionHold, s.Action, s.ProductCode)
	}
}
