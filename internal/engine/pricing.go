package engine

import (
	"github.com/retailops/ims-analytics/internal/models"
)

// PricingAction is the 3-way price decision for one product.
type PricingAction string

const (
	ActionRaise    PricingAction = "raise"
	ActionDiscount PricingAction = "discount"
	ActionHold     PricingAction = "hold"
)

const (
	raiseFactor    = 1.10
	discountFactor = 0.90

	lowMarginPct  = 20
	highMarginPct = 40
)

// PricingSuggestion is the per-product price recommendation with the
// margin figures it was derived from.
type PricingSuggestion struct {
	ProductCode    string        `json:"product_code"`
	ProductName    string        `json:"product_name"`
	SupplyCost     float64       `json:"supply_cost"`
	Quantity       int           `json:"quantity"`
	Revenue        float64       `json:"revenue"`
	MarginAmount   float64       `json:"margin_amount"`
	MarginRatePct  float64       `json:"margin_rate_pct"`
	CTRPct         float64       `json:"ctr_pct"`
	Action         PricingAction `json:"action"`
	SuggestedPrice float64       `json:"suggested_price"`
	Reason         string        `json:"reason"`
}

// PricingReport carries the suggestions plus the batch medians the
// branches were evaluated against.
type PricingReport struct {
	MedianCTRPct        float64             `json:"median_ctr_pct"`
	MedianMarginRatePct float64             `json:"median_margin_rate_pct"`
	Suggestions         []PricingSuggestion `json:"suggestions"`
}

// SuggestPrices recommends a price adjustment per product from margin and
// click-through positioning. The decision is a first-match cascade, not
// independent flags:
//
//  1. CTR above the batch median and margin rate under 20%: popular but
//     low-margin, raise the unit price 10%.
//  2. CTR below the median and margin rate over 40%: high-margin but
//     under-trafficked, discount 10%.
//  3. Otherwise hold the current price.
//
// Margin rate on zero revenue degrades to 0 instead of failing; a product
// with zero sold quantity has no unit price and always holds.
func SuggestPrices(eff []models.ProductEfficiency, quantities map[string]int) *PricingReport {
	suggestions := make([]PricingSuggestion, 0, len(eff))
	for _, p := range eff {
		qty := quantities[p.ProductCode]
		marginAmount := p.Revenue - p.SupplyCost*float64(qty)
		suggestions = append(suggestions, PricingSuggestion{
			ProductCode:   p.ProductCode,
			ProductName:   p.ProductName,
			SupplyCost:    p.SupplyCost,
			Quantity:      qty,
			Revenue:       p.Revenue,
			MarginAmount:  marginAmount,
			MarginRatePct: safeDiv(marginAmount, p.Revenue) * 100,
			CTRPct:        p.CTRPct,
		})
	}

	report := &PricingReport{
		MedianCTRPct:        median(ctrValues(eff)),
		MedianMarginRatePct: medianMarginRate(suggestions),
		Suggestions:         suggestions,
	}
	for i := range suggestions {
		classify(&suggestions[i], report.MedianCTRPct)
	}
	return report
}

// classify applies the ordered decision cascade to one product.
func classify(s *PricingSuggestion, medianCTR float64) {
	unitPrice := safeDiv(s.Revenue, float64(s.Quantity))

	switch {
	case s.Quantity > 0 && s.CTRPct > medianCTR && s.MarginRatePct < lowMarginPct:
		s.Action = ActionRaise
		s.SuggestedPrice = unitPrice * raiseFactor
		s.Reason = "popular but low-margin"
	case s.Quantity > 0 && s.CTRPct < medianCTR && s.MarginRatePct > highMarginPct:
		s.Action = ActionDiscount
		s.SuggestedPrice = unitPrice * discountFactor
		s.Reason = "high-margin but under-trafficked"
	default:
		s.Action = ActionHold
		s.SuggestedPrice = unitPrice
		s.Reason = "stable performance"
	}
}

func medianMarginRate(suggestions []PricingSuggestion) float64 {
	rates := make([]float64, len(suggestions))
	for i, s := range suggestions {
		rates[i] = s.MarginRatePct
	}
	return median(rates)
}
