package engine

// GrowthInputs are the current funnel aggregates a simulation starts from.
type GrowthInputs struct {
	CurrentPV      float64 `json:"current_pv"`
	CurrentCTRPct  float64 `json:"current_ctr_pct"`
	CurrentCVRPct  float64 `json:"current_cvr_pct"`
	AvgOrderValue  float64 `json:"avg_order_value"`
	CurrentOrders  float64 `json:"current_orders"`
	CurrentRevenue float64 `json:"current_revenue"`
}

// GrowthDeltas are the user-supplied what-if changes: a percentage change
// to page views and percentage-point changes to CTR and CVR.
//
// Sums that drive an effective rate below zero are not clamped; the caller
// owns keeping CurrentCTRPct+CTRPPDelta and CurrentCVRPct+CVRPPDelta
// non-negative, otherwise the simulated order count goes negative.
type GrowthDeltas struct {
	PVPctDelta float64 `json:"pv_pct_delta"`
	CTRPPDelta float64 `json:"ctr_pp_delta"`
	CVRPPDelta float64 `json:"cvr_pp_delta"`
}

// GrowthResult is the projected funnel outcome plus deltas versus the
// current totals.
type GrowthResult struct {
	SimPV       float64 `json:"sim_pv"`
	SimClicks   float64 `json:"sim_clicks"`
	SimOrders   float64 `json:"sim_orders"`
	SimRevenue  float64 `json:"sim_revenue"`
	RevenueDiff float64 `json:"revenue_diff"`
	OrdersDiff  float64 `json:"orders_diff"`
}

// Simulate propagates the deltas through the funnel in fixed order:
// PV, then clicks, then orders, then revenue. The structure is purely
// multiplicative, so the result is monotonic in each delta when the others
// are held fixed.
func Simulate(in GrowthInputs, d GrowthDeltas) GrowthResult {
	simPV := in.CurrentPV * (1 + d.PVPctDelta/100)
	simClicks := simPV * (in.CurrentCTRPct + d.CTRPPDelta) / 100
	simOrders := simClicks * (in.CurrentCVRPct + d.CVRPPDelta) / 100
	simRevenue := simOrders * in.AvgOrderValue

	return GrowthResult{
		SimPV:       simPV,
		SimClicks:   simClicks,
		SimOrders:   simOrders,
		SimRevenue:  simRevenue,
		RevenueDiff: simRevenue - in.CurrentRevenue,
		OrdersDiff:  simOrders - in.CurrentOrders,
	}
}
