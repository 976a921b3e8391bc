package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/ims-analytics/internal/models"
)

func sampleSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Orders: []models.OrderLine{
			orderOn(1, "web", 100, 1),
			orderOn(2, "app", 300, 3),
		},
		Efficiency: []models.ProductEfficiency{
			{ProductName: "Alpha", RPC: 10, CTRPct: 2},
			{ProductName: "Bravo", RPC: 30, CTRPct: 4},
		},
		Events: []models.DailyEventStat{
			{Date: day(1), PageViews: 1000, DAUMembers: 100, RevisitRatePct: 20},
			{Date: day(2), PageViews: 3000, DAUMembers: 200, RevisitRatePct: 40},
		},
		Pages: []models.PageStat{
			{Title: "Home", Views: 500},
			{Title: "Best Sellers", Views: 900},
		},
		Clicks: []models.ClickStat{
			{ProductName: "Alpha", Views: 1000, Clicks: 40},
			{ProductName: "Bravo", Views: 1000, Clicks: 10},
		},
	}
}

func TestBuildKPIs(t *testing.T) {
	kpi := BuildKPIs(sampleSnapshot())

	assert.Equal(t, 2, kpi.TotalOrders)
	assert.InDelta(t, 400, kpi.TotalRevenue, 1e-9)
	assert.InDelta(t, 200, kpi.AvgOrderValue, 1e-9)
	assert.InDelta(t, 2, kpi.AvgQuantity, 1e-9)
	assert.InDelta(t, 20, kpi.AvgRPC, 1e-9)
	assert.InDelta(t, 3, kpi.AvgCTRPct, 1e-9)
	assert.Equal(t, 4000, kpi.TotalPageViews)
	assert.Equal(t, 300, kpi.TotalDAU)
	assert.InDelta(t, 30, kpi.AvgRevisitRatePct, 1e-9)
	assert.Equal(t, "Best Sellers", kpi.TopPage)
}

func TestBuildKPIs_EmptySnapshot(t *testing.T) {
	kpi := BuildKPIs(&models.Snapshot{})
	assert.Equal(t, 0, kpi.TotalOrders)
	assert.InDelta(t, 0, kpi.AvgOrderValue, 1e-9)
	assert.Empty(t, kpi.TopPage)
}

func TestDeriveGrowthInputs(t *testing.T) {
	in := DeriveGrowthInputs(sampleSnapshot())

	assert.InDelta(t, 4000, in.CurrentPV, 1e-9)
	// 50 clicks over 2000 views.
	assert.InDelta(t, 2.5, in.CurrentCTRPct, 1e-9)
	// 2 order lines over 50 clicks.
	assert.InDelta(t, 4, in.CurrentCVRPct, 1e-9)
	assert.InDelta(t, 2, in.CurrentOrders, 1e-9)
	assert.InDelta(t, 400, in.CurrentRevenue, 1e-9)
	assert.InDelta(t, 200, in.AvgOrderValue, 1e-9)
}

func TestDeriveGrowthInputs_ZeroTrafficGuards(t *testing.T) {
	in := DeriveGrowthInputs(&models.Snapshot{})
	assert.InDelta(t, 0, in.CurrentCTRPct, 1e-9)
	assert.InDelta(t, 0, in.CurrentCVRPct, 1e-9)
	assert.InDelta(t, 0, in.AvgOrderValue, 1e-9)
}

func TestBreakdownAttributes(t *testing.T) {
	orders := []models.OrderLine{
		{Channel: "web", PaymentMethod: "card", Grade: "premium", WeightClass: "1kg", IsSet: true, IsEvent: false, PaidAmount: 100, Quantity: 1},
		{Channel: "web", PaymentMethod: "bank", Grade: "standard", WeightClass: "2kg", IsSet: false, IsEvent: true, PaidAmount: 200, Quantity: 2},
	}

	b := BreakdownAttributes(orders)
	assert.Equal(t, 2, b.Channel["web"].Count)
	assert.Equal(t, 1, b.PaymentMethod["card"].Count)
	assert.InDelta(t, 100, b.SetType["set"].Sum, 1e-9)
	assert.InDelta(t, 200, b.SetType["single"].Sum, 1e-9)
	assert.InDelta(t, 200, b.EventType["event"].Sum, 1e-9)
	assert.InDelta(t, 100, b.Grade["premium"].Sum, 1e-9)
}

func TestCorrelateTraffic_PerfectCorrelation(t *testing.T) {
	daily := []DailyPoint{
		{Date: day(1), Revenue: 100},
		{Date: day(2), Revenue: 200},
		{Date: day(3), Revenue: 300},
	}
	events := []models.DailyEventStat{
		{Date: day(1), PageViews: 1000},
		{Date: day(2), PageViews: 2000},
		{Date: day(3), PageViews: 3000},
	}

	c := CorrelateTraffic(daily, events)
	require.Equal(t, 3, c.Days)
	assert.InDelta(t, 1, c.Coefficient, 1e-9)
	assert.Equal(t, "strong", c.Strength)
}

func TestCorrelateTraffic_InnerJoinDropsUnmatchedDays(t *testing.T) {
	daily := []DailyPoint{
		{Date: day(1), Revenue: 100},
		{Date: day(2), Revenue: 200},
	}
	events := []models.DailyEventStat{
		{Date: day(2), PageViews: 500},
		{Date: day(9), PageViews: 900},
	}

	c := CorrelateTraffic(daily, events)
	assert.Equal(t, 1, c.Days)
	assert.Equal(t, "weak", c.Strength)
}
