package engine

import (
	"time"

	"github.com/retailops/ims-analytics/internal/models"
)

// KPISummary is the headline figures of the management view.
type KPISummary struct {
	TotalOrders       int     `json:"total_orders"`
	TotalRevenue      float64 `json:"total_revenue"`
	AvgOrderValue     float64 `json:"avg_order_value"`
	AvgQuantity       float64 `json:"avg_quantity"`
	AvgRPC            float64 `json:"avg_rpc"`
	AvgCTRPct         float64 `json:"avg_ctr_pct"`
	TotalPageViews    int     `json:"total_page_views"`
	TotalDAU          int     `json:"total_dau"`
	AvgRevisitRatePct float64 `json:"avg_revisit_rate_pct"`
	TopPage           string  `json:"top_page,omitempty"`
}

// BuildKPIs reduces the snapshot batches into the headline metrics.
func BuildKPIs(s *models.Snapshot) KPISummary {
	var kpi KPISummary

	kpi.TotalOrders = len(s.Orders)
	var quantity int
	for _, o := range s.Orders {
		kpi.TotalRevenue += o.PaidAmount
		quantity += o.Quantity
	}
	if kpi.TotalOrders > 0 {
		kpi.AvgOrderValue = kpi.TotalRevenue / float64(kpi.TotalOrders)
		kpi.AvgQuantity = float64(quantity) / float64(kpi.TotalOrders)
	}

	if len(s.Efficiency) > 0 {
		var rpc, ctr float64
		for _, p := range s.Efficiency {
			rpc += p.RPC
			ctr += p.CTRPct
		}
		kpi.AvgRPC = rpc / float64(len(s.Efficiency))
		kpi.AvgCTRPct = ctr / float64(len(s.Efficiency))
	}

	var revisit float64
	for _, e := range s.Events {
		kpi.TotalPageViews += e.PageViews
		kpi.TotalDAU += e.DAUMembers
		revisit += e.RevisitRatePct
	}
	if len(s.Events) > 0 {
		kpi.AvgRevisitRatePct = revisit / float64(len(s.Events))
	}

	if len(s.Pages) > 0 {
		top := s.Pages[0]
		for _, p := range s.Pages[1:] {
			if p.Views > top.Views {
				top = p
			}
		}
		kpi.TopPage = top.Title
	}
	return kpi
}

// DeriveGrowthInputs extracts the current funnel aggregates the growth
// simulator starts from: total PV from event stats, CTR from the click
// funnel, and a conversion rate estimated as order lines per click.
func DeriveGrowthInputs(s *models.Snapshot) GrowthInputs {
	var in GrowthInputs

	for _, e := range s.Events {
		in.CurrentPV += float64(e.PageViews)
	}

	var views, clicks float64
	for _, c := range s.Clicks {
		views += float64(c.Views)
		clicks += float64(c.Clicks)
	}
	in.CurrentCTRPct = safeDiv(clicks, views) * 100
	in.CurrentCVRPct = safeDiv(float64(len(s.Orders)), clicks) * 100

	in.CurrentOrders = float64(len(s.Orders))
	for _, o := range s.Orders {
		in.CurrentRevenue += o.PaidAmount
	}
	in.AvgOrderValue = safeDiv(in.CurrentRevenue, in.CurrentOrders)
	return in
}

// AttributeBreakdowns groups revenue and quantity by the order-line
// attribute enums extracted upstream from product names.
type AttributeBreakdowns struct {
	Channel       map[string]GroupSummary `json:"channel"`
	PaymentMethod map[string]GroupSummary `json:"payment_method"`
	Grade         map[string]GroupSummary `json:"grade"`
	WeightClass   map[string]GroupSummary `json:"weight_class"`
	SetType       map[string]GroupSummary `json:"set_type"`
	EventType     map[string]GroupSummary `json:"event_type"`
}

// BreakdownAttributes runs the shared aggregator once per attribute
// dimension.
func BreakdownAttributes(orders []models.OrderLine) AttributeBreakdowns {
	return AttributeBreakdowns{
		Channel:       AggregateBy(orders, func(o models.OrderLine) string { return o.Channel }),
		PaymentMethod: AggregateBy(orders, func(o models.OrderLine) string { return o.PaymentMethod }),
		Grade:         AggregateBy(orders, func(o models.OrderLine) string { return o.Grade }),
		WeightClass:   AggregateBy(orders, func(o models.OrderLine) string { return o.WeightClass }),
		SetType: AggregateBy(orders, func(o models.OrderLine) string {
			if o.IsSet {
				return "set"
			}
			return "single"
		}),
		EventType: AggregateBy(orders, func(o models.OrderLine) string {
			if o.IsEvent {
				return "event"
			}
			return "regular"
		}),
	}
}

// TrafficCorrelation is the Pearson correlation of daily page views and
// daily revenue, joined on calendar day.
type TrafficCorrelation struct {
	Coefficient float64 `json:"coefficient"`
	Strength    string  `json:"strength"`
	Days        int     `json:"days"`
}

// CorrelateTraffic inner-joins the daily sales series with the daily
// event stats on date and correlates PV against revenue. Days present on
// only one side are dropped.
func CorrelateTraffic(daily []DailyPoint, events []models.DailyEventStat) TrafficCorrelation {
	pvByDay := make(map[time.Time]float64, len(events))
	for _, e := range events {
		pvByDay[e.Date.Truncate(24*time.Hour)] = float64(e.PageViews)
	}

	var pvs, revenues []float64
	for _, p := range daily {
		if pv, ok := pvByDay[p.Date]; ok {
			pvs = append(pvs, pv)
			revenues = append(revenues, p.Revenue)
		}
	}

	r := pearson(pvs, revenues)
	strength := "weak"
	switch {
	case r > 0.7:
		strength = "strong"
	case r > 0.4:
		strength = "moderate"
	}
	return TrafficCorrelation{Coefficient: r, Strength: strength, Days: len(pvs)}
}
