package models

import (
	"time"
)

// ===========================================
// ORDER RECORDS
// ===========================================

// OrderLine is one sold line item from the preprocessed sales export.
// Lines are immutable once loaded and identified by OrderID+ProductCode.
type OrderLine struct {
	OrderID       string    `json:"order_id"`
	OrderDate     time.Time `json:"order_date"`
	Channel       string    `json:"channel"`
	PaymentMethod string    `json:"payment_method"`
	ProductCode   string    `json:"product_code"`
	ProductName   string    `json:"product_name"`
	Grade         string    `json:"grade,omitempty"`
	WeightClass   string    `json:"weight_class,omitempty"`
	IsSet         bool      `json:"is_set"`
	IsEvent       bool      `json:"is_event"`
	Quantity      int       `json:"quantity"`
	PaidAmount    float64   `json:"paid_amount"`
	SupplyCost    float64   `json:"supply_cost"`
}

// ClusteredOrder is an order line annotated with the cluster label an
// external clustering process assigned to it. The label is opaque; it is
// used for grouping only and never recomputed here.
type ClusteredOrder struct {
	OrderLine
	Cluster int `json:"cluster"`
}

// ===========================================
// TRAFFIC RECORDS
// ===========================================

// DailyEventStat is one calendar day of site traffic. One record per date.
type DailyEventStat struct {
	Date           time.Time `json:"date"`
	PageViews      int       `json:"page_views"`
	DAUMembers     int       `json:"dau_members"`
	RevisitRatePct float64   `json:"revisit_rate_pct"`
}

// PageStat is the view count for a single page, ordered by views upstream.
type PageStat struct {
	Title string `json:"title"`
	Views int    `json:"views"`
}

// ClickStat is the per-product click funnel for one period.
type ClickStat struct {
	Date        time.Time `json:"date"`
	ProductName string    `json:"product_name"`
	Views       int       `json:"views"`
	Clicks      int       `json:"clicks"`
}

// CTR returns clicks/views as a percentage, 0 when there are no views.
func (c ClickStat) CTR() float64 {
	if c.Views == 0 {
		return 0
	}
	return float64(c.Clicks) / float64(c.Views) * 100
}

// ===========================================
// DERIVED ANALYSIS RECORDS
// ===========================================

// ProductEfficiency carries the upstream-computed marketing efficiency
// figures for one product. SupplyCost defaults to 0 when the source table
// does not carry the column; margin figures degrade to 0 in that case.
type ProductEfficiency struct {
	ProductCode string  `json:"product_code"`
	ProductName string  `json:"product_name"`
	CTRPct      float64 `json:"ctr_pct"`
	RPC         float64 `json:"rpc"`
	RPV         float64 `json:"rpv"`
	ViewCount   int     `json:"view_count"`
	Revenue     float64 `json:"revenue"`
	SupplyCost  float64 `json:"supply_cost"`
}

// ClusterChannelShare is one cell of the cluster x channel inflow matrix:
// the share of a cluster's orders that arrived through a channel.
type ClusterChannelShare struct {
	Cluster  int     `json:"cluster"`
	Channel  string  `json:"channel"`
	SharePct float64 `json:"share_pct"`
}

// ===========================================
// OPTIONAL ANALYTIC RECORDS
// ===========================================

// CustomerLTVRecord is the per-customer RFM/LTV row. A customer with zero
// orders cannot appear here.
type CustomerLTVRecord struct {
	CustomerID  string  `json:"customer_id"`
	RecencyDays int     `json:"recency_days"`
	Frequency   int     `json:"frequency"`
	Monetary    float64 `json:"monetary"`
	LTVScore    float64 `json:"ltv_score"`
	Cluster     int     `json:"cluster"`
}

// OrderIntervalRecord is the historical mean gap in days between
// consecutive orders for one cluster.
type OrderIntervalRecord struct {
	Cluster         int     `json:"cluster"`
	AvgIntervalDays float64 `json:"avg_interval_days"`
}

// ChannelAttributionRecord is the spend/outcome row for one marketing
// channel. ROAS and CPA are derived downstream with zero-denominator guards.
type ChannelAttributionRecord struct {
	Channel string  `json:"channel"`
	Spend   float64 `json:"spend"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}
