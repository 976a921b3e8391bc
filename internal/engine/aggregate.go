package engine

import (
	"sort"
	"time"

	"github.com/retailops/ims-analytics/internal/models"
)

// DailyPoint is one day of sales: order-line count and summed revenue.
type DailyPoint struct {
	Date    time.Time `json:"date"`
	Orders  int       `json:"orders"`
	Revenue float64   `json:"revenue"`
}

// GroupSummary holds the reduced paid-amount statistics for one group key.
type GroupSummary struct {
	Count    int     `json:"count"`
	Sum      float64 `json:"sum"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Quantity int     `json:"quantity"`
}

// GroupCount is an order count per group key, kept in first-encounter
// order so that downstream tie-breaks are deterministic.
type GroupCount struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// AggregateDaily groups order lines by calendar day and returns one point
// per distinct date present, sorted ascending. Days with no orders are not
// gap-filled. The input is never mutated.
func AggregateDaily(orders []models.OrderLine) []DailyPoint {
	byDay := make(map[time.Time]*DailyPoint)
	for _, o := range orders {
		day := o.OrderDate.Truncate(24 * time.Hour)
		p, ok := byDay[day]
		if !ok {
			p = &DailyPoint{Date: day}
			byDay[day] = p
		}
		p.Orders++
		p.Revenue += o.PaidAmount
	}

	out := make([]DailyPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// AggregateBy reduces order lines into per-key paid-amount statistics.
// The key function selects the grouping dimension (channel, payment
// method, grade, and so on).
func AggregateBy(orders []models.OrderLine, key func(models.OrderLine) string) map[string]GroupSummary {
	amounts := make(map[string][]float64)
	quantities := make(map[string]int)
	for _, o := range orders {
		k := key(o)
		amounts[k] = append(amounts[k], o.PaidAmount)
		quantities[k] += o.Quantity
	}

	out := make(map[string]GroupSummary, len(amounts))
	for k, vals := range amounts {
		var sum float64
		for _, v := range vals {
			sum += v
		}
		out[k] = GroupSummary{
			Count:    len(vals),
			Sum:      sum,
			Mean:     sum / float64(len(vals)),
			Median:   median(vals),
			Quantity: quantities[k],
		}
	}
	return out
}

// CountBy counts order lines per key, preserving the order in which keys
// first appear in the input.
func CountBy(orders []models.OrderLine, key func(models.OrderLine) string) []GroupCount {
	index := make(map[string]int)
	var out []GroupCount
	for _, o := range orders {
		k := key(o)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, GroupCount{Key: k})
		}
		out[i].Count++
		out[i].Revenue += o.PaidAmount
	}
	return out
}

// ClusterSummary holds the per-cluster order statistics.
type ClusterSummary struct {
	Cluster       int     `json:"cluster"`
	Orders        int     `json:"orders"`
	MeanQuantity  float64 `json:"mean_quantity"`
	TotalQuantity int     `json:"total_quantity"`
	MeanRevenue   float64 `json:"mean_revenue"`
	MedianRevenue float64 `json:"median_revenue"`
	TotalRevenue  float64 `json:"total_revenue"`
}

// ClusterStats reduces clustered order lines into per-cluster summaries,
// sorted by cluster id.
func ClusterStats(clustered []models.ClusteredOrder) []ClusterSummary {
	amounts := make(map[int][]float64)
	quantities := make(map[int]int)
	for _, c := range clustered {
		amounts[c.Cluster] = append(amounts[c.Cluster], c.PaidAmount)
		quantities[c.Cluster] += c.Quantity
	}

	out := make([]ClusterSummary, 0, len(amounts))
	for cluster, vals := range amounts {
		var sum float64
		for _, v := range vals {
			sum += v
		}
		out = append(out, ClusterSummary{
			Cluster:       cluster,
			Orders:        len(vals),
			MeanQuantity:  float64(quantities[cluster]) / float64(len(vals)),
			TotalQuantity: quantities[cluster],
			MeanRevenue:   sum / float64(len(vals)),
			MedianRevenue: median(vals),
			TotalRevenue:  sum,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cluster < out[j].Cluster })
	return out
}

// ProductQuantities sums sold units per product code across the clustered
// order lines. Pricing joins these onto the efficiency table.
func ProductQuantities(clustered []models.ClusteredOrder) map[string]int {
	out := make(map[string]int)
	for _, c := range clustered {
		out[c.ProductCode] += c.Quantity
	}
	return out
}
