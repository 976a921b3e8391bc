package engine

import (
	"sort"

	"github.com/retailops/ims-analytics/internal/models"
)

const (
	// HighValuePercentile marks the LTV-score cut for high-value
	// customers: everyone at or above the 80th percentile.
	HighValuePercentile = 80

	// ChurnRecencyDays is the recency beyond which a customer counts as
	// churn-risk.
	ChurnRecencyDays = 30

	// retentionSlack is how far a cluster's average recency may run past
	// its historical mean order interval before the cluster is flagged.
	retentionSlack = 1.2
)

// ClusterRetention compares a cluster's current average recency with its
// historical mean gap between consecutive orders.
type ClusterRetention struct {
	Cluster         int     `json:"cluster"`
	Customers       int     `json:"customers"`
	AvgIntervalDays float64 `json:"avg_interval_days"`
	AvgRecencyDays  float64 `json:"avg_recency_days"`
	RetentionRisk   bool    `json:"retention_risk"`
}

// LTVReport is the customer-value analysis: averages, the high-value
// segment, churn-risk customers and per-cluster retention flags.
type LTVReport struct {
	Customers          int                        `json:"customers"`
	AvgLTVScore        float64                    `json:"avg_ltv_score"`
	AvgFrequency       float64                    `json:"avg_frequency"`
	HighValueThreshold float64                    `json:"high_value_threshold"`
	HighValueCount     int                        `json:"high_value_count"`
	HighValueSharePct  float64                    `json:"high_value_share_pct"`
	ChurnRisk          []models.CustomerLTVRecord `json:"churn_risk"`
	Retention          []ClusterRetention         `json:"retention,omitempty"`
}

// AnalyzeLTV scores the customer base. The high-value threshold is the
// 80th percentile of LTV scores (linear interpolation between order
// statistics); customers at or above it are high-value. Churn-risk is any
// customer with recency over ChurnRecencyDays, ranked by monetary value
// descending so the most valuable at-risk customers surface first. When
// interval data is present, clusters whose average recency materially
// exceeds their historical mean order interval are flagged for win-back.
//
// With no LTV table loaded the result is a DataUnavailableError, not a
// partial report.
func AnalyzeLTV(records []models.CustomerLTVRecord, intervals []models.OrderIntervalRecord) (*LTVReport, error) {
	if len(records) == 0 {
		return nil, &DataUnavailableError{Table: "ltv"}
	}

	scores := make([]float64, len(records))
	var sumScore, sumFreq float64
	for i, r := range records {
		scores[i] = r.LTVScore
		sumScore += r.LTVScore
		sumFreq += float64(r.Frequency)
	}

	report := &LTVReport{
		Customers:          len(records),
		AvgLTVScore:        sumScore / float64(len(records)),
		AvgFrequency:       sumFreq / float64(len(records)),
		HighValueThreshold: Percentile(scores, HighValuePercentile),
	}

	for _, r := range records {
		if r.LTVScore >= report.HighValueThreshold {
			report.HighValueCount++
		}
		if r.RecencyDays > ChurnRecencyDays {
			report.ChurnRisk = append(report.ChurnRisk, r)
		}
	}
	report.HighValueSharePct = float64(report.HighValueCount) / float64(len(records)) * 100
	sort.SliceStable(report.ChurnRisk, func(i, j int) bool {
		return report.ChurnRisk[i].Monetary > report.ChurnRisk[j].Monetary
	})

	report.Retention = clusterRetention(records, intervals)
	return report, nil
}

// clusterRetention joins per-cluster average recency onto the historical
// mean order interval. Clusters without interval data are skipped.
func clusterRetention(records []models.CustomerLTVRecord, intervals []models.OrderIntervalRecord) []ClusterRetention {
	if len(intervals) == 0 {
		return nil
	}

	recencySum := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range records {
		recencySum[r.Cluster] += float64(r.RecencyDays)
		counts[r.Cluster]++
	}

	var out []ClusterRetention
	for _, iv := range intervals {
		n := counts[iv.Cluster]
		if n == 0 {
			continue
		}
		avgRecency := recencySum[iv.Cluster] / float64(n)
		out = append(out, ClusterRetention{
			Cluster:         iv.Cluster,
			Customers:       n,
			AvgIntervalDays: iv.AvgIntervalDays,
			AvgRecencyDays:  avgRecency,
			RetentionRisk:   avgRecency > iv.AvgIntervalDays*retentionSlack,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cluster < out[j].Cluster })
	return out
}
