package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/ims-analytics/internal/models"
)

func tenCustomers() []models.CustomerLTVRecord {
	// Scores 10..100: the 80th percentile interpolates to 82.
	out := make([]models.CustomerLTVRecord, 10)
	for i := range out {
		out[i] = models.CustomerLTVRecord{
			CustomerID:  string(rune('A' + i)),
			LTVScore:    float64((i + 1) * 10),
			RecencyDays: 10,
			Frequency:   2,
			Monetary:    1000,
			Cluster:     i % 2,
		}
	}
	return out
}

func TestAnalyzeLTV_HighValueThresholdInterpolated(t *testing.T) {
	report, err := AnalyzeLTV(tenCustomers(), nil)
	require.NoError(t, err)

	// rank = 0.8*(10-1) = 7.2 -> 80 + 0.2*(90-80) = 82.
	assert.InDelta(t, 82, report.HighValueThreshold, 1e-9)
	assert.Equal(t, 2, report.HighValueCount)
	assert.InDelta(t, 20, report.HighValueSharePct, 1e-9)
}

func TestAnalyzeLTV_Averages(t *testing.T) {
	report, err := AnalyzeLTV(tenCustomers(), nil)
	require.NoError(t, err)

	assert.Equal(t, 10, report.Customers)
	assert.InDelta(t, 55, report.AvgLTVScore, 1e-9)
	assert.InDelta(t, 2, report.AvgFrequency, 1e-9)
}

func TestAnalyzeLTV_ChurnRiskRankedByMonetary(t *testing.T) {
	records := []models.CustomerLTVRecord{
		{CustomerID: "fresh", RecencyDays: 5, Monetary: 9999},
		{CustomerID: "mid", RecencyDays: 45, Monetary: 500},
		{CustomerID: "whale", RecencyDays: 60, Monetary: 8000},
		{CustomerID: "edge", RecencyDays: 30, Monetary: 7000},
		{CustomerID: "small", RecencyDays: 90, Monetary: 100},
	}

	report, err := AnalyzeLTV(records, nil)
	require.NoError(t, err)

	// Strictly more than 30 days of silence qualifies; the highest-value
	// at-risk customers come first.
	require.Len(t, report.ChurnRisk, 3)
	assert.Equal(t, "whale", report.ChurnRisk[0].CustomerID)
	assert.Equal(t, "mid", report.ChurnRisk[1].CustomerID)
	assert.Equal(t, "small", report.ChurnRisk[2].CustomerID)
}

func TestAnalyzeLTV_ClusterRetentionFlags(t *testing.T) {
	records := []models.CustomerLTVRecord{
		{CustomerID: "a", Cluster: 1, RecencyDays: 30, LTVScore: 50},
		{CustomerID: "b", Cluster: 1, RecencyDays: 30, LTVScore: 50},
		{CustomerID: "c", Cluster: 2, RecencyDays: 30, LTVScore: 50},
	}
	intervals := []models.OrderIntervalRecord{
		{Cluster: 1, AvgIntervalDays: 20},
		{Cluster: 2, AvgIntervalDays: 40},
		{Cluster: 3, AvgIntervalDays: 15},
	}

	report, err := AnalyzeLTV(records, intervals)
	require.NoError(t, err)

	// Cluster 3 has no customers and is skipped.
	require.Len(t, report.Retention, 2)

	// Cluster 1: recency 30 against a 20-day cycle is past the slack
	// line. Cluster 2: 30 against 40 is fine.
	assert.True(t, report.Retention[0].RetentionRisk)
	assert.False(t, report.Retention[1].RetentionRisk)
	assert.InDelta(t, 30, report.Retention[0].AvgRecencyDays, 1e-9)
	assert.Equal(t, 2, report.Retention[0].Customers)
}

func TestAnalyzeLTV_NoIntervalsNoRetention(t *testing.T) {
	report, err := AnalyzeLTV(tenCustomers(), nil)
	require.NoError(t, err)
	assert.Nil(t, report.Retention)
}

func TestAnalyzeLTV_Unavailable(t *testing.T) {
	_, err := AnalyzeLTV(nil, nil)
	require.Error(t, err)

	var unavailable *DataUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "ltv", unavailable.Table)
}
