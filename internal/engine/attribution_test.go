package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/ims-analytics/internal/models"
)

func sampleAttribution() []models.ChannelAttributionRecord {
	return []models.ChannelAttributionRecord{
		{Channel: "search", Spend: 1000, Revenue: 3000, Orders: 10},
		{Channel: "organic", Spend: 0, Revenue: 1000, Orders: 5},
		{Channel: "display", Spend: 500, Revenue: 1000, Orders: 2},
	}
}

func TestAnalyzeAttribution_DerivedMetrics(t *testing.T) {
	report, err := AnalyzeAttribution(sampleAttribution())
	require.NoError(t, err)
	require.Len(t, report.Channels, 3)

	// Ranked by ROAS descending: search 300, display 200, organic 0.
	assert.Equal(t, "search", report.Channels[0].Channel)
	assert.InDelta(t, 300, report.Channels[0].ROAS, 1e-9)
	assert.InDelta(t, 100, report.Channels[0].CPA, 1e-9)
	assert.Equal(t, "display", report.Channels[1].Channel)
	assert.InDelta(t, 200, report.Channels[1].ROAS, 1e-9)
	assert.Equal(t, "search", report.TopROASChannel)
}

func TestAnalyzeAttribution_ZeroSpendDoesNotRaise(t *testing.T) {
	report, err := AnalyzeAttribution(sampleAttribution())
	require.NoError(t, err)

	organic := report.Channels[2]
	require.Equal(t, "organic", organic.Channel)
	assert.InDelta(t, 0, organic.ROAS, 1e-9)
	assert.InDelta(t, 0, organic.CPA, 1e-9)
}

func TestAnalyzeAttribution_ZeroOrdersCPA(t *testing.T) {
	report, err := AnalyzeAttribution([]models.ChannelAttributionRecord{
		{Channel: "dead", Spend: 100, Revenue: 0, Orders: 0},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0, report.Channels[0].CPA, 1e-9)
}

func TestAnalyzeAttribution_RevenueSharesSumTo100(t *testing.T) {
	report, err := AnalyzeAttribution(sampleAttribution())
	require.NoError(t, err)

	var total float64
	for _, c := range report.Channels {
		total += c.RevenueSharePct
	}
	assert.InDelta(t, 100, total, 1e-6)
}

func TestAnalyzeAttribution_HighCPAFlags(t *testing.T) {
	report, err := AnalyzeAttribution(sampleAttribution())
	require.NoError(t, err)

	// Mean CPA = (100 + 0 + 250)/3: only display runs above it.
	assert.InDelta(t, 350.0/3, report.MeanCPA, 1e-9)
	assert.Equal(t, []string{"display"}, report.HighCPAChannels)

	for _, c := range report.Channels {
		if c.Channel == "display" {
			assert.True(t, c.HighCPA)
		} else {
			assert.False(t, c.HighCPA)
		}
	}
}

func TestAnalyzeAttribution_Unavailable(t *testing.T) {
	_, err := AnalyzeAttribution(nil)
	require.Error(t, err)

	var unavailable *DataUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "attribution", unavailable.Table)
}
