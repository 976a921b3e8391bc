package engine

import (
	"sort"

	"github.com/retailops/ims-analytics/internal/models"
)

// ChannelPerformance is the derived spend/outcome view of one channel.
// ROAS and CPA degrade to 0 on zero denominators instead of failing.
type ChannelPerformance struct {
	Channel         string  `json:"channel"`
	Spend           float64 `json:"spend"`
	Revenue         float64 `json:"revenue"`
	Orders          int     `json:"orders"`
	ROAS            float64 `json:"roas"`
	CPA             float64 `json:"cpa"`
	RevenueSharePct float64 `json:"revenue_share_pct"`
	HighCPA         bool    `json:"high_cpa"`
}

// AttributionReport ranks channels by ROAS for budget prioritization and
// flags channels whose CPA runs above the cross-channel mean.
type AttributionReport struct {
	Channels        []ChannelPerformance `json:"channels"`
	MeanCPA         float64              `json:"mean_cpa"`
	TopROASChannel  string               `json:"top_roas_channel"`
	HighCPAChannels []string             `json:"high_cpa_channels,omitempty"`
}

// AnalyzeAttribution computes per-channel ROAS, CPA and revenue share.
// Channels are returned ranked by ROAS descending. With no attribution
// table loaded the result is a DataUnavailableError.
func AnalyzeAttribution(records []models.ChannelAttributionRecord) (*AttributionReport, error) {
	if len(records) == 0 {
		return nil, &DataUnavailableError{Table: "attribution"}
	}

	var totalRevenue float64
	for _, r := range records {
		totalRevenue += r.Revenue
	}

	channels := make([]ChannelPerformance, 0, len(records))
	var cpaSum float64
	for _, r := range records {
		perf := ChannelPerformance{
			Channel:         r.Channel,
			Spend:           r.Spend,
			Revenue:         r.Revenue,
			Orders:          r.Orders,
			ROAS:            safeDiv(r.Revenue, r.Spend) * 100,
			CPA:             safeDiv(r.Spend, float64(r.Orders)),
			RevenueSharePct: safeDiv(r.Revenue, totalRevenue) * 100,
		}
		cpaSum += perf.CPA
		channels = append(channels, perf)
	}

	report := &AttributionReport{
		Channels: channels,
		MeanCPA:  cpaSum / float64(len(channels)),
	}
	for i := range channels {
		if channels[i].CPA > report.MeanCPA {
			channels[i].HighCPA = true
			report.HighCPAChannels = append(report.HighCPAChannels, channels[i].Channel)
		}
	}

	sort.SliceStable(channels, func(i, j int) bool { return channels[i].ROAS > channels[j].ROAS })
	report.TopROASChannel = channels[0].Channel
	return report, nil
}
