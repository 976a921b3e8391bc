package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/retailops/ims-analytics/internal/models"
)

// Finding is one templated, human-readable recommendation produced by the
// insight rule set.
type Finding struct {
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Products []string `json:"products,omitempty"`
	Channel  string   `json:"channel,omitempty"`
}

// insightRule pairs a rule name with its evaluation. Rules run in a fixed
// order and each emits at most one finding; a rule with no qualifying
// input is skipped.
type insightRule struct {
	name  string
	apply func(eff []models.ProductEfficiency, channels []GroupCount) *Finding
}

var insightRules = []insightRule{
	{name: "low-rpc", apply: lowRPCRule},
	{name: "high-ctr-low-rpc", apply: highCTRLowRPCRule},
	{name: "top-channel", apply: topChannelRule},
}

// GenerateInsights evaluates the business rule set against the product
// efficiency table and the per-channel order counts. The returned findings
// keep rule evaluation order. Pure function of the aggregates.
func GenerateInsights(eff []models.ProductEfficiency, channels []GroupCount) []Finding {
	var out []Finding
	for _, rule := range insightRules {
		if f := rule.apply(eff, channels); f != nil {
			f.Rule = rule.name
			out = append(out, *f)
		}
	}
	return out
}

// lowRPCRule names up to 3 products whose revenue per click is strictly
// below the median, in the order they appear in the input.
func lowRPCRule(eff []models.ProductEfficiency, _ []GroupCount) *Finding {
	medRPC := median(rpcValues(eff))
	var names []string
	for _, p := range eff {
		if p.RPC < medRPC {
			names = append(names, p.ProductName)
			if len(names) == 3 {
				break
			}
		}
	}
	if len(names) == 0 {
		return nil
	}
	return &Finding{
		Message: fmt.Sprintf(
			"Profitability warning: %s earn less per click than the median product. Review pricing and conversion elements on their detail pages.",
			strings.Join(names, ", ")),
		Products: names,
	}
}

// highCTRLowRPCRule takes the 2 lowest-RPC products among those with CTR
// above the median: traffic arrives but does not convert to payment.
func highCTRLowRPCRule(eff []models.ProductEfficiency, _ []GroupCount) *Finding {
	medCTR := median(ctrValues(eff))
	var candidates []models.ProductEfficiency
	for _, p := range eff {
		if p.CTRPct > medCTR {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].RPC < candidates[j].RPC })
	if len(candidates) > 2 {
		candidates = candidates[:2]
	}
	names := make([]string, len(candidates))
	for i, p := range candidates {
		names[i] = p.ProductName
	}
	return &Finding{
		Message: fmt.Sprintf(
			"Opportunity: %s draw strong traffic but little payment. Add urgency mechanisms such as limited stock or time-boxed sales.",
			strings.Join(names, ", ")),
		Products: names,
	}
}

// topChannelRule always emits when channel data exists: the channel with
// the highest order count wins, ties broken by first encounter.
func topChannelRule(_ []models.ProductEfficiency, channels []GroupCount) *Finding {
	if len(channels) == 0 {
		return nil
	}
	top := channels[0]
	for _, c := range channels[1:] {
		if c.Count > top.Count {
			top = c
		}
	}
	return &Finding{
		Message: fmt.Sprintf(
			"Channel performance: %s is currently the strongest inflow channel. Increase its budget by 15%% to press the advantage.",
			top.Key),
		Channel: top.Key,
	}
}

func rpcValues(eff []models.ProductEfficiency) []float64 {
	out := make([]float64, len(eff))
	for i, p := range eff {
		out[i] = p.RPC
	}
	return out
}

func ctrValues(eff []models.ProductEfficiency) []float64 {
	out := make([]float64, len(eff))
	for i, p := range eff {
		out[i] = p.CTRPct
	}
	return out
}
