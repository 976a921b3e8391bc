package engine

// AnomalyStatus classifies the most recent day against the trailing
// baseline.
type AnomalyStatus string

const (
	StatusSurge  AnomalyStatus = "SURGE"
	StatusDrop   AnomalyStatus = "DROP"
	StatusNormal AnomalyStatus = "NORMAL"
)

// AnomalyResult is the classification of the latest daily revenue plus the
// baseline magnitudes it was judged against.
type AnomalyResult struct {
	Status AnomalyStatus `json:"status"`
	Latest float64       `json:"latest"`
	Mean   float64       `json:"mean"`
	StdDev float64       `json:"stddev"`
}

// DetectAnomaly flags abnormal recent performance. The baseline is the
// mean and sample standard deviation of the entire series, including the
// evaluated point. The thresholds are intentionally asymmetric: a surge
// needs latest > mean + 2 sigma, a drop only latest < mean - 1.5 sigma, so
// drops are flagged more sensitively than surges are celebrated.
//
// With fewer than 2 points the deviation is undefined and the status is
// NORMAL. An empty series is an InsufficientDataError.
func DetectAnomaly(daily []DailyPoint) (*AnomalyResult, error) {
	if len(daily) == 0 {
		return nil, &InsufficientDataError{Op: "anomaly baseline", Need: 1, Got: 0}
	}

	revenues := make([]float64, len(daily))
	for i, p := range daily {
		revenues[i] = p.Revenue
	}

	res := &AnomalyResult{
		Status: StatusNormal,
		Latest: revenues[len(revenues)-1],
		Mean:   mean(revenues),
		StdDev: stddev(revenues),
	}
	if len(revenues) < 2 {
		return res, nil
	}

	switch {
	case res.Latest > res.Mean+2*res.StdDev:
		res.Status = StatusSurge
	case res.Latest < res.Mean-1.5*res.StdDev:
		res.Status = StatusDrop
	}
	return res, nil
}
