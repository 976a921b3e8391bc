package engine

import (
	"time"
)

// ForecastWindow is the maximum number of trailing daily points the trend
// is fitted on.
const ForecastWindow = 30

// DefaultHorizon is the number of future days projected when the caller
// does not ask for a specific horizon.
const DefaultHorizon = 7

// ForecastPoint is one projected future day.
type ForecastPoint struct {
	Date    time.Time `json:"date"`
	Revenue float64   `json:"revenue"`
}

// FitTrend fits an ordinary-least-squares line y = slope*x + intercept to
// points indexed 0..n-1. It needs at least 2 points.
func FitTrend(ys []float64) (slope, intercept float64, err error) {
	n := len(ys)
	if n < 2 {
		return 0, 0, &InsufficientDataError{Op: "linear fit", Need: 2, Got: n}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	slope = (fn*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / fn
	return slope, intercept, nil
}

// Forecast projects horizon future days of revenue from a linear trend
// fitted on the last ForecastWindow points of the daily series. Projected
// dates are contiguous calendar days after the last observed date,
// regardless of gaps in history, and projected revenue is clamped at 0.
//
// This is a naive linear extrapolation, not a seasonal model; it is a
// known approximation carried over from the source analysis.
func Forecast(daily []DailyPoint, horizon int) ([]ForecastPoint, error) {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	window := daily
	if len(window) > ForecastWindow {
		window = window[len(window)-ForecastWindow:]
	}
	if len(window) < 2 {
		return nil, &InsufficientDataError{Op: "revenue forecast", Need: 2, Got: len(window)}
	}

	ys := make([]float64, len(window))
	for i, p := range window {
		ys[i] = p.Revenue
	}
	slope, intercept, err := FitTrend(ys)
	if err != nil {
		return nil, err
	}

	lastDate := window[len(window)-1].Date
	out := make([]ForecastPoint, horizon)
	for i := 0; i < horizon; i++ {
		x := float64(len(window) + i)
		predicted := slope*x + intercept
		if predicted < 0 {
			predicted = 0
		}
		out[i] = ForecastPoint{
			Date:    lastDate.AddDate(0, 0, i+1),
			Revenue: predicted,
		}
	}
	return out, nil
}
