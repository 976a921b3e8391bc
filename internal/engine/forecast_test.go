package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitTrend_ExactLine(t *testing.T) {
	ys := make([]float64, 10)
	for i := range ys {
		ys[i] = 5*float64(i) + 100
	}

	slope, intercept, err := FitTrend(ys)
	require.NoError(t, err)
	assert.InDelta(t, 5, slope, 1e-9)
	assert.InDelta(t, 100, intercept, 1e-9)
}

func TestFitTrend_TooFewPoints(t *testing.T) {
	_, _, err := FitTrend([]float64{42})
	require.Error(t, err)

	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 2, insufficient.Need)
	assert.Equal(t, 1, insufficient.Got)
}

func TestForecast_ReproducesLinearSeries(t *testing.T) {
	daily := make([]DailyPoint, 10)
	for i := range daily {
		daily[i] = DailyPoint{Date: day(i + 1), Revenue: 5*float64(i) + 100}
	}

	points, err := Forecast(daily, 7)
	require.NoError(t, err)
	require.Len(t, points, 7)

	for i, p := range points {
		// Noise-free input: every forecast lies on the exact line.
		assert.InDelta(t, 5*float64(10+i)+100, p.Revenue, 1e-6)
		assert.Equal(t, day(10).AddDate(0, 0, i+1), p.Date)
	}
}

func TestForecast_ContiguousDatesDespiteGaps(t *testing.T) {
	daily := []DailyPoint{
		{Date: day(1), Revenue: 100},
		{Date: day(5), Revenue: 200},
		{Date: day(9), Revenue: 300},
	}

	points, err := Forecast(daily, 3)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, day(10), points[0].Date)
	assert.Equal(t, day(11), points[1].Date)
	assert.Equal(t, day(12), points[2].Date)
}

func TestForecast_ClampsNegativeProjections(t *testing.T) {
	daily := make([]DailyPoint, 5)
	for i := range daily {
		daily[i] = DailyPoint{Date: day(i + 1), Revenue: 1000 - 300*float64(i)}
	}

	points, err := Forecast(daily, 7)
	require.NoError(t, err)
	for _, p := range points {
		assert.GreaterOrEqual(t, p.Revenue, 0.0)
	}
	// The steep negative slope drives the tail of the horizon to the
	// floor.
	assert.Equal(t, 0.0, points[6].Revenue)
}

func TestForecast_UsesTrailingWindowOnly(t *testing.T) {
	// 10 wild leading points followed by 30 exactly linear ones: only
	// the trailing window may shape the fit.
	daily := make([]DailyPoint, 40)
	for i := 0; i < 10; i++ {
		daily[i] = DailyPoint{Date: day(1).AddDate(0, 0, i), Revenue: 1e9}
	}
	for i := 10; i < 40; i++ {
		daily[i] = DailyPoint{Date: day(1).AddDate(0, 0, i), Revenue: 2*float64(i-10) + 50}
	}

	points, err := Forecast(daily, 1)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 2*30+50, points[0].Revenue, 1e-6)
}

func TestForecast_DefaultHorizon(t *testing.T) {
	daily := dailySeries(1, 2, 3)
	points, err := Forecast(daily, 0)
	require.NoError(t, err)
	assert.Len(t, points, DefaultHorizon)
}

func TestForecast_InsufficientData(t *testing.T) {
	_, err := Forecast(dailySeries(100), 7)
	require.Error(t, err)

	var insufficient *InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}
