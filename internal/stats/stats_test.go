package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearRegression_PerfectLine(t *testing.T) {
	// y = 2x + 1
	ys := []float64{1, 3, 5, 7, 9}

	fit, err := LinearRegression(ys)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, fit.Slope, 1e-9)
	assert.InDelta(t, 1.0, fit.Intercept, 1e-9)
	assert.InDelta(t, 1.0, fit.RSquared, 1e-9)

	// Zero residuals collapse the confidence interval onto the slope.
	assert.InDelta(t, fit.Slope, fit.ConfidenceLow, 1e-9)
	assert.InDelta(t, fit.Slope, fit.ConfidenceHigh, 1e-9)
}

func TestLinearRegression_NegativeSlope(t *testing.T) {
	ys := []float64{10, 8, 6, 4}

	fit, err := LinearRegression(ys)
	require.NoError(t, err)
	assert.InDelta(t, -2.0, fit.Slope, 1e-9)
	assert.InDelta(t, 1.0, fit.RSquared, 1e-9)
}

func TestLinearRegression_TooFewPoints(t *testing.T) {
	tests := []struct {
		name string
		ys   []float64
	}{
		{"empty", nil},
		{"one point", []float64{5}},
		{"two points", []float64{5, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LinearRegression(tt.ys)
			assert.ErrorIs(t, err, ErrTooFewPoints)
		})
	}
}

func TestLinearRegression_NoisySeries(t *testing.T) {
	ys := []float64{1, 4, 4, 8, 9}

	fit, err := LinearRegression(ys)
	require.NoError(t, err)
	assert.Greater(t, fit.Slope, 0.0)
	assert.Less(t, fit.RSquared, 1.0)
	assert.Greater(t, fit.RSquared, 0.8)
	assert.Less(t, fit.ConfidenceLow, fit.ConfidenceHigh)
}

func TestMeanAndStdDev(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(xs), 1e-9)
	assert.InDelta(t, 2.0, StdDev(xs), 1e-9)

	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev(nil))
}

func TestZScore(t *testing.T) {
	assert.InDelta(t, 2.0, ZScore(9, 5, 2), 1e-9)
	assert.InDelta(t, -1.5, ZScore(2, 5, 2), 1e-9)
	assert.Equal(t, 0.0, ZScore(9, 5, 0))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float64
		want    float64
		wantErr error
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1.0, nil},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.0, nil},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1.0, nil},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0.0, nil},
		{"mismatched", []float64{1}, []float64{1, 2}, 0, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestHaversineKm(t *testing.T) {
	// San Francisco to Los Angeles, roughly 559 km.
	d := HaversineKm(37.7749, -122.4194, 34.0522, -118.2437)
	assert.InDelta(t, 559, d, 5)

	// Same point.
	assert.InDelta(t, 0, HaversineKm(40, -74, 40, -74), 1e-9)

	// Symmetry.
	assert.InDelta(t,
		HaversineKm(51.5, -0.1, 48.85, 2.35),
		HaversineKm(48.85, 2.35, 51.5, -0.1),
		1e-9)
}

func TestHaversineKm_AntipodalBounded(t *testing.T) {
	d := HaversineKm(0, 0, 0, 180)
	assert.InDelta(t, math.Pi*earthRadiusKm, d, 1)
}
