// Package stats provides the deterministic numeric routines behind the
// analysis tools: ordinary least-squares regression, z-scores, cosine
// similarity and great-circle distance.
//
// Everything in this package is pure: no store access, no clock, no
// randomness. The tool layer feeds it prepared series and consumes the
// numbers unchanged, which keeps the math testable without a reasoning
// engine or a populated corpus.
package stats

import (
	"errors"
	"math"
)

var (
	// ErrTooFewPoints indicates a series too short for a meaningful fit.
	ErrTooFewPoints = errors.New("too few data points")

	// ErrDimensionMismatch indicates vectors of unequal length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// LinearFit is the result of an ordinary least-squares regression.
type LinearFit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`

	// ConfidenceLow and ConfidenceHigh bound the slope at roughly 95%
	// (slope ± 1.96 standard errors).
	ConfidenceLow  float64 `json:"confidence_low"`
	ConfidenceHigh float64 `json:"confidence_high"`
}

// LinearRegression fits y = slope*x + intercept over equally indexed points
// (x = 0, 1, 2, ...). It requires at least 3 points.
//
// For a perfectly linear series the residual sum of squares is zero and
// RSquared is exactly 1.
func LinearRegression(ys []float64) (LinearFit, error) {
	n := len(ys)
	if n < 3 {
		return LinearFit{}, ErrTooFewPoints
	}

	fn := float64(n)
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return LinearFit{}, ErrTooFewPoints
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	// Coefficient of determination.
	meanY := sumY / fn
	var ssTot, ssRes float64
	for i, y := range ys {
		pred := slope*float64(i) + intercept
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - meanY) * (y - meanY)
	}

	rSquared := 1.0
	if ssTot > 0 {
		rSquared = 1.0 - ssRes/ssTot
	}

	// Standard error of the slope; zero residuals give a zero-width interval.
	var se float64
	if n > 2 && denom > 0 {
		mse := ssRes / float64(n-2)
		se = math.Sqrt(mse * fn / denom)
	}

	return LinearFit{
		Slope:          slope,
		Intercept:      intercept,
		RSquared:       rSquared,
		ConfidenceLow:  slope - 1.96*se,
		ConfidenceHigh: slope + 1.96*se,
	}, nil
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation of xs.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := Mean(xs)
	var sum float64
	for _, x := range xs {
		sum += (x - mean) * (x - mean)
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// ZScore returns how many standard deviations x sits from the mean.
// A zero deviation yields 0 rather than an infinity.
func ZScore(x, mean, stddev float64) float64 {
	if stddev == 0 {
		return 0
	}
	return (x - mean) / stddev
}

// CosineSimilarity returns the cosine of the angle between a and b in [−1, 1].
// Zero vectors yield 0.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two
// latitude/longitude points.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
