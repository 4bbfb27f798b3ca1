package analytics

import "math"

// Normalize rescales prices linearly so the minimum maps to 0 and the maximum
// to 100. A constant series maps to all 50s; an empty series to an empty one.
func Normalize(prices []float64) []float64 {
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out
	}

	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}

	span := hi - lo
	for i, p := range prices {
		if span == 0 {
			out[i] = NormalizedMidpoint
			continue
		}
		out[i] = (p - lo) / span * normalizedRange
	}
	return out
}

// Pearson returns the linear correlation of a and b aligned on their first
// min(len(a), len(b)) elements. ok is false when the overlap is shorter than
// MinCorrelationPoints. A series with zero variance yields (0, true): no
// linear relationship is measurable, which differs from not enough data.
func Pearson(a, b []float64) (float64, bool) {
	n := min(len(a), len(b))
	if n < MinCorrelationPoints {
		return 0, false
	}
	a, b = a[:n], b[:n]

	ma, mb := mean(a), mean(b)
	var cov, va, vb float64
	for i := 0; i < n; i++ {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}

	den := math.Sqrt(va * vb)
	if den == 0 {
		return 0, true
	}
	r := cov / den
	// Clamp float noise so |r| never exceeds 1.
	return math.Max(-1, math.Min(1, r)), true
}

// slope is the ordinary-least-squares slope of ys against their index.
func slope(ys []float64) float64 {
	n := float64(len(ys))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	den := n*sumX2 - sumX*sumX
	if den == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / den
}
