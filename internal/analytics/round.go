package analytics

import "github.com/shopspring/decimal"

// round rounds v half away from zero to the given number of decimal places.
// Going through decimal avoids binary artifacts such as 9.299999999.
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func ptr(v float64) *float64 {
	return &v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
