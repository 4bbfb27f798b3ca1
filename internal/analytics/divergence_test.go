package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

func TestAnalyzeDivergence_Directions(t *testing.T) {
	tests := []struct {
		name      string
		target    []int
		candidate []int
		want      string
		gap       float64
	}{
		{"target up match down", []int{60, 60, 60, 50, 50, 50}, []int{40, 40, 50, 50, 50}, domain.DivergenceTargetUp, 0},
		{"target down match up", []int{40, 40, 40, 50, 50, 50}, []int{55, 55, 55, 50, 50, 50}, domain.DivergenceTargetDown, 15},
		{"both up diverging", []int{70, 70, 70, 50, 50, 50}, []int{55, 55, 55, 50, 50, 50}, domain.DivergenceBothUp, 15},
		{"both up close", []int{54, 54, 54, 50, 50, 50}, []int{53, 53, 53, 50, 50, 50}, domain.DivergenceNeutral, 1},
		{"both down diverging", []int{30, 30, 30, 50, 50, 50}, []int{45, 45, 45, 50, 50, 50}, domain.DivergenceBothDown, 15},
		{"dead zone", []int{51, 51, 51, 50, 50, 50}, []int{49, 49, 49, 50, 50, 50}, domain.DivergenceNeutral, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := AnalyzeDivergence(tradesAt(tt.target...), tradesAt(tt.candidate...))
			require.NotNil(t, d)
			assert.Equal(t, tt.want, d.Direction)
			if tt.gap != 0 {
				assert.Equal(t, tt.gap, d.Divergence)
			}
		})
	}
}

func TestAnalyzeDivergence_ThreeTradesOverlap(t *testing.T) {
	// With exactly three trades the recent and older windows coincide.
	d := AnalyzeDivergence(tradesAt(10, 20, 30), tradesAt(40, 50, 60))
	require.NotNil(t, d)
	assert.Equal(t, 0.0, d.TargetDelta)
	assert.Equal(t, 0.0, d.CandidateDelta)
	assert.Equal(t, domain.DivergenceNeutral, d.Direction)
}

func TestAnalyzeDivergence_Rounding(t *testing.T) {
	d := AnalyzeDivergence(tradesAt(61, 60, 60, 50, 50, 50), tradesAt(50, 50, 50, 50, 50, 50))
	require.NotNil(t, d)
	assert.Equal(t, 10.3, d.TargetDelta)
	assert.Equal(t, 10.3, d.Divergence)
}

func TestAnalyzeDivergence_Insufficient(t *testing.T) {
	assert.Nil(t, AnalyzeDivergence(tradesAt(1, 2), tradesAt(1, 2, 3)))
	assert.Nil(t, AnalyzeDivergence(tradesAt(1, 2, 3), nil))
}
