package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

func eventWithPrices(ticker string, prices ...*int) domain.Event {
	e := domain.Event{EventTicker: ticker, Title: ticker + " title"}
	for _, p := range prices {
		e.Markets = append(e.Markets, domain.Market{Ticker: ticker + "-M", LastPrice: p})
	}
	return e
}

func TestDetect_FairlyPriced(t *testing.T) {
	r := Detect(eventWithPrices("E", domain.Cents(30), domain.Cents(45), domain.Cents(25)))
	require.NotNil(t, r)
	assert.Equal(t, 100.0, r.TotalImpliedPct)
	assert.Equal(t, 0.0, r.Overround)
	assert.False(t, r.IsMispriced)
	assert.Equal(t, 3, r.PricedMarkets)
}

func TestDetect_Overpriced(t *testing.T) {
	r := Detect(eventWithPrices("E", domain.Cents(60), domain.Cents(60)))
	require.NotNil(t, r)
	assert.Equal(t, 120.0, r.TotalImpliedPct)
	assert.Equal(t, 20.0, r.Overround)
	assert.True(t, r.IsMispriced)
}

func TestDetect_Underpriced(t *testing.T) {
	r := Detect(eventWithPrices("E", domain.Cents(20), domain.Cents(30), domain.Cents(10)))
	require.NotNil(t, r)
	assert.Equal(t, -40.0, r.Overround)
	assert.True(t, r.IsMispriced)
}

func TestDetect_ThresholdIsExclusive(t *testing.T) {
	r := Detect(eventWithPrices("E", domain.Cents(57), domain.Cents(58)))
	require.NotNil(t, r)
	assert.Equal(t, 15.0, r.Overround)
	assert.False(t, r.IsMispriced)
}

func TestDetect_SkipsUnpricedAndZero(t *testing.T) {
	r := Detect(eventWithPrices("E", domain.Cents(40), nil, domain.Cents(0), domain.Cents(50)))
	require.NotNil(t, r)
	assert.Equal(t, 2, r.PricedMarkets)
	assert.Equal(t, 4, r.MarketCount)
	assert.Equal(t, -10.0, r.Overround)
}

func TestDetect_TooFewPriced(t *testing.T) {
	assert.Nil(t, Detect(domain.Event{}))
	assert.Nil(t, Detect(eventWithPrices("E", domain.Cents(90))))
	assert.Nil(t, Detect(eventWithPrices("E", domain.Cents(90), nil, domain.Cents(0))))
}
