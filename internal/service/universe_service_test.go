package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

func TestUniverseService_Refresh(t *testing.T) {
	f := newFakeFetcher()
	f.events["open"] = []domain.Event{
		{EventTicker: "FED", Title: "Fed decision", Markets: []domain.Market{{Ticker: "FED-A"}, {Ticker: "FED-B"}}},
		{EventTicker: "CPI", Title: "CPI print", Markets: []domain.Market{{Ticker: "CPI-A"}}},
	}
	f.events["unopened"] = []domain.Event{
		{EventTicker: "FED", Title: "Fed decision", Markets: []domain.Market{{Ticker: "FED-A"}, {Ticker: "FED-B"}}},
		{EventTicker: "GDP", Title: "GDP growth", Markets: []domain.Market{{Ticker: "GDP-A"}}},
	}

	svc := NewUniverseService(f, UniverseConfig{Statuses: []string{"open", "unopened"}}, nil, discardLogger())
	assert.False(t, svc.Loaded())
	assert.Nil(t, svc.Markets())

	require.NoError(t, svc.Refresh(context.Background()))
	assert.True(t, svc.Loaded())
	assert.False(t, svc.LoadedAt().IsZero())
	assert.Len(t, svc.Events(), 3)
	assert.Len(t, svc.Markets(), 4)

	m, ok := svc.Lookup("FED-B")
	require.True(t, ok)
	assert.Equal(t, "FED", m.EventTicker)
	assert.Equal(t, "Fed decision", m.EventTitle)

	_, ok = svc.Lookup("NOPE")
	assert.False(t, ok)
}

func TestUniverseService_RefreshErrorKeepsSnapshot(t *testing.T) {
	f := newFakeFetcher()
	f.events["open"] = []domain.Event{
		{EventTicker: "FED", Markets: []domain.Market{{Ticker: "FED-A"}}},
	}
	svc := NewUniverseService(f, UniverseConfig{}, nil, discardLogger())
	require.NoError(t, svc.Refresh(context.Background()))

	f.mu.Lock()
	f.errs["events:open"] = errors.New("upstream down")
	f.mu.Unlock()

	err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "universe_service: refresh")
	_, ok := svc.Lookup("FED-A")
	assert.True(t, ok)
}

func TestUniverseService_RunLoopStops(t *testing.T) {
	f := newFakeFetcher()
	svc := NewUniverseService(f, UniverseConfig{}, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.RunLoop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
