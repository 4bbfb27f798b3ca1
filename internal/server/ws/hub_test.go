package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

// localBus is an in-process SignalBus that delivers to every subscriber of an
// exact channel name. ready receives the channel name of every Subscribe call.
type localBus struct {
	mu    sync.Mutex
	subs  map[string][]chan []byte
	ready chan string
}

func newLocalBus() *localBus {
	return &localBus{subs: map[string][]chan []byte{}, ready: make(chan string, 8)}
}

func (b *localBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[channel] {
		ch <- payload
	}
	return nil
}

func (b *localBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 8)
	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()
	b.ready <- channel
	return ch, nil
}

func startHub(t *testing.T, bus domain.SignalBus) (*Hub, *websocket.Conn) {
	t.Helper()
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return hub, conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestHubSendsStatusOnConnect(t *testing.T) {
	_, conn := startHub(t, nil)

	msg := readJSON(t, conn)
	assert.Equal(t, "hub_status", msg["type"])
	payload := msg["payload"].(map[string]any)
	assert.Equal(t, false, payload["bus_connected"])
}

func TestHubRelaysBusMessages(t *testing.T) {
	bus := newLocalBus()
	_, conn := startHub(t, bus)
	for range DefaultChannels {
		<-bus.ready
	}
	// The status frame is written only after the hub registered the client.
	readJSON(t, conn)

	require.NoError(t, bus.Publish(context.Background(), domain.ChannelArb, []byte(`{"event_ticker":"EV-A"}`)))
	msg := readJSON(t, conn)
	assert.Equal(t, domain.ChannelArb, msg["channel"])
	assert.Equal(t, "EV-A", msg["data"].(map[string]any)["event_ticker"])
}

func TestClientSubscriptions(t *testing.T) {
	c := &client{subs: map[string]bool{domain.ChannelScan: true}}

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"ch:book:*"}})
	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.ChannelScan}})

	assert.False(t, c.isSubscribed(domain.ChannelScan))
	assert.True(t, c.isSubscribed("ch:book:EV-A"))
	assert.False(t, c.isSubscribed(domain.ChannelArb))
}

func TestCheckOrigin(t *testing.T) {
	allowed := []string{"http://localhost:5173"}
	assert.True(t, checkOrigin(allowed, ""))
	assert.True(t, checkOrigin(allowed, "http://LOCALHOST:5173"))
	assert.False(t, checkOrigin(allowed, "http://evil.example"))
	assert.True(t, checkOrigin(nil, "http://anything.example"))
}
