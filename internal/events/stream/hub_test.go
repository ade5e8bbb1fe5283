package stream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvestcert/internal/certification/models"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestHub(t *testing.T, opts ...Option) (*Hub, *httptest.Server) {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	hub := NewHub(opts...)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Subscribers() == n }, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) models.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var e models.Event
	require.NoError(t, json.Unmarshal(msg, &e))
	return e
}

func TestHubBroadcastsInOrder(t *testing.T) {
	hub, srv := newTestHub(t)
	a := dial(t, srv, "")
	b := dial(t, srv, "")
	waitForSubscribers(t, hub, 2)

	events := []models.Event{
		models.HarvestCertified("BATCH001", 85, "bob", now),
		models.CertificationStatusChanged("BATCH001", models.StatusCertified, now),
	}
	require.NoError(t, hub.Publish(context.Background(), events))

	for _, conn := range []*websocket.Conn{a, b} {
		assert.Equal(t, models.EventHarvestCertified, readEvent(t, conn).Type)
		second := readEvent(t, conn)
		assert.Equal(t, models.EventCertificationStatusChanged, second.Type)
		assert.Equal(t, models.StatusCertified, second.Status)
	}
}

func TestHubFiltersByBatch(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "?batch_id=BATCH002")
	waitForSubscribers(t, hub, 1)

	require.NoError(t, hub.Publish(context.Background(), []models.Event{
		models.HarvestRegistered("BATCH001", "FAC001", 5000, now),
		models.HarvestRegistered("BATCH002", "FAC001", 3000, now),
	}))

	e := readEvent(t, conn)
	assert.Equal(t, "BATCH002", string(e.BatchID))
	assert.Equal(t, uint64(3000), e.Weight)
}

func TestHubForgetsDisconnectedClients(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "")
	waitForSubscribers(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForSubscribers(t, hub, 0)

	assert.NoError(t, hub.Publish(context.Background(), []models.Event{
		models.TelemetryVerified("BATCH001", "DEV1", now),
	}))
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewHub(WithBuffer(1), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	c := &client{id: "slow", send: make(chan []byte, 1)}
	hub.add(c)

	events := []models.Event{
		models.HarvestRegistered("BATCH001", "FAC001", 1, now),
		models.HarvestRegistered("BATCH002", "FAC001", 1, now),
	}
	require.NoError(t, hub.Publish(context.Background(), events))

	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-c.send
	assert.True(t, ok, "queued message is still delivered")
	_, ok = <-c.send
	assert.False(t, ok, "channel closed after removal")
}
