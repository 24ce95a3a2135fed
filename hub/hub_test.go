package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHubServer(t *testing.T, h *Hub) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := h.Register(conn, r.URL.Query().Get("restaurant"))
		client.ReadLoop()
		h.Unregister(client)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, restaurantID string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?restaurant=" + restaurantID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, restaurantID string, n int) {
	require.Eventually(t, func() bool { return h.ClientCount(restaurantID) == n }, time.Second, 10*time.Millisecond)
}

func TestBroadcastReachesOnlyThatRestaurant(t *testing.T) {
	h := New()
	srv := startHubServer(t, h)

	mine := dial(t, srv, "r1")
	other := dial(t, srv, "r2")
	waitForClients(t, h, "r1", 1)
	waitForClients(t, h, "r2", 1)

	h.Broadcast("r1", Message{Event: EventSeatingChart, Data: map[string]int{"available": 3}})

	_ = mine.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := mine.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, EventSeatingChart, msg.Event)
	assert.Equal(t, "r1", msg.RestaurantID)

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "other restaurant must not receive the message")
}

func TestUnregisterOnDisconnect(t *testing.T) {
	h := New()
	srv := startHubServer(t, h)

	conn := dial(t, srv, "r1")
	waitForClients(t, h, "r1", 1)

	conn.Close()
	waitForClients(t, h, "r1", 0)

	// Broadcasting to a restaurant without sockets is a no-op.
	h.Broadcast("r1", Message{Event: EventReservationCreated})
}

func TestCloseDisconnectsClients(t *testing.T) {
	h := New()
	srv := startHubServer(t, h)

	conn := dial(t, srv, "r1")
	waitForClients(t, h, "r1", 1)

	h.Close()
	assert.Equal(t, 0, h.ClientCount("r1"))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
