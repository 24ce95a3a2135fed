package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/reservation-app/utils"
)

// Event types
const (
	EventSeatingChart        = "seating_chart"
	EventReservationCreated  = "reservation_created"
	EventReservationUpdated  = "reservation_updated"
	EventReservationDeleted  = "reservation_deleted"
	EventReservationComplete = "reservation_completed"
	EventReservationDenied   = "reservation_denied"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 32
)

type Message struct {
	Event        string      `json:"event"`
	RestaurantID string      `json:"restaurant_id"`
	Data         interface{} `json:"data"`
}

// Client is one owner websocket. Writes go through its own goroutine, so a
// slow socket never blocks a broadcast.
type Client struct {
	conn         *websocket.Conn
	restaurantID string
	send         chan []byte
	closeOnce    sync.Once
}

// Hub fans messages out to the sockets of each restaurant.
type Hub struct {
	mutex   sync.Mutex
	clients map[string]map[*Client]struct{}
}

func New() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// Register adds conn under the restaurant and starts its writer.
func (h *Hub) Register(conn *websocket.Conn, restaurantID string) *Client {
	client := &Client{conn: conn, restaurantID: restaurantID, send: make(chan []byte, sendBuffer)}

	h.mutex.Lock()
	if h.clients[restaurantID] == nil {
		h.clients[restaurantID] = make(map[*Client]struct{})
	}
	h.clients[restaurantID][client] = struct{}{}
	h.mutex.Unlock()

	go client.writePump()
	return client
}

// Unregister removes the client and closes its socket.
func (h *Hub) Unregister(client *Client) {
	h.mutex.Lock()
	if set, ok := h.clients[client.restaurantID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.clients, client.restaurantID)
		}
	}
	h.mutex.Unlock()
	client.close()
}

// Broadcast sends msg to every socket of the restaurant. A client whose
// buffer is full is dropped.
func (h *Hub) Broadcast(restaurantID string, msg Message) {
	msg.RestaurantID = restaurantID
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	var stale []*Client
	for client := range h.clients[restaurantID] {
		select {
		case client.send <- data:
		default:
			stale = append(stale, client)
		}
	}
	h.mutex.Unlock()

	for _, client := range stale {
		utils.ErrorLogger.Warnf("Dropping slow websocket client of restaurant %s", restaurantID)
		h.Unregister(client)
	}
}

func (h *Hub) ClientCount(restaurantID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[restaurantID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mutex.Lock()
	var all []*Client
	for _, set := range h.clients {
		for client := range set {
			all = append(all, client)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.mutex.Unlock()

	for _, client := range all {
		client.close()
	}
}

// ReadLoop blocks until the peer goes away, discarding inbound frames.
func (c *Client) ReadLoop() {
	c.conn.SetReadLimit(4096)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				utils.ErrorLogger.Warnf("Error sending message to client: %v", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
