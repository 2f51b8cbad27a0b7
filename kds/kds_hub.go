package kds

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/qr-table-order/utils"
)

// Event types
const (
	EventTableUpdate    = "table_update"
	EventOrderCreated   = "order_created"
	EventOrderUpdate    = "order_update"
	EventRequestCreated = "request_created"
	EventRequestUpdate  = "request_update"
	EventDeviceUpdate   = "device_update"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	role string
	mu   sync.Mutex
}

// Hub fans dashboard events out to every connected staff client.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

// Register -> menambahkan connection ke set dengan role
func (h *Hub) Register(conn *websocket.Conn, role string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = &client{conn: conn, role: role}
}

// Unregister -> melepaskan connection. Only the call that removes it from
// the set closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mutex.Unlock()
	if ok {
		conn.Close()
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Printf("kds: marshal %s: %v", event, err)
		return
	}

	h.mutex.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mutex.RUnlock()

	for _, c := range targets {
		c.mu.Lock()
		err := c.conn.WriteMessage(websocket.TextMessage, payload)
		c.mu.Unlock()
		if err != nil {
			utils.ErrorLogger.Printf("kds: send %s to %s client: %v", event, c.role, err)
			h.Unregister(c.conn)
		}
	}
}
