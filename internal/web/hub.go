package web

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"rtk-rover/internal/ubx"
)

// Hub pushes decoded fixes to websocket clients so the map view updates
// without polling. Slow clients are dropped rather than allowed to stall
// the broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}

	upgrader websocket.Upgrader
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 16),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("ws client connected (%d total)", total)

	// Writer.
	go func() {
		defer func() { _ = conn.Close() }()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	// Reader, for close detection only.
	go func() {
		defer h.drop(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("ws client disconnected (%d total)", total)
}

// BroadcastFix fans a decoded fix out to every connected client. Safe to
// call from the tick loop; never blocks.
func (h *Hub) BroadcastFix(fix ubx.PositionFix) {
	msg, err := json.Marshal(fix)
	if err != nil {
		return
	}

	h.mu.Lock()
	var stalled []*wsClient
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.Unlock()

	for _, client := range stalled {
		h.drop(client)
		_ = client.conn.Close()
	}
}

// ClientCount reports connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
