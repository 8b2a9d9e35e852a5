// Package websocket pushes server events to connected browsers, grouped in rooms.
package websocket

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"ContentStudio-server/metrics"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// AdminRoom receives events addressed to every administrator.
const AdminRoom = "admins"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Message is the frame written to clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type Client struct {
	conn   *websocket.Conn
	UserID uint
	send   chan []byte
	rooms  []string
	once   sync.Once
}

type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

// NewHub builds a hub accepting the given origins. An empty list or "*" allows
// any origin; requests without an Origin header are always allowed.
func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		rooms: make(map[string]map[*Client]bool),
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(strings.TrimRight(a, "/"), origin) {
				return true
			}
		}
		log.Warn("websocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[c] = true
	if !slices.Contains(c.rooms, room) {
		c.rooms = append(c.rooms, room)
	}
}

// Leave removes c from every room it joined and closes its send channel.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	for _, room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()
	c.once.Do(func() { close(c.send) })
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Emit sends event to every client in room. Clients whose buffer is full are
// disconnected.
func (h *Hub) Emit(room, event string, data any) {
	msg, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		log.Error("marshal websocket event failed", "event", event, "err", err)
		return
	}

	h.mu.RLock()
	var slow []*Client
	for c := range h.rooms[room] {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Warn("dropping slow websocket client", "user_id", c.UserID)
		h.Leave(c)
	}
}

// Serve upgrades the request and registers the connection in the user's room,
// plus AdminRoom for administrators. It returns once the pumps are running.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint, userRoom string, admin bool) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{conn: conn, UserID: userID, send: make(chan []byte, sendBuffer)}
	h.Join(c, userRoom)
	if admin {
		h.Join(c, AdminRoom)
	}
	metrics.WebsocketConnections.Inc()
	log.Debug("websocket connected", "user_id", userID)

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// readPump only watches for disconnects; clients do not send commands.
func (h *Hub) readPump(c *Client) {
	defer func() {
		h.Leave(c)
		c.conn.Close()
		metrics.WebsocketConnections.Dec()
		log.Debug("websocket disconnected", "user_id", c.UserID)
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
