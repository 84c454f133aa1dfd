// Package notify pushes order events to websocket listeners.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"campus-cravings/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	clientBuffer   = 16
	publishBuffer  = 256

	AdminRoom = "admin"
)

var (
	ErrDropped = errors.New("event dropped: hub queue full")
	ErrClosed  = errors.New("hub closed")
)

func OrderRoom(orderID string) string {
	return "order-" + orderID
}

type delivery struct {
	all   bool
	rooms []string
	data  []byte
}

// Hub fans order events out to connected clients. Sends never block: a slow
// client's full queue drops the event for that client only.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan delivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     *slog.Logger

	mu    sync.RWMutex
	count int
}

func NewHub(allowedOrigins []string, logger *slog.Logger) *Hub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan delivery, publishBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin] || origins["*"]
			},
		},
	}
}

// Run owns the client registry until ctx is cancelled, then disconnects
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.setCount(len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.setCount(len(h.clients))
			}

		case d := <-h.broadcast:
			for client := range h.clients {
				if !d.all && !client.inAny(d.rooms) {
					continue
				}
				select {
				case client.send <- d.data:
				default:
					h.logger.Debug("client queue full, event dropped")
				}
			}

		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.setCount(0)
			return
		}
	}
}

// Publish routes the event: new orders reach everyone, status updates reach
// the order's room and the admin room.
func (h *Hub) Publish(_ context.Context, event models.OrderEvent) error {
	data, err := json.Marshal(models.Message{Event: string(event.Type), Payload: event})
	if err != nil {
		return err
	}
	d := delivery{data: data}
	if event.Type == models.EventNewOrder {
		d.all = true
	} else {
		d.rooms = []string{OrderRoom(event.OrderID), AdminRoom}
	}
	select {
	case <-h.done:
		return ErrClosed
	default:
	}
	select {
	case h.broadcast <- d:
		return nil
	default:
		return ErrDropped
	}
}

// Serve upgrades the request and blocks until the client goes away. The
// client starts in the given rooms.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, rooms ...string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, clientBuffer), rooms: make(map[string]bool)}
	for _, room := range rooms {
		client.rooms[room] = true
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return ErrClosed
	}

	go client.writePump()
	client.readPump()
	return nil
}

// ClientCount is the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu    sync.RWMutex
	rooms map[string]bool
}

// clientMessage is what browsers send to change rooms.
type clientMessage struct {
	Event   string `json:"event"`
	OrderID string `json:"orderId"`
}

func (c *Client) inAny(rooms []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, room := range rooms {
		if c.rooms[room] {
			return true
		}
	}
	return false
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.OrderID == "" {
			continue
		}
		c.mu.Lock()
		switch msg.Event {
		case "join-order":
			c.rooms[OrderRoom(msg.OrderID)] = true
		case "leave-order":
			delete(c.rooms, OrderRoom(msg.OrderID))
		}
		c.mu.Unlock()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
