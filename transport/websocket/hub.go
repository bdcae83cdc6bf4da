package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/pixelboard/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Messages buffered per client before it is considered too slow and dropped.
	sendBufferSize = 256
)

// Events sent to clients
const (
	EventBoardSnapshot = "board_snapshot"
	EventPixelPainted  = service.EventPixelPainted
	EventPlayerCreated = service.EventPlayerCreated
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Board viewers are served from any origin
		return true
	},
}

// Message is the envelope of every frame sent to clients
type Message struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client represents a WebSocket client
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// hubOp is either a client to add or an encoded message for every client
type hubOp struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// The client set is only touched by the Run loop.
type Hub struct {
	clients map[*Client]bool

	// Registrations and broadcasts share one queue, so a client sees exactly
	// the broadcasts enqueued after its registration.
	queue chan hubOp

	// Unregister requests from clients
	unregister chan *Client

	// Client count queries
	count chan chan int

	// Closed when Run returns
	done chan struct{}
}

var _ service.EventSink = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		queue:      make(chan hubOp, 64),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns when ctx is cancelled, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.unregisterClient(client)
			}
			logrus.Debug("WebSocket hub stopped")
			return

		case op := <-h.queue:
			if op.client != nil {
				h.clients[op.client] = true
				logrus.WithField("clients", len(h.clients)).Debug("WebSocket client registered")
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- op.data:
				default:
					// Client's send buffer is full, drop it
					h.unregisterClient(client)
				}
			}

		case client := <-h.unregister:
			h.unregisterClient(client)

		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// ServeWS upgrades the request and registers the client. The optional
// initial message is delivered before any broadcast.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial *Message) {
	client, err := h.Upgrade(w, r)
	if err != nil {
		return
	}
	h.Register(client, initial)
}

// Upgrade turns the request into a client that receives nothing until it
// is registered.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return nil, err
	}

	return &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}, nil
}

// Register queues the client behind every broadcast already enqueued and
// starts its pumps. The optional initial message is delivered first.
func (h *Hub) Register(client *Client, initial *Message) {
	if initial != nil {
		data, err := encode(initial)
		if err != nil {
			logrus.WithError(err).Error("Failed to marshal initial WebSocket message")
		} else {
			client.send <- data
		}
	}

	select {
	case h.queue <- hubOp{client: client}:
	case <-h.done:
		client.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Close drops a client that was never registered
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Broadcast sends an event to every connected client
func (h *Hub) Broadcast(event string, data interface{}) {
	encoded, err := encode(&Message{Event: event, Data: data})
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to marshal WebSocket message")
		return
	}

	select {
	case h.queue <- hubOp{data: encoded}:
	case <-h.done:
	}
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func encode(message *Message) ([]byte, error) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	return json.Marshal(message)
}

// unregisterClient removes a client; only called from Run
func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		logrus.WithField("clients", len(h.clients)).Debug("WebSocket client unregistered")
	}
}

// readPump discards client messages and keeps the read deadline fresh
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
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Warn("WebSocket read error")
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection, one frame per message
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
				// The hub closed the channel
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
