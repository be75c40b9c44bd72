// internal/server/handlers/websocket.go

package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"campusevents/internal/domain/discussion"
	"campusevents/internal/domain/event"
	discussionService "campusevents/internal/service/discussion"
	"campusevents/internal/service/explore"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 64 * 1024,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// origins are enforced by the CORS middleware for the API routes
		return true
	},
}

// ClientMessage is a command sent by a connected client
type ClientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Key  string `json:"key,omitempty"`
}

// ServerMessage is pushed to a connected client
type ServerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// WebSocketClient represents a connected WebSocket client
type WebSocketClient struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	config WebSocketConfig

	closeOnce sync.Once
}

func newWebSocketClient(conn *websocket.Conn) *WebSocketClient {
	return &WebSocketClient{
		id:     uuid.New().String(),
		conn:   conn,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		config: DefaultWebSocketConfig(),
	}
}

// ExploreWebSocketHandler streams a live, filterable event list. Each
// connection owns its own controller; clients send
// {"type":"search","text":...}, {"type":"filter","key":...} or
// {"type":"refresh"} and receive {"type":"snapshot","data":...}.
func ExploreWebSocketHandler(newController func() *explore.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade to WebSocket: %v", err)
			return
		}

		client := newWebSocketClient(conn)
		ctrl := newController()
		ctrl.RegisterUpdateHandler(func(s explore.Snapshot) {
			client.push("snapshot", s)
		})

		go client.writePump()

		if err := ctrl.Activate(context.Background()); err != nil {
			log.Printf("[explore] failed to activate session %s: %v", client.id, err)
			client.closeConnection()
			return
		}
		log.Printf("New explore WebSocket session %s", client.id)

		client.readPump(func(msg ClientMessage) {
			switch msg.Type {
			case "search":
				ctrl.SetSearch(msg.Text)
			case "filter":
				ctrl.SetFilter(event.ParseFilterKey(msg.Key))
			case "refresh":
				ctrl.Refresh()
			default:
				log.Printf("Unknown message type: %s", msg.Type)
			}
		})

		ctrl.Deactivate()
	}
}

// DiscussionWebSocketHandler streams the live discussion thread of an event
func DiscussionWebSocketHandler(newFeed func(eventID string) *discussionService.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "id")
		if eventID == "" {
			http.Error(w, "Missing event ID", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade to WebSocket: %v", err)
			return
		}

		client := newWebSocketClient(conn)
		feed := newFeed(eventID)
		feed.RegisterUpdateHandler(func(items []discussion.Item) {
			client.push("discussion", items)
		})

		go client.writePump()

		if err := feed.Start(context.Background()); err != nil {
			log.Printf("[discussion] failed to start session %s: %v", client.id, err)
			client.closeConnection()
			return
		}
		log.Printf("New discussion WebSocket session %s for event %s", client.id, eventID)

		// the thread is read-only; incoming messages are ignored
		client.readPump(func(ClientMessage) {})

		feed.Stop()
	}
}

// push queues a message for the client. Messages for a client that
// cannot keep up are dropped.
func (c *WebSocketClient) push(msgType string, data interface{}) {
	payload, err := json.Marshal(ServerMessage{Type: msgType, Data: data})
	if err != nil {
		log.Printf("Failed to marshal %s message: %v", msgType, err)
		return
	}

	select {
	case <-c.done:
	case c.send <- payload:
	default:
		log.Printf("WebSocket session %s is not keeping up, dropping %s", c.id, msgType)
	}
}

// readPump reads client commands until the connection closes
func (c *WebSocketClient) readPump(handle func(ClientMessage)) {
	defer c.closeConnection()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Failed to parse WebSocket message: %v", err)
			continue
		}
		handle(msg)
	}
}

// writePump writes queued messages and pings to the connection
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// closeConnection closes the WebSocket connection once
func (c *WebSocketClient) closeConnection() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
		log.Printf("WebSocket session %s closed", c.id)
	})
}
