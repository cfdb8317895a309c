// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:  10 * time.Second,
		PongWait:   60 * time.Second,
		PingPeriod: (60 * time.Second * 9) / 10,
	}
}

// upgrader is used to upgrade HTTP connections to WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, this should be more restrictive
		return true
	},
}

// trendStreamClient forwards a tenant's trend events to one connection
type trendStreamClient struct {
	conn      *websocket.Conn
	send      chan []byte
	sub       *nats.Subscription
	done      chan struct{}
	closeOnce sync.Once
	config    WebSocketConfig
}

// TrendStreamHandler streams a tenant's trend-detected events over a
// WebSocket connection by bridging the NATS event bus.
func TrendStreamHandler(natsConn *nats.Conn, eventsTopic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenant")
		if tenantID == "" {
			http.Error(w, "Missing tenant ID", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade to WebSocket: %v", err)
			return
		}

		msgs := make(chan *nats.Msg, 64)
		subject := fmt.Sprintf("%s.detected.%s", eventsTopic, tenantID)
		sub, err := natsConn.ChanSubscribe(subject, msgs)
		if err != nil {
			log.Printf("Failed to subscribe to %s: %v", subject, err)
			conn.Close()
			return
		}

		client := &trendStreamClient{
			conn:   conn,
			send:   make(chan []byte, 256),
			sub:    sub,
			done:   make(chan struct{}),
			config: DefaultWebSocketConfig(),
		}

		go client.writePump()
		go client.readPump()
		go client.forward(msgs)

		welcome, _ := json.Marshal(map[string]interface{}{
			"type":      "welcome",
			"tenant_id": tenantID,
			"time":      time.Now(),
		})
		client.send <- welcome

		log.Printf("New trend stream connection for tenant %s", tenantID)
	}
}

// forward moves NATS messages onto the client's send channel
func (c *trendStreamClient) forward(msgs chan *nats.Msg) {
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case c.send <- msg.Data:
			case <-c.done:
				return
			}
		}
	}
}

// readPump drains the connection so close frames and pongs are processed
func (c *trendStreamClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pumps events from the send channel to the connection
func (c *trendStreamClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close tears the connection down exactly once
func (c *trendStreamClient) close() {
	c.closeOnce.Do(func() {
		if err := c.sub.Unsubscribe(); err != nil {
			log.Printf("Error unsubscribing trend stream: %v", err)
		}
		close(c.done)
		c.conn.Close()
	})
}
