package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"incidentwatch/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. Its subscription set is adjusted by
// subscribe/unsubscribe commands; empty means all events.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	reporterID string
	send       chan models.WSMessage

	mu            sync.RWMutex
	subscriptions map[string]bool
}

// Serve upgrades an HTTP request to a websocket connection and registers
// the client with the hub.
func Serve(hub *Hub, w http.ResponseWriter, r *http.Request, reporterID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("Websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:           hub,
		conn:          conn,
		reporterID:    reporterID,
		send:          make(chan models.WSMessage, sendBufferSize),
		subscriptions: make(map[string]bool),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

func (c *Client) wants(event string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.subscriptions) == 0 {
		return true
	}
	return c.subscriptions[event]
}

// detach hands the client back to the hub, or gives up once the hub loop
// has shut down and stopped receiving.
func (c *Client) detach() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.detach()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Warnf("Websocket read error for %s: %v", c.reporterID, err)
			}
			return
		}

		var command models.WSClientCommand
		if err := json.Unmarshal(raw, &command); err != nil {
			logrus.Debugf("Ignoring malformed command from %s: %v", c.reporterID, err)
			continue
		}
		c.handleCommand(command)
	}
}

func (c *Client) handleCommand(command models.WSClientCommand) {
	switch command.Action {
	case "subscribe":
		c.mu.Lock()
		for _, event := range command.Events {
			c.subscriptions[event] = true
		}
		c.mu.Unlock()
	case "unsubscribe":
		c.mu.Lock()
		for _, event := range command.Events {
			delete(c.subscriptions, event)
		}
		c.mu.Unlock()
	case "ping":
		// Answered by the protocol-level pong in writePump.
	default:
		logrus.Debugf("Unknown websocket action %q from %s", command.Action, c.reporterID)
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
			if err := c.conn.WriteJSON(message); err != nil {
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
