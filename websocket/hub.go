package websocket

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"incidentwatch/events"
	"incidentwatch/models"
)

// Hub relays bus events to connected websocket clients. Each client carries
// its own event-type subscription set; a client with no subscriptions
// receives everything.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.WSMessage

	bus           *events.Bus
	clock         clockwork.Clock
	subscriptions []events.Subscription

	mu   sync.RWMutex
	done chan struct{}
}

func NewHub(bus *events.Bus, clock clockwork.Clock) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.WSMessage, 256),
		bus:        bus,
		clock:      clock,
		done:       make(chan struct{}),
	}
}

// Run attaches the hub to every bus event and serves the client lifecycle
// until Shutdown is called.
func (h *Hub) Run() {
	for _, event := range events.AllEvents {
		event := event
		sub := h.bus.Subscribe(event, func(data interface{}) {
			message := models.WSMessage{
				Type:      event,
				Data:      data,
				Timestamp: h.clock.Now(),
			}
			select {
			case h.broadcast <- message:
			default:
				logrus.Warnf("Websocket broadcast buffer full, dropping %s", event)
			}
		})
		h.subscriptions = append(h.subscriptions, sub)
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logrus.Infof("Websocket client connected: %s (%d active)", client.reporterID, h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logrus.Infof("Websocket client disconnected: %s (%d active)", client.reporterID, h.ClientCount())

		case message := <-h.broadcast:
			h.deliver(message)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

func (h *Hub) deliver(message models.WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.wants(message.Type) {
			continue
		}
		select {
		case client.send <- message:
		default:
			// Slow consumer, drop the frame rather than block the hub.
			logrus.Debugf("Dropping %s frame for slow client %s", message.Type, client.reporterID)
		}
	}
}

func (h *Hub) closeAll() {
	for _, sub := range h.subscriptions {
		h.bus.Unsubscribe(sub)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Shutdown stops the hub loop and disconnects every client.
func (h *Hub) Shutdown() {
	close(h.done)
	// Give in-flight writes a moment to flush.
	time.Sleep(100 * time.Millisecond)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
