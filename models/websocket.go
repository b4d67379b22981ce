package models

import "time"

// WSMessage is the frame relayed to websocket clients for every broadcast
// event they are subscribed to.
type WSMessage struct {
	Type      string      `json:"type"` // event name, e.g. new_report
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WSClientCommand is what a connected client may send: adjust its event
// subscriptions or answer a ping.
type WSClientCommand struct {
	Action string   `json:"action"` // subscribe, unsubscribe, ping
	Events []string `json:"events,omitempty"`
}
