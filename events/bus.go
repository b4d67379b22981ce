package events

import (
	"sync"

	"github.com/sirupsen/logrus"

	"incidentwatch/metrics"
)

// Event names produced by the verification pipeline.
const (
	EventNewReport          = "new_report"
	EventEvidenceProcessed  = "evidence_processed"
	EventVerificationAdded  = "verification_added"
	EventReportUpdated      = "report_updated"
	EventPriorityUpdated    = "priority_updated"
	EventReportNotification = "report_notification"
)

// AllEvents lists every event name the system broadcasts, in a stable order.
var AllEvents = []string{
	EventNewReport,
	EventEvidenceProcessed,
	EventVerificationAdded,
	EventReportUpdated,
	EventPriorityUpdated,
	EventReportNotification,
}

// Handler receives the payload of a published event.
type Handler func(data interface{})

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	event string
	id    int
}

type entry struct {
	id      int
	handler Handler
}

// Bus is an in-process publish/subscribe broadcaster. Handlers run
// synchronously in registration order; a panicking handler is isolated and
// logged so the remaining handlers still run. There is no persistence or
// replay: a handler registered after an event fired never sees it.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	nextID   int
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]entry),
	}
}

// Subscribe registers a handler for the named event and returns a
// subscription handle for later removal.
func (b *Bus) Subscribe(event string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[event] = append(b.handlers[event], entry{id: b.nextID, handler: handler})
	return Subscription{event: event, id: b.nextID}
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[sub.event]
	for i, e := range entries {
		if e.id == sub.id {
			b.handlers[sub.event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Publish invokes all handlers registered for the event, synchronously and
// in registration order.
func (b *Bus) Publish(event string, data interface{}) {
	b.mu.RLock()
	entries := make([]entry, len(b.handlers[event]))
	copy(entries, b.handlers[event])
	b.mu.RUnlock()

	metrics.EventsBroadcast.WithLabelValues(event).Inc()

	for _, e := range entries {
		b.invoke(event, e, data)
	}
}

func (b *Bus) invoke(event string, e entry, data interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Event handler panicked for %s: %v", event, r)
		}
	}()
	e.handler(data)
}

// HandlerCount returns the number of handlers registered for an event.
func (b *Bus) HandlerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}
