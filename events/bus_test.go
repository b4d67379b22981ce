package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInvokesHandlersInOrder(t *testing.T) {
	bus := NewBus()

	var order []int
	bus.Subscribe(EventNewReport, func(data interface{}) { order = append(order, 1) })
	bus.Subscribe(EventNewReport, func(data interface{}) { order = append(order, 2) })
	bus.Subscribe(EventNewReport, func(data interface{}) { order = append(order, 3) })

	bus.Publish(EventNewReport, nil)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestPublishDeliversPayload(t *testing.T) {
	bus := NewBus()

	var got interface{}
	bus.Subscribe(EventPriorityUpdated, func(data interface{}) { got = data })

	payload := PriorityEvent{ReportID: "r1", OldPriority: 70, NewPriority: 35}
	bus.Publish(EventPriorityUpdated, payload)
	require.Equal(t, payload, got)
}

func TestPublishIsolatesPanickingHandler(t *testing.T) {
	bus := NewBus()

	var reached bool
	bus.Subscribe(EventNewReport, func(data interface{}) { panic("boom") })
	bus.Subscribe(EventNewReport, func(data interface{}) { reached = true })

	assert.NotPanics(t, func() { bus.Publish(EventNewReport, nil) })
	assert.True(t, reached, "handlers after a panic still run")
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	var calls int
	sub := bus.Subscribe(EventReportUpdated, func(data interface{}) { calls++ })
	require.Equal(t, 1, bus.HandlerCount(EventReportUpdated))

	bus.Publish(EventReportUpdated, nil)
	bus.Unsubscribe(sub)
	bus.Publish(EventReportUpdated, nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.HandlerCount(EventReportUpdated))
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() { bus.Publish(EventEvidenceProcessed, nil) })
}
