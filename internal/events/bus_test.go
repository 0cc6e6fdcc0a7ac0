package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus(t *testing.T) {
	t.Run("delivers events to subscribers of the matching type", func(t *testing.T) {
		bus := NewBus()

		var got []*Event
		bus.Subscribe(AnalysisCompleted, func(e *Event) { got = append(got, e) })
		bus.Subscribe(AnalysisFailed, func(e *Event) { t.Fatal("wrong type delivered") })

		bus.Publish(&Event{Type: AnalysisCompleted, Module: "analysis"})

		require.Len(t, got, 1)
		assert.Equal(t, AnalysisCompleted, got[0].Type)
		assert.False(t, got[0].Timestamp.IsZero(), "zero timestamp is filled in")
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		bus := NewBus()

		count := 0
		unsubscribe := bus.Subscribe(AnalysisStarted, func(e *Event) { count++ })

		bus.Publish(&Event{Type: AnalysisStarted})
		unsubscribe()
		bus.Publish(&Event{Type: AnalysisStarted})

		assert.Equal(t, 1, count)
	})

	t.Run("multiple subscribers all receive the event", func(t *testing.T) {
		bus := NewBus()

		a, b := 0, 0
		bus.Subscribe(HorizonSkipped, func(e *Event) { a++ })
		bus.Subscribe(HorizonSkipped, func(e *Event) { b++ })

		bus.Publish(&Event{Type: HorizonSkipped})

		assert.Equal(t, 1, a)
		assert.Equal(t, 1, b)
	})
}
