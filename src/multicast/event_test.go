//go:build unit

package multicast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriggerCallsAllHandlersInOrder(t *testing.T) {
	var ev Event[int]
	var got []string
	ev.Subscribe(func(v int) { got = append(got, "a") })
	ev.Subscribe(func(v int) { got = append(got, "b") })

	ev.Trigger(1)

	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, ev.Count())
}

func TestUnsubscribeDuringDispatchDoesNotAffectRunningTrigger(t *testing.T) {
	var ev Event[int]
	calls := map[string]int{}
	var idB ID
	ev.Subscribe(func(int) {
		calls["a"]++
		ev.Unsubscribe(idB)
	})
	idB = ev.Subscribe(func(int) { calls["b"]++ })

	ev.Trigger(1)
	ev.Trigger(2)

	assert.Equal(t, 2, calls["a"])
	assert.Equal(t, 1, calls["b"])
}

func TestSubscribeDuringDispatchStartsWithNextTrigger(t *testing.T) {
	var ev Event[string]
	late := 0
	added := false
	ev.Subscribe(func(string) {
		if !added {
			added = true
			ev.Subscribe(func(string) { late++ })
		}
	})

	ev.Trigger("x")
	assert.Equal(t, 0, late)
	ev.Trigger("y")
	assert.Equal(t, 1, late)
}

func TestIdsAreOpaqueAndUnique(t *testing.T) {
	var ev Signal
	first := ev.Subscribe(func(struct{}) {})
	second := ev.Subscribe(func(struct{}) {})
	ev.Unsubscribe(first)
	third := ev.Subscribe(func(struct{}) {})

	assert.NotEqual(t, ID(0), first)
	assert.NotEqual(t, first, second)
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, ev.Count())

	ev.Unsubscribe(ID(12345))
	assert.Equal(t, 2, ev.Count())
	Fire(&ev)
}
