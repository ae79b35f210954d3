package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedBus_PublishSubscribe(t *testing.T) {
	bus := NewTyped[string](0)
	ch := bus.Subscribe()
	bus.Publish("hello")
	assert.Equal(t, "hello", <-ch)
	bus.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestTypedBus_DropsWhenFull(t *testing.T) {
	bus := NewTyped[int](2)
	ch := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(i)
	}
	bus.Close()
	var got []int
	for v := range ch {
		got = append(got, v)
	}
	assert.Equal(t, []int{0, 1}, got)
}

func TestTypedBus_Close(t *testing.T) {
	bus := NewTyped[int](1)
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	bus.Close()
	_, ok1 := <-ch1
	_, ok2 := <-ch2
	assert.False(t, ok1)
	assert.False(t, ok2)

	late := bus.Subscribe()
	_, ok := <-late
	assert.False(t, ok, "subscribing after close yields a closed channel")
	bus.Publish(1)
}

func TestTypedBus_NilPublish(t *testing.T) {
	var bus *TypedBus[int]
	assert.NotPanics(t, func() { bus.Publish(1) })
}
