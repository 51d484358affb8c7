package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesOnlyTargetUser(t *testing.T) {
	h := NewHub()

	a, cleanupA := h.Subscribe("user-a")
	defer cleanupA()
	b, cleanupB := h.Subscribe("user-b")
	defer cleanupB()

	h.Publish("user-a", Event{Name: "notification", Data: "hello"})

	require.Len(t, a, 1)
	got := <-a
	assert.Equal(t, "notification", got.Name)
	assert.Equal(t, "hello", got.Data)
	assert.Empty(t, b)
}

func TestHub_CleanupAndClose(t *testing.T) {
	h := NewHub()

	ch, cleanup := h.Subscribe("user-a")

	cleanup()
	cleanup()
	_, open := <-ch
	assert.False(t, open)
	// the closed stream is no longer a target
	assert.NotPanics(t, func() { h.Publish("user-a", Event{Name: "n"}) })

	ch2, cleanup2 := h.Subscribe("user-b")
	h.Close()
	_, open = <-ch2
	assert.False(t, open)
	cleanup2()

	ch3, _ := h.Subscribe("user-c")
	_, open = <-ch3
	assert.False(t, open)
}

func TestHub_FullStreamDropsEvent(t *testing.T) {
	h := NewHub()
	ch, cleanup := h.Subscribe("user-a")
	defer cleanup()

	for i := 0; i < subscriberBuffer+5; i++ {
		h.PublishToMany([]string{"user-a", "nobody"}, Event{Name: "n", Data: i})
	}
	assert.Len(t, ch, subscriberBuffer)
}
