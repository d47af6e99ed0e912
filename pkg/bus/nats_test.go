package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedPublishSubscribe(t *testing.T) {
	ns, err := StartEmbedded()
	require.NoError(t, err)
	defer ns.Shutdown()

	b, err := Connect(ns.ClientURL())
	require.NoError(t, err)
	defer b.Close()

	got := make(chan []byte, 1)
	sub, err := b.Subscribe("game.TEST1", func(data []byte) {
		got <- data
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish("game.TEST1", []byte("hello")))

	select {
	case data := <-got:
		assert.Equal(t, []byte("hello"), data)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	require.NoError(t, sub.Unsubscribe())
}

func TestTopicsAreIsolated(t *testing.T) {
	ns, err := StartEmbedded()
	require.NoError(t, err)
	defer ns.Shutdown()

	b, err := Connect(ns.ClientURL())
	require.NoError(t, err)
	defer b.Close()

	got := make(chan []byte, 1)
	_, err = b.Subscribe("game.ROOM2", func(data []byte) {
		got <- data
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish("game.ROOM1", []byte("stray")))

	select {
	case <-got:
		t.Fatal("message crossed topics")
	case <-time.After(200 * time.Millisecond):
	}
}
