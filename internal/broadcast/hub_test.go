package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomchat-server/internal/core"
)

func chat(content string) core.ChatMessage {
	return core.NewChatMessage("alice", content, core.MessageChat, time.Unix(1700000000, 0))
}

func TestPublishReachesTopicSubscribersOnly(t *testing.T) {
	hub := NewHub(4)

	a := hub.Subscribe("room/AAAAAA")
	b := hub.Subscribe("room/AAAAAA")
	other := hub.Subscribe("room/BBBBBB")
	defer a.Close()
	defer b.Close()
	defer other.Close()

	hub.Publish("room/AAAAAA", chat("hi"))

	for _, sub := range []*Subscription{a, b} {
		select {
		case msg := <-sub.Events():
			assert.Equal(t, "hi", msg.Content)
		default:
			t.Fatalf("subscriber of %s got nothing", sub.Topic)
		}
	}

	select {
	case msg := <-other.Events():
		t.Fatalf("unexpected delivery to other topic: %+v", msg)
	default:
	}

	stats := hub.Stats()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(2), stats.Delivered)
	assert.Equal(t, 2, stats.Topics)
	assert.Equal(t, 3, stats.Subscriptions)
}

func TestPublishDropsForSlowConsumer(t *testing.T) {
	hub := NewHub(2)
	sub := hub.Subscribe("room/AAAAAA")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			hub.Publish("room/AAAAAA", chat("m"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Len(t, sub.Events(), 2)
	assert.Equal(t, uint64(3), hub.Stats().Dropped)
}

func TestPublishPreservesOrder(t *testing.T) {
	hub := NewHub(8)
	sub := hub.Subscribe("room/AAAAAA")
	defer sub.Close()

	for _, c := range []string{"one", "two", "three"} {
		hub.Publish("room/AAAAAA", chat(c))
	}

	var got []string
	for i := 0; i < 3; i++ {
		got = append(got, (<-sub.Events()).Content)
	}
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("room/AAAAAA")

	sub.Close()
	assert.NotPanics(t, sub.Close)

	_, ok := <-sub.Events()
	assert.False(t, ok)

	// Publishing to a topic without subscribers is fine.
	hub.Publish("room/AAAAAA", chat("late"))
	assert.Equal(t, 0, hub.Stats().Topics)
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("room/AAAAAA")

	hub.Close()
	_, ok := <-sub.Events()
	require.False(t, ok)
	assert.NotPanics(t, sub.Close)
	assert.NotPanics(t, hub.Close)

	late := hub.Subscribe("room/AAAAAA")
	_, ok = <-late.Events()
	assert.False(t, ok)
}

func TestHubSatisfiesBroadcaster(t *testing.T) {
	var _ core.Broadcaster = NewHub(0)
}
