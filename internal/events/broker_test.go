package events

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishSubscribe(t *testing.T) {
	broker := NewBroker[string](slog.Default(), 4)
	first := broker.Subscribe(context.Background())
	second := broker.Subscribe(context.Background())
	broker.Publish("signed_in")

	assert.Equal(t, "signed_in", <-first.C)
	assert.Equal(t, "signed_in", <-second.C)
	assert.Equal(t, 2, broker.Subscribers())
}

func TestCancel(t *testing.T) {
	broker := NewBroker[int](slog.Default(), 1)
	sub := broker.Subscribe(context.Background())
	sub.Cancel()
	sub.Cancel()

	_, open := <-sub.C
	assert.False(t, open)
	assert.Equal(t, 0, broker.Subscribers())
	broker.Publish(1)
}

func TestCancelOnContextDone(t *testing.T) {
	broker := NewBroker[int](slog.Default(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	sub := broker.Subscribe(ctx)
	cancel()
	assert.Eventually(t, func() bool { return broker.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-sub.C
	assert.False(t, open)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	broker := NewBroker[int](slog.Default(), 1)
	sub := broker.Subscribe(context.Background())
	done := make(chan struct{})
	go func() {
		broker.Publish(1)
		broker.Publish(2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Equal(t, 1, <-sub.C)
}

func TestClose(t *testing.T) {
	broker := NewBroker[int](slog.Default(), 1)
	sub := broker.Subscribe(context.Background())
	broker.Close()
	_, open := <-sub.C
	assert.False(t, open)
	late := broker.Subscribe(context.Background())
	_, open = <-late.C
	assert.False(t, open)
	sub.Cancel()
}
