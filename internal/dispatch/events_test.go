// ABOUTME: Tests for the turn event broadcaster
// ABOUTME: Covers fan-out, chat isolation, cancellation cleanup, and slow subscribers

package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chorus/internal/chat"
)

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewEventBroadcaster(nil)
	defer b.Close()

	id := chat.NewID()
	ch1, _ := b.Subscribe(t.Context(), id)
	ch2, _ := b.Subscribe(t.Context(), id)

	b.Publish(Event{Kind: EventDelta, ChatID: id, Delta: "x"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "x", ev.Delta, "subscriber %d", i)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestBroadcaster_ChatsAreIsolated(t *testing.T) {
	b := NewEventBroadcaster(nil)
	defer b.Close()

	ch1, _ := b.Subscribe(t.Context(), chat.NewID())
	b.Publish(Event{Kind: EventTurnDone, ChatID: chat.NewID()})

	select {
	case ev := <-ch1:
		t.Fatalf("unexpected event %v", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcaster_CancelClosesChannel(t *testing.T) {
	b := NewEventBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx, chat.NewID())
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewEventBroadcaster(nil)
	defer b.Close()

	id := chat.NewID()
	ch, _ := b.Subscribe(t.Context(), id)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBufferSize*2; i++ {
			b.Publish(Event{Kind: EventDelta, ChatID: id})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	require.Len(t, ch, subscriberBufferSize)
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "reply_done", EventReplyDone.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}
