package events

import (
	"context"
	"testing"
	"time"
)

func TestHub_PublishReachesSubscribers(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := hub.Subscribe(ctx)
	b := hub.Subscribe(ctx)
	if hub.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", hub.SubscriberCount())
	}

	hub.Publish(Event{Type: "article:created", ID: "x", Summary: "Title"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case evt := <-ch:
			if evt.Type != "article:created" {
				t.Fatalf("unexpected event: %+v", evt)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestHub_UnsubscribeOnContextCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	ch := hub.Subscribe(ctx)
	cancel()

	// The channel closes once the unsubscribe goroutine runs.
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel, got event")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	deadline := time.Now().Add(time.Second)
	for hub.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not removed, count=%d", hub.SubscriberCount())
		}
		time.Sleep(time.Millisecond)
	}

	// Publishing with no subscribers is a no-op.
	hub.Publish(Event{Type: "deposit:recorded"})
}

func TestHub_SlowSubscriberDropsNotBlocks(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := hub.Subscribe(ctx)

	// Overfill the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Publish(Event{Type: "proposal:voted"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	// The subscriber still gets the buffered events.
	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			if received != subscriberBuffer {
				t.Fatalf("expected %d buffered events, got %d", subscriberBuffer, received)
			}
			return
		}
	}
}
