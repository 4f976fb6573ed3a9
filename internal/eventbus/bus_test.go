package eventbus

import (
	"testing"
	"time"
)

func TestPublishFanout(t *testing.T) {
	t.Parallel()
	b := New()
	ch1, unsub1 := b.Subscribe(4)
	ch2, unsub2 := b.Subscribe(4)
	defer unsub1()
	defer unsub2()

	b.Publish(Event{Type: TypeMatchFired})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != TypeMatchFired {
				t.Fatalf("type = %q, want %q", ev.Type, TypeMatchFired)
			}
			if ev.Time.IsZero() {
				t.Fatal("publish must stamp the event time")
			}
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		// Second publish overflows the buffer; it must drop, not block.
		b.Publish(Event{Type: TypeMatchSuppressed})
		b.Publish(Event{Type: TypeMatchSuppressed})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	unsub()
	unsub() // safe to call twice

	b.Publish(Event{Type: TypeNotifyFailed})
	if _, open := <-ch; open {
		t.Fatal("channel must be closed after unsubscribe")
	}
}
