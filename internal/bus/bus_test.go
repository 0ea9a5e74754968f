package bus

import (
	"testing"
	"time"
)

func receive(t *testing.T, ch Subscription) any {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message")
	}

	return nil
}

func TestPubSubBusDeliversByTopic(t *testing.T) {
	b := New(nil)
	defer b.Close()

	both := b.Subscribe("a", "b")
	onlyB := b.Subscribe("b")

	b.Publish("a", 1)
	b.Publish("b", "two")

	if got := receive(t, both); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := receive(t, both); got != "two" {
		t.Fatalf("expected two, got %v", got)
	}
	if got := receive(t, onlyB); got != "two" {
		t.Fatalf("expected two on b, got %v", got)
	}
	select {
	case v := <-onlyB:
		t.Fatalf("unexpected extra message %v", v)
	default:
	}
}

func TestPubSubBusUnsubscribe(t *testing.T) {
	b := New(nil)
	defer b.Close()

	ch := b.Subscribe("a", "b")
	b.Unsubscribe(ch, "a")
	b.Publish("a", 1)
	b.Publish("b", 2)

	if got := receive(t, ch); got != 2 {
		t.Fatalf("expected only b message, got %v", got)
	}
}

func TestReleaseLetsBlockedPublisherThrough(t *testing.T) {
	b := NewWithCapacity(nil, 1)
	defer b.Close()

	ch := b.Subscribe("a")
	published := make(chan struct{})
	go func() {
		defer close(published)
		for i := 0; i < 3; i++ {
			b.Publish("a", i)
		}
	}()

	deadline := time.Now().Add(time.Second)
	for len(ch) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for a queued message")
		}
		time.Sleep(time.Millisecond)
	}

	released := make(chan struct{})
	go func() {
		defer close(released)
		Release(b, ch)
	}()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatalf("release blocked behind a full subscriber")
	}
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatalf("publisher still blocked after release")
	}
}

func TestUnsubscribeAfterClose(t *testing.T) {
	b := New(nil)
	ch := b.Subscribe("a")
	b.Close()

	if _, ok := <-ch; ok {
		t.Fatalf("expected subscription to be closed")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		Release(b, ch)
		b.Close()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("unsubscribe after close blocked")
	}
}

func TestPayloadType(t *testing.T) {
	if got := payloadType(nil); got != "<nil>" {
		t.Fatalf("unexpected nil payload type %q", got)
	}
	if got := payloadType(struct{}{}); got != "struct {}" {
		t.Fatalf("unexpected payload type %q", got)
	}
}
