package notice

import (
	"errors"
	"testing"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := NewBus(2)
	ch1, unsub1, err := b.Subscribe(1)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub1()
	ch2, unsub2, err := b.Subscribe(1)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub2()

	b.Publish(Event{Kind: LoginSucceeded, Username: "alice"})
	for _, ch := range []<-chan Event{ch1, ch2} {
		ev := <-ch
		if ev.Kind != LoginSucceeded || ev.Username != "alice" || ev.At.IsZero() {
			t.Fatalf("unexpected event: %+v", ev)
		}
	}
}

func TestSubscriberBound(t *testing.T) {
	b := NewBus(1)
	_, unsub, err := b.Subscribe(0)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, _, err := b.Subscribe(0); !errors.Is(err, ErrTooManySubscribers) {
		t.Fatalf("expected ErrTooManySubscribers, got %v", err)
	}
	unsub()
	unsub()
	if b.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after unsubscribe")
	}
	if _, _, err := b.Subscribe(0); err != nil {
		t.Fatalf("expected slot to be free again: %v", err)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := NewBus(1)
	ch, unsub, _ := b.Subscribe(1)
	defer unsub()
	b.Publish(Event{Kind: LoginFailed})
	b.Publish(Event{Kind: LoginFailed})
	b.Publish(Event{Kind: LoginFailed})
	if got := b.Dropped(); got != 2 {
		t.Fatalf("expected 2 dropped events, got %d", got)
	}
	if ev := <-ch; ev.Kind != LoginFailed {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus(0)
	ch, unsub, _ := b.Subscribe(0)
	unsub()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
}

func TestCloseReleasesEveryone(t *testing.T) {
	b := NewBus(0)
	ch, unsub, _ := b.Subscribe(1)
	b.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after Close")
	}
	unsub()
	b.Publish(Event{Kind: SessionSignedOut})
	if _, _, err := b.Subscribe(0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var b *Bus
	b.Publish(Event{Kind: LoginFailed})
}
