// Package notice is a small in-process pub/sub used to announce auth and
// session state changes. Subscribers are bounded and must unsubscribe.
package notice

import (
	"errors"
	"sync"
	"time"
)

const (
	LoginSucceeded    = "login.succeeded"
	LoginFailed       = "login.failed"
	AccountLocked     = "account.locked"
	RegisterSucceeded = "register.succeeded"
	RegisterFailed    = "register.failed"
	InvitationCreated = "invitation.created"
	SessionRestored   = "session.restored"
	SessionExpired    = "session.expired"
	SessionSignedIn   = "session.signed_in"
	SessionSignedOut  = "session.signed_out"
)

const DefaultMaxSubscribers = 16

var (
	ErrTooManySubscribers = errors.New("too many subscribers")
	ErrClosed             = errors.New("bus closed")
)

type Event struct {
	Kind      string
	AccountID string
	Username  string
	Detail    string
	At        time.Time
}

type subscriber struct {
	ch   chan Event
	once sync.Once
}

type Bus struct {
	mu      sync.Mutex
	max     int
	nextID  int
	subs    map[int]*subscriber
	dropped uint64
	closed  bool
}

// NewBus returns a bus accepting at most max subscribers; max <= 0 uses
// DefaultMaxSubscribers.
func NewBus(max int) *Bus {
	if max <= 0 {
		max = DefaultMaxSubscribers
	}
	return &Bus{max: max, subs: map[int]*subscriber{}}
}

// Subscribe registers a receiver with the given channel buffer. The returned
// func removes the subscription and closes the channel; calling it more than
// once is a no-op.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func(), error) {
	if buffer < 0 {
		buffer = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrClosed
	}
	if len(b.subs) >= b.max {
		return nil, nil, ErrTooManySubscribers
	}
	id := b.nextID
	b.nextID++
	s := &subscriber{ch: make(chan Event, buffer)}
	b.subs[id] = s
	return s.ch, func() { b.remove(id) }, nil
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	s, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if ok {
		s.once.Do(func() { close(s.ch) })
	}
}

// Publish delivers ev to every subscriber with room in its buffer. Full
// subscribers miss the event.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			b.dropped++
		}
	}
}

func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = map[int]*subscriber{}
	b.mu.Unlock()
	for _, s := range subs {
		s.once.Do(func() { close(s.ch) })
	}
}
