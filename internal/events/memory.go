package events

import (
	"context"
	"sync"
)

// memoryBuffer is the number of messages a subscription holds before
// publishers block on it.
const memoryBuffer = 64

// MemoryBroker is an in-process Broker. Publish delivers to every
// subscription registered on the channel at that moment.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*memorySubscription]struct{})}
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, data []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	targets := make([]*memorySubscription, 0, len(b.subs[channel]))
	for s := range b.subs[channel] {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	msg := Message{Channel: channel, Data: append([]byte(nil), data...)}
	for _, s := range targets {
		select {
		case s.ch <- msg:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	s := &memorySubscription{
		broker:   b,
		channels: channels,
		ch:       make(chan Message, memoryBuffer),
		done:     make(chan struct{}),
	}
	for _, c := range channels {
		if b.subs[c] == nil {
			b.subs[c] = make(map[*memorySubscription]struct{})
		}
		b.subs[c][s] = struct{}{}
	}
	return s, nil
}

// Close ends every open subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*memorySubscription
	for _, set := range b.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	b.subs = nil
	b.mu.Unlock()

	for _, s := range all {
		s.stop()
	}
	return nil
}

func (b *MemoryBroker) remove(s *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range s.channels {
		delete(b.subs[c], s)
	}
}

type memorySubscription struct {
	broker   *MemoryBroker
	channels []string
	ch       chan Message
	done     chan struct{}
	once     sync.Once
}

func (s *memorySubscription) Next(ctx context.Context) (Message, error) {
	// Drain what was delivered before a close.
	select {
	case msg := <-s.ch:
		return msg, nil
	default:
	}
	select {
	case msg := <-s.ch:
		return msg, nil
	case <-s.done:
		return Message{}, ErrClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (s *memorySubscription) Close(context.Context) error {
	s.broker.remove(s)
	s.stop()
	return nil
}

func (s *memorySubscription) stop() {
	s.once.Do(func() { close(s.done) })
}
