// Package memory provides a channel-backed Subscriber for tests and
// local dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/nft-metadata-parser/internal/queue"
)

// Subscriber replays published payloads to a single receiver. Receive
// returns once the subscriber is closed and all payloads are handled,
// which lets tests drive finite streams through the pipeline.
type Subscriber struct {
	ch chan []byte

	mu     sync.Mutex
	closed bool
	acked  []string
}

// NewSubscriber constructs a subscriber with the given buffer capacity.
func NewSubscriber(capacity int) *Subscriber {
	return &Subscriber{ch: make(chan []byte, capacity)}
}

// Publish queues one payload for delivery. It blocks when the buffer
// is full and panics after Close, mirroring a misused real client.
func (s *Subscriber) Publish(data []byte) {
	s.ch <- data
}

// Close ends the stream; Receive drains what was already published.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	close(s.ch)
	s.closed = true
}

// Receive delivers payloads in order until the stream closes or ctx
// ends. Each Delivery's Ack records the payload for inspection.
func (s *Subscriber) Receive(ctx context.Context, handle func(context.Context, queue.Delivery)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-s.ch:
			if !ok {
				return nil
			}
			payload := string(data)
			handle(ctx, queue.Delivery{
				Data: data,
				Ack: func() {
					s.mu.Lock()
					s.acked = append(s.acked, payload)
					s.mu.Unlock()
				},
			})
		}
	}
}

// Acked returns the payloads acknowledged so far.
func (s *Subscriber) Acked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.acked...)
}
