// Package queue defines the interface for the inbound message stream.
// This abstraction keeps the pipeline independent of a specific broker
// (GCP Pub/Sub in production, an in-memory stream in tests).
package queue

import (
	"context"
)

// Delivery is one undecoded message plus its acknowledgment handle.
// Ack must be invoked exactly once per consumed delivery, after
// pipeline completion, regardless of outcome; until then the broker
// holds the message for redelivery.
type Delivery struct {
	Data []byte
	Ack  func()
}

// Subscriber streams deliveries to a handler until the context ends,
// the stream is exhausted, or an unrecoverable client error occurs.
// The handler may block to apply backpressure; the subscriber must not
// acknowledge on the handler's behalf.
type Subscriber interface {
	Receive(ctx context.Context, handle func(context.Context, Delivery)) error
}
