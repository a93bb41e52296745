// Package pubsub implements the queue.Subscriber interface for Google
// Cloud Pub/Sub.
package pubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/nft-metadata-parser/internal/logging"
	"github.com/JakeFAU/nft-metadata-parser/internal/queue"
)

// Subscriber pulls token-URI entries from a Pub/Sub subscription.
type Subscriber struct {
	client *pubsub.Client
	sub    *pubsub.Subscription
}

// New creates a Pub/Sub client and binds it to the named subscription.
// Authentication uses Application Default Credentials. maxOutstanding
// caps how many unacknowledged messages the client holds; it should
// match the pipeline's bounded queue depth so the broker, not this
// process, buffers bursts.
func New(ctx context.Context, projectID, subscriptionID string, maxOutstanding int, opts ...option.ClientOption) (*Subscriber, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	sub := client.Subscription(subscriptionID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logging.L.Warn("Failed to close pubsub client after subscription check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check subscription %q: %w", subscriptionID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logging.L.Warn("Failed to close pubsub client after subscription check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub subscription %q does not exist in project %q", subscriptionID, projectID)
	}

	// One handler goroutine preserves the pull-loop semantics of the
	// ingestion loop; the bounded work queue downstream provides the
	// only real flow control.
	sub.ReceiveSettings.NumGoroutines = 1
	if maxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	}

	return &Subscriber{client: client, sub: sub}, nil
}

// Receive streams deliveries to handle until ctx ends or the client
// fails. The message is acknowledged only through the Delivery handle.
func (s *Subscriber) Receive(ctx context.Context, handle func(context.Context, queue.Delivery)) error {
	err := s.sub.Receive(ctx, func(mctx context.Context, msg *pubsub.Message) {
		handle(mctx, queue.Delivery{
			Data: msg.Data,
			Ack:  msg.Ack,
		})
	})
	if err != nil {
		return fmt.Errorf("pubsub receive: %w", err)
	}
	return nil
}

// Close releases the underlying client connection.
func (s *Subscriber) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
