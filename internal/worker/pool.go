package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/nft-metadata-parser/internal/metrics"
	"github.com/JakeFAU/nft-metadata-parser/internal/parser"
	"github.com/JakeFAU/nft-metadata-parser/internal/queue"
)

// queuedItem pairs a decoded work item with its acknowledgment handle.
type queuedItem struct {
	item parser.WorkItem
	ack  func()
}

// PoolConfig controls the ingestion loop and worker fan-out.
type PoolConfig struct {
	// Workers is the number of concurrent parse pipelines.
	Workers int
	// QueueDepth bounds the work queue; defaults to 2×Workers.
	QueueDepth int
	// Permits sizes the concurrency limiter; defaults to Workers. It
	// is kept distinct from Workers as the tuning lever for capping
	// in-flight pipelines below the worker count.
	Permits int
	// Pacing is the fixed sleep after each item, rate-limiting load on
	// the upstream gateways and the store.
	Pacing time.Duration
	// Per-item limits stamped onto every WorkItem.
	MaxContentBytes int64
	ImageQuality    int
}

// Pool connects the inbound subscription to a fixed set of workers
// through a bounded queue. The full queue blocking the subscription
// handler is the system's only backpressure signal.
type Pool struct {
	sub     queue.Subscriber
	workers []*Worker
	cfg     PoolConfig
	logger  *zap.Logger

	items   chan queuedItem
	permits chan struct{}
}

// NewPool constructs a Pool over the given subscriber and workers.
func NewPool(sub queue.Subscriber, workers []*Worker, cfg PoolConfig, logger *zap.Logger) (*Pool, error) {
	if sub == nil {
		return nil, fmt.Errorf("subscriber is required")
	}
	if len(workers) == 0 {
		return nil, fmt.Errorf("at least one worker is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = len(workers)
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 2 * cfg.Workers
	}
	if cfg.Permits <= 0 {
		cfg.Permits = cfg.Workers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		sub:     sub,
		workers: workers,
		cfg:     cfg,
		logger:  logger,
		items:   make(chan queuedItem, cfg.QueueDepth),
		permits: make(chan struct{}, cfg.Permits),
	}, nil
}

// Run starts the ingestion loop and the worker goroutines and blocks
// until the stream ends and the queue drains, or ctx is canceled. An
// ingestion failure is returned after the workers finish draining;
// worker faults never terminate siblings.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i, wk := range p.workers {
		wg.Add(1)
		go func(id int, wk *Worker) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("worker terminated by panic", zap.Int("worker", id), zap.Any("panic", r))
				}
			}()
			p.runWorker(ctx, wk)
			p.logger.Debug("worker finished", zap.Int("worker", id))
		}(i, wk)
	}

	ingestErr := p.runIngest(ctx)
	close(p.items)
	if ingestErr != nil {
		p.logger.Error("ingestion loop terminated", zap.Error(ingestErr))
	}

	wg.Wait()
	return ingestErr
}

// runIngest pulls raw deliveries from the subscription, decodes them,
// and feeds the bounded queue. A malformed entry is a contract
// violation with the upstream producer and terminates the loop; the
// offending message stays unacknowledged.
func (p *Pool) runIngest(ctx context.Context) error {
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var decodeErr error

	err := p.sub.Receive(rctx, func(_ context.Context, d queue.Delivery) {
		item, derr := parser.DecodeEntry(d.Data)
		if derr != nil {
			mu.Lock()
			if decodeErr == nil {
				decodeErr = derr
			}
			mu.Unlock()
			metrics.ObserveEntry("malformed")
			cancel()
			return
		}
		item.MaxContentBytes = p.cfg.MaxContentBytes
		item.ImageQuality = p.cfg.ImageQuality

		select {
		case p.items <- queuedItem{item: item, ack: d.Ack}:
		case <-rctx.Done():
		}
	})

	mu.Lock()
	defer mu.Unlock()
	if decodeErr != nil {
		return fmt.Errorf("decode entry: %w", decodeErr)
	}
	if err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("subscription receive: %w", err)
	}
	return nil
}

// runWorker drains the queue until it closes or ctx ends.
func (p *Pool) runWorker(ctx context.Context, wk *Worker) {
	for p.processNext(ctx, wk) {
	}
}

// processNext executes one permit/dequeue/parse/ack/pace cycle and
// reports whether the worker should continue. The permit is held for
// the whole cycle, pacing included.
func (p *Pool) processNext(ctx context.Context, wk *Worker) bool {
	select {
	case <-ctx.Done():
		return false
	case p.permits <- struct{}{}:
	}
	defer func() { <-p.permits }()

	var next queuedItem
	select {
	case <-ctx.Done():
		return false
	case item, ok := <-p.items:
		if !ok {
			return false
		}
		next = item
	}

	metrics.IncActiveWorkers()
	wk.Process(ctx, next.item)
	metrics.DecActiveWorkers()

	// Acknowledge regardless of outcome: partial progress and retry
	// counters are already durable, and the external scheduler decides
	// whether to re-publish.
	next.ack()
	metrics.ObserveEntry("acked")

	p.pace(ctx)
	return true
}

// pace sleeps the configured interval between items.
func (p *Pool) pace(ctx context.Context) {
	if p.cfg.Pacing <= 0 {
		return
	}
	timer := time.NewTimer(p.cfg.Pacing)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
