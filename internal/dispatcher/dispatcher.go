// Package dispatcher hands queued runs to the worker pool.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/worker"
)

// ErrMissingRunID rejects queue items that cannot be tied back to a run row.
var ErrMissingRunID = errors.New("queue item has no run id")

// Dispatcher owns the run queue and the workers draining it.
type Dispatcher struct {
	queue   agent.Queue
	workers []*worker.Worker
	logger  *zap.Logger
}

// New creates a Dispatcher.
func New(queue agent.Queue, workers []*worker.Worker, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   queue,
		workers: workers,
		logger:  logger,
	}
}

// Run drains queued runs on every worker until ctx is canceled or the queue
// closes. A run already taken by a worker is finished before Run returns.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	wg.Wait()
	d.logger.Info("workers stopped", zap.Int("workers", len(d.workers)))
}

// Enqueue queues a created run for the workers.
func (d *Dispatcher) Enqueue(ctx context.Context, item agent.QueueItem) error {
	if item.RunID == "" {
		return ErrMissingRunID
	}
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("enqueue run %s: %w", item.RunID, err)
	}
	d.logger.Debug("run queued",
		zap.String("run_id", item.RunID),
		zap.String("kind", string(item.Kind)),
		zap.Int("inputs", len(item.Inputs)),
	)
	return nil
}
