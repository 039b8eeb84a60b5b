// Package worker executes queued agent runs unit by unit.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/metrics"
	"github.com/chromara/hq/internal/telemetry"
)

// DefaultEvent names the completion event when Config.Event is empty.
const DefaultEvent = "agent.run.finished"

// finalizeTimeout bounds status writes made after the run context ended.
const finalizeTimeout = 5 * time.Second

// Config controls Worker behavior.
type Config struct {
	// Event is passed to the publisher with each completion payload.
	Event string
	// RunBudget bounds a single run. Zero means no limit.
	RunBudget time.Duration
}

// Event is published when a run reaches a terminal status.
type Event struct {
	RunID      string          `json:"run_id"`
	Kind       agent.Kind      `json:"kind"`
	OwnerID    string          `json:"owner_id"`
	Status     agent.RunStatus `json:"status"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	ErrorText  string          `json:"error_text,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Worker consumes queue items and runs each input through the handler
// registered for the run's kind.
type Worker struct {
	queue     agent.Queue
	runs      agent.RunStore
	handlers  map[agent.Kind]agent.UnitHandler
	publisher agent.Publisher
	clock     agent.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. Publisher may be nil.
func New(
	queue agent.Queue,
	runs agent.RunStore,
	handlers map[agent.Kind]agent.UnitHandler,
	publisher agent.Publisher,
	clock agent.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Event == "" {
		cfg.Event = DefaultEvent
	}
	return &Worker{
		queue:     queue,
		runs:      runs,
		handlers:  handlers,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, consuming queue items until the context finishes or the queue
// is closed.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, agent.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			if !waitOrDone(ctx, 100*time.Millisecond) {
				return
			}
			continue
		}
		w.logger.Debug("dequeued run", zap.String("run_id", item.RunID), zap.String("kind", string(item.Kind)))
		w.Process(ctx, item)
	}
}

// Process executes one run to a terminal status.
func (w *Worker) Process(ctx context.Context, item agent.QueueItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	ctx, span := telemetry.StartSpan(ctx, "worker.run")
	defer span.End()

	logger := w.logger.With(zap.String("run_id", item.RunID), zap.String("kind", string(item.Kind)))
	if err := w.runs.MarkRunning(ctx, item.RunID, w.clock.Now()); err != nil {
		logger.Error("mark run running failed", zap.Error(err))
		w.finish(ctx, item, agent.RunFailed, agent.Outcome{}, fmt.Sprintf("mark running: %v", err), logger)
		return
	}

	handler, ok := w.handlers[item.Kind]
	if !ok {
		w.finish(ctx, item, agent.RunFailed, agent.Outcome{}, fmt.Sprintf("no handler for kind %q", item.Kind), logger)
		return
	}

	runCtx := ctx
	if w.cfg.RunBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.cfg.RunBudget)
		defer cancel()
	}

	var outcome agent.Outcome
	for _, input := range item.Inputs {
		if err := runCtx.Err(); err != nil {
			outcome.Record(input, fmt.Errorf("skipped: %w", err))
			continue
		}
		err := handler.HandleUnit(runCtx, item, input)
		outcome.Record(input, err)
		metrics.ObserveUnit(string(item.Kind), err)
		if err != nil {
			logger.Warn("unit failed", zap.String("input", input), zap.Error(err))
		} else {
			logger.Debug("unit succeeded", zap.String("input", input))
		}
	}

	status, errText := finalStatus(runCtx.Err(), outcome)
	w.finish(ctx, item, status, outcome, errText, logger)
}

func (w *Worker) finish(
	ctx context.Context,
	item agent.QueueItem,
	status agent.RunStatus,
	outcome agent.Outcome,
	errText string,
	logger *zap.Logger,
) {
	// The parent context may already be canceled on shutdown; the terminal
	// status must still be written.
	finCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	finished := w.clock.Now()
	if err := w.runs.CompleteRun(finCtx, item.RunID, status, outcome, errText, finished); err != nil {
		logger.Error("complete run failed", zap.Error(err))
	}
	metrics.ObserveRun(string(item.Kind), string(status))
	logger.Info("run finished",
		zap.String("status", string(status)),
		zap.Int("succeeded", outcome.Succeeded),
		zap.Int("failed", len(outcome.Failures)),
	)

	if w.publisher == nil {
		return
	}
	event := Event{
		RunID:      item.RunID,
		Kind:       item.Kind,
		OwnerID:    item.OwnerID,
		Status:     status,
		Succeeded:  outcome.Succeeded,
		Failed:     len(outcome.Failures),
		ErrorText:  errText,
		FinishedAt: finished,
	}
	if _, err := w.publisher.Publish(finCtx, w.cfg.Event, event); err != nil {
		logger.Warn("publish run event failed", zap.Error(err))
	}
}

// finalStatus maps a run's aggregate outcome to its terminal status. A
// canceled or timed-out run is failed even when some units succeeded.
func finalStatus(ctxErr error, outcome agent.Outcome) (agent.RunStatus, string) {
	switch {
	case ctxErr != nil:
		reason := "run canceled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			reason = "run budget exceeded"
		}
		return agent.RunFailed, reason
	case outcome.Succeeded == 0 && len(outcome.Failures) == 0:
		return agent.RunFailed, "run had no inputs"
	case outcome.Succeeded == 0:
		return agent.RunFailed, "no unit succeeded"
	default:
		return agent.RunCompleted, ""
	}
}

func waitOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
