package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/worker"
)

// TestDispatcherRunStartsWorkers ensures workers begin processing and stop on cancel.
func TestDispatcherRunStartsWorkers(t *testing.T) {
	t.Parallel()

	queue := &blockingQueue{started: make(chan struct{}, 2)}
	workers := []*worker.Worker{
		worker.New(queue, nil, nil, nil, nil, worker.Config{}, zap.NewNop()),
		worker.New(queue, nil, nil, nil, nil, worker.Config{}, zap.NewNop()),
	}
	dispatch := New(queue, workers, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatch.Run(ctx)
		close(done)
	}()

	for range workers {
		select {
		case <-queue.started:
		case <-time.After(time.Second):
			t.Fatal("worker did not begin dequeuing")
		}
	}

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancel")
	}
}

// TestDispatcherEnqueueForwardsErrors verifies queue errors carry the run id.
func TestDispatcherEnqueueForwardsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	dispatch := New(&errorQueue{err: boom}, nil, nil)

	err := dispatch.Enqueue(context.Background(), agent.QueueItem{RunID: "run-7"})
	require.EqualError(t, err, "enqueue run run-7: boom")
	require.ErrorIs(t, err, boom)
}

func TestDispatcherEnqueueRequiresRunID(t *testing.T) {
	t.Parallel()

	queue := &errorQueue{}
	dispatch := New(queue, nil, nil)

	require.ErrorIs(t, dispatch.Enqueue(context.Background(), agent.QueueItem{Inputs: []string{"a"}}), ErrMissingRunID)
	require.Zero(t, queue.calls)
	require.NoError(t, dispatch.Enqueue(context.Background(), agent.QueueItem{RunID: "run-1"}))
	require.Equal(t, 1, queue.calls)
}

func TestDispatcherRunWithoutWorkersReturns(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		New(&errorQueue{}, nil, nil).Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher with no workers should return")
	}
}

type blockingQueue struct {
	started chan struct{}
}

func (q *blockingQueue) Enqueue(context.Context, agent.QueueItem) error {
	return nil
}

func (q *blockingQueue) Dequeue(ctx context.Context) (agent.QueueItem, error) {
	select {
	case q.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return agent.QueueItem{}, fmt.Errorf("blocking dequeue canceled: %w", ctx.Err())
}

type errorQueue struct {
	err   error
	calls int
}

func (q *errorQueue) Enqueue(context.Context, agent.QueueItem) error {
	q.calls++
	return q.err
}

func (q *errorQueue) Dequeue(context.Context) (agent.QueueItem, error) {
	return agent.QueueItem{}, nil
}
