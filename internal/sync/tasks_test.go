package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRunner_ExecutesDispatchedTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := NewTaskRunner(8, 2)
	runner.Run(ctx)

	done := make(chan struct{})
	ok := runner.Dispatch(ctx, Task{
		Name: "test-task",
		Fn: func(ctx context.Context) error {
			close(done)
			return nil
		},
	})
	require.True(t, ok)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestTaskRunner_DropsWhenQueueFull(t *testing.T) {
	// No workers started, so the queue only drains by capacity
	runner := NewTaskRunner(1, 1)
	ctx := context.Background()

	noop := Task{Name: "noop", Fn: func(ctx context.Context) error { return nil }}
	assert.True(t, runner.Dispatch(ctx, noop))
	assert.False(t, runner.Dispatch(ctx, noop), "full queue drops instead of blocking")
}

func TestTaskRunner_RecoversFromPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := NewTaskRunner(8, 1)
	runner.Run(ctx)

	runner.Dispatch(ctx, Task{
		Name: "panics",
		Fn:   func(ctx context.Context) error { panic("boom") },
	})

	// The worker must survive and run the next task
	done := make(chan struct{})
	runner.Dispatch(ctx, Task{
		Name: "after-panic",
		Fn: func(ctx context.Context) error {
			close(done)
			return nil
		},
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
}
