package sync

import (
	"context"

	"github.com/mbeoliero/kit/log"
)

// Task is a fire-and-forget side call with its own failure isolation
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// TaskRunner executes fire-and-forget tasks on background workers. The
// primary request path dispatches and moves on; a full queue drops the
// task with a log line rather than blocking the caller.
type TaskRunner struct {
	queue     chan Task
	workerNum int
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(queueSize, workerNum int) *TaskRunner {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workerNum <= 0 {
		workerNum = 4
	}
	return &TaskRunner{
		queue:     make(chan Task, queueSize),
		workerNum: workerNum,
	}
}

// Run starts the workers; they exit when ctx is cancelled
func (r *TaskRunner) Run(ctx context.Context) {
	for i := 0; i < r.workerNum; i++ {
		go r.workerLoop(ctx)
	}
	log.CtxInfo(ctx, "task runner started: workers=%d", r.workerNum)
}

// Dispatch enqueues a task without blocking. Returns false when the queue
// is full and the task was dropped.
func (r *TaskRunner) Dispatch(ctx context.Context, task Task) bool {
	select {
	case r.queue <- task:
		return true
	default:
		log.CtxWarn(ctx, "task queue full, dropping task: name=%s", task.Name)
		return false
	}
}

func (r *TaskRunner) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-r.queue:
			r.runTask(ctx, task)
		}
	}
}

func (r *TaskRunner) runTask(ctx context.Context, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			log.CtxError(ctx, "task panicked: name=%s, panic=%v", task.Name, rec)
		}
	}()

	if err := task.Fn(ctx); err != nil {
		log.CtxWarn(ctx, "task failed: name=%s, error=%v", task.Name, err)
	}
}
