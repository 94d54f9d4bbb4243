package worker

import (
	"context"
	"sync"

	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
)

// Poster accepts tasks for serialized execution.
type Poster interface {
	Post(task func()) bool
}

// Worker executes posted tasks one at a time on a single goroutine.
// Every mutation of the standby state machine happens inside a task.
type Worker struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	done    chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	log       logger.Logger
}

// New creates a worker. queueSize is the initial capacity of the queue, which grows as needed
// so that Post never blocks, including when a task posts to its own worker.
func New(queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Worker{
		pending: make([]func(), 0, queueSize),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		log:     logger.Component("worker"),
	}
}

// Start launches the worker goroutine. The worker stops when ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case <-ctx.Done():
					w.shutdown()
					return
				case <-w.done:
					return
				case <-w.wake:
				}
				for {
					select {
					case <-ctx.Done():
						w.shutdown()
						return
					case <-w.done:
						return
					default:
					}
					task, ok := w.next()
					if !ok {
						break
					}
					w.run(task)
				}
			}
		}()
	})
}

func (w *Worker) next() (func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil, false
	}
	task := w.pending[0]
	w.pending[0] = nil
	w.pending = w.pending[1:]
	return task, true
}

func (w *Worker) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Task panicked", "panic", r)
		}
	}()
	task()
}

func (w *Worker) shutdown() {
	w.stopOnce.Do(func() { close(w.done) })
}

// Post enqueues a task in FIFO order without blocking. It returns false once the worker is stopped.
func (w *Worker) Post(task func()) bool {
	select {
	case <-w.done:
		return false
	default:
	}
	w.mu.Lock()
	w.pending = append(w.pending, task)
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of queued tasks.
func (w *Worker) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Call posts a task and waits for it to finish. It must not be called from a task.
func (w *Worker) Call(ctx context.Context, task func()) error {
	finished := make(chan struct{})
	if !w.Post(func() {
		defer close(finished)
		task()
	}) {
		return serrors.New(serrors.ErrCodeWorkerStopped, "Call", "worker is stopped", nil)
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return serrors.New(serrors.ErrCodeWorkerStopped, "Call", "worker stopped before task ran", nil)
	}
}

// Stop terminates the worker and waits for the running task, if any.
// Queued tasks that have not started are dropped.
func (w *Worker) Stop() {
	w.shutdown()
	w.wg.Wait()
}

// Personal.AI order the ending
