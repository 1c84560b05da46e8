package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/switchboard/internal/logging"
)

// Task is a unit of deferred work.
type Task func(ctx context.Context) error

type deferredTask struct {
	name string
	run  Task
}

// Deferred is a FIFO queue of work that must run after the current handler
// has returned. Tasks are never cancelled once scheduled.
type Deferred struct {
	mu     sync.Mutex
	tasks  []deferredTask
	logger *slog.Logger
}

// NewDeferred creates an empty queue. A nil logger discards output.
func NewDeferred(logger *slog.Logger) *Deferred {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Deferred{logger: logger}
}

// Schedule appends a task to the queue.
func (d *Deferred) Schedule(name string, task Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, deferredTask{name: name, run: task})
}

// Len returns the number of pending tasks.
func (d *Deferred) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

// Drain runs, in order, the tasks that were pending when it was called.
// Tasks scheduled while draining wait for the next Drain.
// A failing task does not stop the ones after it; all failures are joined.
func (d *Deferred) Drain(ctx context.Context) error {
	d.mu.Lock()
	batch := d.tasks
	d.tasks = nil
	d.mu.Unlock()

	var errs []error
	for _, t := range batch {
		if err := t.run(ctx); err != nil {
			d.logger.Error("Deferred task failed", "task", t.name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
		}
	}
	return errors.Join(errs...)
}
