package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// RunAll executes tasks on a fresh pool and blocks until every task has
// finished. Task errors are joined in submission order. When ctx is
// canceled, tasks not yet started are skipped and ctx's error is returned
// with any task errors.
func RunAll(ctx context.Context, tasks []Task, config WorkerPoolConfig, log *slog.Logger) error {
	if len(tasks) == 0 {
		return ctx.Err()
	}

	queue := NewTaskQueue(len(tasks), log)
	order := make(map[uuid.UUID]int, len(tasks))
	for i, t := range tasks {
		order[t.ID()] = i
		if err := queue.Enqueue(t); err != nil {
			queue.Close()
			return err
		}
	}
	queue.Close()

	var mu sync.Mutex
	failures := make([]error, len(tasks))

	pool := NewWorkerPool(queue, config, log)
	pool.SetErrorHandler(func(t Task, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures[order[t.ID()]] = err
	})
	pool.Start(ctx)
	pool.Wait()

	errs := make([]error, 0, len(failures)+1)
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	for _, err := range failures {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
