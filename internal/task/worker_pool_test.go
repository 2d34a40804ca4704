package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// mockTaskQueue implements TaskQueueReader for testing
type mockTaskQueue struct {
	ch chan Task
}

func newMockTaskQueue() *mockTaskQueue {
	return &mockTaskQueue{
		ch: make(chan Task, 10),
	}
}

func (m *mockTaskQueue) GetChannel() <-chan Task {
	return m.ch
}

func TestNewWorkerPool(t *testing.T) {
	logger := setupTestLogger()
	taskQueue := newMockTaskQueue()
	config := WorkerPoolConfig{
		WorkerCount: 5,
	}

	pool := NewWorkerPool(taskQueue, config, logger)

	assert.NotNil(t, pool)
	assert.Equal(t, 5, pool.workerCount)
	assert.Equal(t, taskQueue, pool.taskQueue)
	assert.NotNil(t, pool.logger)
	assert.Nil(t, pool.errorHandler)

	// Test with invalid worker count (should default to 1)
	pool = NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 0}, logger)
	assert.Equal(t, 1, pool.workerCount)

	// Test with negative worker count (should default to 1)
	pool = NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: -5}, logger)
	assert.Equal(t, 1, pool.workerCount)

	// A nil logger falls back to the default logger
	pool = NewWorkerPool(taskQueue, DefaultWorkerPoolConfig(), nil)
	assert.NotNil(t, pool.logger)

	assert.Panics(t, func() {
		NewWorkerPool(nil, DefaultWorkerPoolConfig(), logger)
	})
}

func TestSetErrorHandler(t *testing.T) {
	pool := NewWorkerPool(newMockTaskQueue(), DefaultWorkerPoolConfig(), setupTestLogger())

	assert.Nil(t, pool.errorHandler)
	pool.SetErrorHandler(func(task Task, err error) {})
	assert.NotNil(t, pool.errorHandler)
}

func TestWorkerPool_Start_Stop(t *testing.T) {
	pool := NewWorkerPool(newMockTaskQueue(), WorkerPoolConfig{WorkerCount: 2}, setupTestLogger())

	pool.Start(context.Background())
	// A second Start does not launch more workers
	pool.Start(context.Background())

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Timed out waiting for worker pool to stop")
	}
}

func TestWorkerPool_ProcessTask_Success(t *testing.T) {
	taskQueue := newMockTaskQueue()
	completed := make(chan struct{})

	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		close(completed)
		return nil
	}

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.SetErrorHandler(func(task Task, err error) {
		t.Errorf("unexpected task error: %v", err)
	})
	pool.Start(context.Background())
	defer pool.Stop()

	taskQueue.ch <- task

	select {
	case <-completed:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Timed out waiting for task to complete")
	}
}

func TestWorkerPool_ProcessTask_Error(t *testing.T) {
	taskQueue := newMockTaskQueue()
	errorHandled := make(chan error, 1)

	expectedErr := errors.New("test error")
	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		return expectedErr
	}

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.SetErrorHandler(func(task Task, err error) {
		errorHandled <- err
	})
	pool.Start(context.Background())
	defer pool.Stop()

	taskQueue.ch <- task

	select {
	case err := <-errorHandled:
		assert.Equal(t, expectedErr, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Timed out waiting for error handler")
	}
}

func TestWorkerPool_ProcessTask_Panic(t *testing.T) {
	taskQueue := newMockTaskQueue()
	errorHandled := make(chan error, 1)

	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		panic("test panic")
	}

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.SetErrorHandler(func(task Task, err error) {
		errorHandled <- err
	})
	pool.Start(context.Background())
	defer pool.Stop()

	taskQueue.ch <- task

	select {
	case err := <-errorHandled:
		assert.Contains(t, err.Error(), "test panic")
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Timed out waiting for error handler after panic")
	}
}

func TestWorkerPool_Wait_DrainsClosedQueue(t *testing.T) {
	queue := NewTaskQueue(20, setupTestLogger())

	var executed atomic.Int32
	for i := 0; i < 20; i++ {
		task := newMockTask()
		task.execFn = func(ctx context.Context) error {
			executed.Add(1)
			return nil
		}
		assert.NoError(t, queue.Enqueue(task))
	}
	queue.Close()

	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 4}, setupTestLogger())
	pool.Start(context.Background())

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for workers to drain the queue")
	}
	assert.Equal(t, int32(20), executed.Load())
}

func TestWorkerPool_Shutdown_DuringTask(t *testing.T) {
	taskQueue := newMockTaskQueue()

	taskStarted := make(chan struct{})
	taskCompleted := make(chan struct{})

	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		close(taskStarted)
		<-ctx.Done()
		close(taskCompleted)
		return ctx.Err()
	}

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.Start(context.Background())

	taskQueue.ch <- task

	select {
	case <-taskStarted:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Timed out waiting for task to start")
	}

	stopDone := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopDone)
	}()

	select {
	case <-taskCompleted:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Timed out waiting for task to be canceled")
	}

	select {
	case <-stopDone:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Timed out waiting for worker pool to stop")
	}
}

func TestWorkerPool_ParentContextCancellation(t *testing.T) {
	taskQueue := newMockTaskQueue()
	ctx, cancel := context.WithCancel(context.Background())

	contextCanceled := make(chan struct{})
	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		<-ctx.Done()
		close(contextCanceled)
		return ctx.Err()
	}

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.Start(ctx)
	defer pool.Stop()

	taskQueue.ch <- task
	cancel()

	select {
	case <-contextCanceled:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Timed out waiting for context cancellation")
	}
}
