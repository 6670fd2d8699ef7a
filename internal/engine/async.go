package engine

import (
	"context"
	"time"

	"github.com/vibedbg/vibedbg/internal/metrics"
)

// asyncTask is one item submitted to the async worker pool.
type asyncTask struct {
	ctx     context.Context
	command string
	opts    Options
	result  chan CommandResult
}

// SubmitAsync enqueues command for execution by one of the two fixed
// engine workers and returns a channel that receives exactly one
// CommandResult once it completes. The queue is a bounded FIFO
// (buffered channel): when it is full, SubmitAsync blocks until a
// worker takes a task or the engine is stopped, in which case the
// returned channel carries an "engine is stopped" result.
func (e *Engine) SubmitAsync(ctx context.Context, command string, opts Options) <-chan CommandResult {
	result := make(chan CommandResult, 1)
	task := asyncTask{ctx: ctx, command: command, opts: opts, result: result}

	select {
	case e.taskCh <- task:
		metrics.SetQueueDepth(len(e.taskCh))
	case <-e.stopCh:
		result <- CommandResult{
			Success:         false,
			ErrorMessage:    "engine is stopped",
			CommandExecuted: command,
			Timestamp:       time.Now(),
		}
	}
	return result
}

// QueueDepth reports how many async tasks are currently buffered,
// waiting for a worker.
func (e *Engine) QueueDepth() int {
	return len(e.taskCh)
}

// CancelAllPending drains the task queue without executing the
// drained tasks, replying to each with a canceled result. In-flight
// work already claimed by a worker is unaffected (§4.F, §5: cancel_all_pending
// clears the queue but does not interrupt in-flight work).
func (e *Engine) CancelAllPending() int {
	canceled := 0
	for {
		select {
		case task := <-e.taskCh:
			task.result <- CommandResult{
				Success:         false,
				ErrorMessage:    "canceled before execution",
				CommandExecuted: task.command,
				Timestamp:       time.Now(),
			}
			canceled++
		default:
			metrics.SetQueueDepth(len(e.taskCh))
			return canceled
		}
	}
}

func (e *Engine) worker(id int) {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case task := <-e.taskCh:
			metrics.SetQueueDepth(len(e.taskCh))
			task.result <- e.Execute(task.ctx, task.command, task.opts)
		}
	}
}
