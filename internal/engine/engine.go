// Package engine implements the command execution engine (component
// F): normalization, validation, routing, the sync/async/batch
// execution paths, and statistics. The async worker pool is grounded
// in the teacher's asyncqueue.WorkerPool (internal/asyncqueue/worker.go)
// — a fixed goroutine count draining a buffered channel, joined on
// Stop via sync.WaitGroup — simplified to the spec's static 2-worker
// case (no adaptive elastic scaling, no external queue/notifier,
// since there is exactly one process-local caller, not a
// distributed queue of tenants).
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vibedbg/vibedbg/internal/capture"
	"github.com/vibedbg/vibedbg/internal/circuitbreaker"
	"github.com/vibedbg/vibedbg/internal/debugger"
	"github.com/vibedbg/vibedbg/internal/logging"
	"github.com/vibedbg/vibedbg/internal/metrics"
	"github.com/vibedbg/vibedbg/internal/observability"
	"github.com/vibedbg/vibedbg/internal/router"
	"github.com/vibedbg/vibedbg/internal/session"
)

// defaultTimeout and longRunningTimeout are the per-spec defaults
// (§4.F: "Per-command default 30s; long-running prefixes (g,
// !analyze) default to 60s").
const (
	defaultTimeout      = 30 * time.Second
	longRunningTimeout  = 60 * time.Second
	maxCommandBytes     = 1024
	asyncWorkerCount    = 2
	asyncQueueCapacity  = 256
)

var longRunningPrefixes = map[string]bool{
	"g":        true,
	"!analyze": true,
}

// dangerousPrefixes is the denylist (§4.F). Matching is a plain prefix
// test against the lower-cased, trimmed command. Prefixes ending in a
// space require a following token; bare prefixes (".reboot", ".crash",
// ".detach", ".kill", "sxe", "sxd") match any command that starts with
// them, so "sxe" also matches "sxeav".
var dangerousPrefixes = []string{
	"ed ", "eb ", "ew ", "eq ", // memory-write
	".reboot", ".crash", // system control
	"!process 0 7", // system-stalling query
	".detach", ".kill", // destructive process control
	"sxe", "sxd", // exception-handling changes
}

const (
	sanitizeTokenRM  = "rm "
	sanitizeTokenDEL = "del "
)

// Options configures a single Execute call.
type Options struct {
	Validate        bool          // reject empty/oversized/dangerous commands
	TimeoutOverride time.Duration // 0 means use the command-prefix default
	RetryCount      int           // retries on Timeout only
	RetryDelay      time.Duration
}

// DefaultOptions is Validate=true, no retry, no timeout override — the
// common case for a single interactive command.
func DefaultOptions() Options {
	return Options{Validate: true}
}

// CommandResult is the result of one command execution.
type CommandResult struct {
	Success         bool
	Output          string
	ErrorMessage    string
	ExecutionTime   time.Duration
	CommandExecuted string
	Timestamp       time.Time
}

// BatchResult is the result of a Batch call.
type BatchResult struct {
	Results    []CommandResult
	Successful int
	Failed     int
	TotalTime  time.Duration
	AllOK      bool
}

// ProgressFunc is invoked after each batch item completes.
type ProgressFunc func(completed, total int)

// Engine ties together the router, the debugger adapter, the session
// store, the reliability guard, and the async worker pool.
type Engine struct {
	adapter debugger.Adapter
	session *session.Store
	breaker *circuitbreaker.Breaker

	// adapterMu serializes all calls into the debugger adapter. The
	// adapter's own concurrency-safety is undocumented (spec §9); the
	// conservative choice is to never call it from two goroutines at
	// once, breaker notwithstanding.
	adapterMu sync.Mutex

	stats statsTracker

	taskCh  chan asyncTask
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
	startMu sync.Mutex

	// lastBreakerState lets reportBreakerState detect a transition into
	// StateOpen rather than re-counting a trip on every guarded call
	// while the breaker stays open.
	lastBreakerState atomic.Int32
}

// New constructs an Engine. The async workers are not started until
// Start is called.
func New(adapter debugger.Adapter, store *session.Store, breaker *circuitbreaker.Breaker) *Engine {
	return &Engine{
		adapter: adapter,
		session: store,
		breaker: breaker,
		taskCh:  make(chan asyncTask, asyncQueueCapacity),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the fixed async worker pool.
func (e *Engine) Start() {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	if e.started {
		return
	}
	e.started = true
	for i := 0; i < asyncWorkerCount; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	logging.Op().Info("command engine workers started", "workers", asyncWorkerCount)
}

// Stop drains no further tasks, cancels pending (unstarted) work, and
// joins the workers. In-flight adapter calls are not interrupted; the
// worker that owns one exits once the call returns (§5).
func (e *Engine) Stop() {
	e.startMu.Lock()
	if !e.started {
		e.startMu.Unlock()
		return
	}
	e.started = false
	close(e.stopCh)
	e.startMu.Unlock()

	e.wg.Wait()
	if n := e.CancelAllPending(); n > 0 {
		logging.Op().Warn("canceled pending async tasks on stop", "count", n)
	}
	logging.Op().Info("command engine workers stopped")
}

// Stats returns a snapshot of the running counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// Execute runs command synchronously and returns its result.
func (e *Engine) Execute(ctx context.Context, command string, opts Options) CommandResult {
	ctx, span := observability.StartSpan(ctx, "vibedbg.execute_command",
		observability.AttrCommand.String(command))
	defer span.End()

	result := e.execute(ctx, command, opts)

	span.SetAttributes(
		observability.AttrOutcome.String(outcomeLabel(result)),
		observability.AttrDurationMs.Int64(result.ExecutionTime.Milliseconds()),
	)
	if result.Success {
		observability.SetSpanOK(span)
	} else {
		observability.SetSpanError(span, fmt.Errorf("%s", result.ErrorMessage))
	}
	metrics.RecordCommand(outcomeLabel(result), result.ExecutionTime.Milliseconds())

	return result
}

func outcomeLabel(r CommandResult) string {
	if r.Success {
		return "success"
	}
	if r.ErrorMessage == "command timed out" {
		return "timeout"
	}
	return "failed"
}

// reportBreakerState pushes the breaker's current state to the gauge and,
// on a transition into the open state, increments the trips counter
// (§4.K "breaker_state", "breaker_trips_total").
func (e *Engine) reportBreakerState() {
	state := e.breaker.State()
	metrics.SetBreakerState(mapBreakerState(state))
	prev := circuitbreaker.State(e.lastBreakerState.Swap(int32(state)))
	if state == circuitbreaker.StateOpen && prev != circuitbreaker.StateOpen {
		metrics.RecordBreakerTrip("open")
	}
}

func mapBreakerState(s circuitbreaker.State) metrics.BreakerState {
	switch s {
	case circuitbreaker.StateOpen:
		return metrics.BreakerOpen
	case circuitbreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	default:
		return metrics.BreakerClosed
	}
}

func (e *Engine) execute(ctx context.Context, command string, opts Options) CommandResult {
	start := time.Now()
	trimmed := strings.TrimSpace(command)

	if opts.Validate {
		if trimmed == "" {
			return e.reject(trimmed, start, "command must not be empty")
		}
		if len(trimmed) > maxCommandBytes {
			return e.reject(trimmed, start, fmt.Sprintf("command exceeds %d bytes", maxCommandBytes))
		}
	}

	normalized := strings.ToLower(trimmed)
	route := router.RouteCommand(normalized)

	if route.Matched && route.Composite {
		return e.executeComposite(ctx, opts, start)
	}

	if route.Matched && route.ParseError != "" {
		// A malformed argument to a recognized command is a
		// user-visible inline message, not an engine/protocol-level
		// error (§4.G) — the adapter is never invoked.
		elapsed := time.Since(start)
		e.stats.recordSuccess(elapsed)
		return CommandResult{
			Success:         true,
			Output:          route.ParseError,
			CommandExecuted: trimmed,
			ExecutionTime:   elapsed,
			Timestamp:       start,
		}
	}

	var textToRun string
	bypassDenylist := route.Matched
	if route.Matched {
		textToRun = route.Text
	} else {
		textToRun = trimmed
	}

	if !bypassDenylist && opts.Validate {
		if reason, dangerous := isDangerous(normalized); dangerous {
			return e.reject(trimmed, start, "unsafe command rejected: "+reason)
		}
		if reason, forbidden := sanitize(normalized); forbidden {
			return e.reject(trimmed, start, "unsafe command rejected: "+reason)
		}
	}

	// Trigger lazy session initialization (§4.F step 3); the result is
	// not embedded here, callers that need session_data read it
	// separately via Engine's session store.
	if e.session != nil {
		e.session.GetSnapshot(ctx)
	}

	return e.runWithRetry(ctx, textToRun, trimmed, opts, start)
}

func (e *Engine) reject(cmd string, start time.Time, reason string) CommandResult {
	e.stats.recordFailure(0)
	return CommandResult{
		Success:         false,
		ErrorMessage:    reason,
		CommandExecuted: cmd,
		ExecutionTime:   time.Since(start),
		Timestamp:       start,
	}
}

func isDangerous(normalized string) (string, bool) {
	for _, prefix := range dangerousPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return fmt.Sprintf("matches dangerous prefix %q", prefix), true
		}
	}
	return "", false
}

func sanitize(normalized string) (string, bool) {
	if strings.Contains(normalized, sanitizeTokenRM) {
		return "contains forbidden token \"rm \"", true
	}
	if strings.Contains(normalized, sanitizeTokenDEL) {
		return "contains forbidden token \"del \"", true
	}
	return "", false
}

// effectiveTimeout resolves the per-call timeout: explicit override,
// else the command-prefix default, else the global default.
func effectiveTimeout(normalizedText string, opts Options) time.Duration {
	if opts.TimeoutOverride > 0 {
		return opts.TimeoutOverride
	}
	fields := strings.Fields(normalizedText)
	if len(fields) > 0 && longRunningPrefixes[fields[0]] {
		return longRunningTimeout
	}
	return defaultTimeout
}

// runWithRetry calls the adapter, retrying only on Timeout, up to
// opts.RetryCount additional attempts.
func (e *Engine) runWithRetry(ctx context.Context, text, original string, opts Options, start time.Time) CommandResult {
	attempts := opts.RetryCount + 1
	var result CommandResult
	var timedOut bool

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && opts.RetryDelay > 0 {
			select {
			case <-time.After(opts.RetryDelay):
			case <-ctx.Done():
				return e.reject(original, start, "context canceled during retry delay")
			}
		}
		result, timedOut = e.callAdapterOnce(ctx, text, original, opts, start)
		if !timedOut {
			return result
		}
	}
	return result
}

// callAdapterOnce performs exactly one guarded adapter invocation:
// breaker check, mutex serialization, output capture, timeout.
func (e *Engine) callAdapterOnce(ctx context.Context, text, original string, opts Options, start time.Time) (CommandResult, bool) {
	if e.breaker != nil && !e.breaker.Allow() {
		e.stats.recordFailure(0)
		e.reportBreakerState()
		return CommandResult{
			Success:         false,
			ErrorMessage:    "debugger adapter is unresponsive (circuit breaker open)",
			CommandExecuted: original,
			ExecutionTime:   time.Since(start),
			Timestamp:       start,
		}, false
	}

	timeout := effectiveTimeout(strings.ToLower(text), opts)
	sink := capture.New()

	e.adapterMu.Lock()
	res, err := e.adapter.ExecuteTextCommand(ctx, text, timeout)
	e.adapterMu.Unlock()

	dur := time.Since(start)

	if err != nil {
		if e.breaker != nil {
			e.breaker.RecordFailure()
			e.reportBreakerState()
		}
		e.stats.recordFailure(dur)
		return CommandResult{
			Success:         false,
			ErrorMessage:    err.Error(),
			CommandExecuted: original,
			ExecutionTime:   dur,
			Timestamp:       start,
		}, false
	}

	switch res.Status {
	case debugger.StatusTimeout:
		if e.breaker != nil {
			e.breaker.RecordFailure()
			e.reportBreakerState()
		}
		e.stats.recordTimeout(dur)
		return CommandResult{
			Success:         false,
			ErrorMessage:    "command timed out",
			CommandExecuted: original,
			ExecutionTime:   dur,
			Timestamp:       start,
		}, true
	case debugger.StatusOK:
		if e.breaker != nil {
			e.breaker.RecordSuccess()
			e.reportBreakerState()
		}
		e.stats.recordSuccess(dur)
		sink.Write(res.RawOutput)
		return CommandResult{
			Success:         true,
			Output:          sink.Output(),
			CommandExecuted: original,
			ExecutionTime:   dur,
			Timestamp:       start,
		}, false
	default:
		if e.breaker != nil {
			e.breaker.RecordFailure()
		}
		e.stats.recordFailure(dur)
		sink.Write(res.RawOutput)
		out := sink.Output()
		msg := out
		if msg == "" {
			msg = fmt.Sprintf("command failed with status %s", res.Status)
		}
		return CommandResult{
			Success:         false,
			ErrorMessage:    msg,
			CommandExecuted: original,
			ExecutionTime:   dur,
			Timestamp:       start,
		}, false
	}
}

func (e *Engine) executeComposite(ctx context.Context, opts Options, start time.Time) CommandResult {
	var sb strings.Builder
	allOK := true
	for _, step := range router.CompositeSteps {
		res, _ := e.callAdapterOnce(ctx, step.Command, step.Command, opts, start)
		sb.WriteString("== ")
		sb.WriteString(step.Label)
		sb.WriteString(" ==\n")
		if res.Success {
			sb.WriteString(res.Output)
		} else {
			allOK = false
			sb.WriteString("Error: ")
			sb.WriteString(res.ErrorMessage)
		}
		sb.WriteString("\n\n")
	}
	return CommandResult{
		Success:         allOK,
		Output:          sb.String(),
		CommandExecuted: "deadlock",
		ExecutionTime:   time.Since(start),
		Timestamp:       start,
	}
}
