// Package debugger declares the seam between the extension core and
// the native debugger engine. The contracts here are declared, not
// implemented against real WinDbg COM interfaces (IDebugClient,
// IDebugControl, ...) — those interfaces are external per the
// project's scope and are wired in by a platform-specific
// implementation elsewhere. This package also provides a Mock
// implementation for tests and the CLI harness, grounded in the
// teacher's local process executor (internal/executor/local.go):
// context-bounded invocation, buffered output capture, and duration
// measurement, generalized from "run a subprocess" to "run a
// registered fake debugger command".
package debugger

import (
	"context"
	"time"
)

// Status classifies the outcome of an adapter call. Adapter methods
// never panic or return a Go error for ordinary debugger-side
// failures (bad expression, target not running, ...); they report
// Status instead, matching spec.md §4.C's "none raise" contract. A Go
// error return is reserved for inability to honor the call at all
// (context cancellation, adapter not bound).
type Status int

const (
	// StatusOK indicates the call completed and RawOutput/return value
	// reflects the debugger's actual response.
	StatusOK Status = iota
	// StatusFailed indicates the debugger rejected or failed the
	// request (bad syntax, no such symbol, ...).
	StatusFailed
	// StatusTimeout indicates the call's timeout elapsed before the
	// debugger responded. See Design Notes on why the underlying call
	// may still be running after this is returned.
	StatusTimeout
	// StatusNotFound indicates a lookup (symbol, process, thread)
	// found nothing.
	StatusNotFound
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusTimeout:
		return "timeout"
	case StatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ExecResult is the outcome of ExecuteTextCommand.
type ExecResult struct {
	Success   bool
	RawOutput string
	HResult   int32
	Status    Status
	Duration  time.Duration
}

// ProcessInfo describes the debugger's current target process.
type ProcessInfo struct {
	PID        uint32
	Name       string
	ImagePath  string
	Attached   bool
	AttachTime time.Time
}

// ThreadInfo describes a single thread of the current target.
type ThreadInfo struct {
	TID       uint32
	PID       uint32
	IsCurrent bool
	State     string
}

// Adapter is the narrow seam through which the command engine (F)
// drives the real debugger. Implementations must be safe for
// concurrent use in the sense of not corrupting their own state, but
// the engine does not rely on that: per spec.md §9 the debugger engine
// itself is assumed unsafe for concurrent calls, so engine.Execute
// serializes calls through an Adapter behind a single mutex regardless
// of what the Adapter promises.
//
// # Idempotency
//
// Not guaranteed. ExecuteTextCommand in particular may have
// side effects (breakpoints set, memory written); callers requiring
// at-most-once semantics must not blindly retry on StatusTimeout.
type Adapter interface {
	// ExecuteTextCommand runs a raw debugger command string and
	// captures its text output. timeout bounds how long the caller
	// will wait; implementations should derive a context deadline from
	// it (ctx may already carry a shorter deadline, in which case the
	// earlier of the two wins).
	ExecuteTextCommand(ctx context.Context, text string, timeout time.Duration) (ExecResult, error)

	// ReadMemory reads length bytes starting at addr from the target's
	// address space.
	ReadMemory(ctx context.Context, addr uint64, length uint32) ([]byte, Status, error)

	// ResolveSymbol resolves a symbol name to an address.
	ResolveSymbol(ctx context.Context, name string) (addr uint64, status Status, err error)

	// SymbolAt resolves an address to the nearest symbol and the byte
	// displacement from it.
	SymbolAt(ctx context.Context, addr uint64) (name string, displacement uint64, status Status, err error)

	// CurrentProcess reports the debugger's current target process.
	CurrentProcess(ctx context.Context) (ProcessInfo, Status, error)

	// CurrentThread reports the debugger's current thread.
	CurrentThread(ctx context.Context) (ThreadInfo, Status, error)
}
