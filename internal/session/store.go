// Package session holds the shared, lazily-initialized snapshot of
// debugger session state (component D). It follows the teacher's
// multi-reader/single-writer pattern used throughout the codebase for
// shared mutable state (RWMutex-guarded, read path takes RLock, the
// sole-writer path takes Lock).
package session

import (
	"context"
	"sync"
	"time"

	"github.com/vibedbg/vibedbg/internal/debugger"
)

// Process is the optional current-process snapshot.
type Process struct {
	PID        uint32
	Name       string
	ImagePath  string
	Attached   bool
	AttachTime time.Time
}

// Thread is the optional current-thread snapshot.
type Thread struct {
	TID       uint32
	PID       uint32
	IsCurrent bool
	State     string
}

// State is the session state entity (spec §3).
type State struct {
	Connected      bool
	TargetRunning  bool
	SessionStart   time.Time
	CurrentProcess *Process
	CurrentThread  *Thread
	Metadata       map[string]string
}

// SuggestedCommands is the fixed ordered list of common user-mode
// debugger primitives surfaced to a client that asks "what can I run
// next" — stack, registers, disassembly, memory display, thread list,
// module list, breakpoint set, continue, step-over, step-into.
var SuggestedCommands = []string{
	"k",    // stack trace
	"r",    // registers
	"u",    // disassembly
	"db",   // memory display (bytes)
	"~",    // thread list
	"lm",   // module list
	"bp",   // breakpoint set
	"g",    // continue
	"p",    // step-over
	"t",    // step-into
}

// Store is the thread-safe session state holder. The zero value is
// not initialized; use New.
type Store struct {
	mu          sync.RWMutex
	initialized bool
	adapter     debugger.Adapter
	state       State
}

// New constructs a Store bound to adapter, without querying it yet.
// The actual process/thread query is deferred to first read, to avoid
// circular initialization with the component that constructs both the
// store and the adapter (§4.I).
func New(adapter debugger.Adapter) *Store {
	return &Store{adapter: adapter}
}

// lazyInit queries the adapter for the current process/thread exactly
// once. A query failure (adapter returns a non-OK status) is not
// fatal: the corresponding optional field is simply left empty and
// the store is still marked initialized, per spec §4.D.
func (s *Store) lazyInit(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}
	s.initialized = true
	s.state.SessionStart = time.Now()
	s.state.Connected = true
	s.state.Metadata = make(map[string]string)

	if s.adapter == nil {
		return
	}

	if p, status, err := s.adapter.CurrentProcess(ctx); err == nil && status == debugger.StatusOK {
		proc := Process{PID: p.PID, Name: p.Name, ImagePath: p.ImagePath, Attached: p.Attached, AttachTime: p.AttachTime}
		s.state.CurrentProcess = &proc
		s.state.TargetRunning = p.Attached
	}
	if th, status, err := s.adapter.CurrentThread(ctx); err == nil && status == debugger.StatusOK {
		thr := Thread{TID: th.TID, PID: th.PID, IsCurrent: th.IsCurrent, State: th.State}
		s.state.CurrentThread = &thr
	}
}

// GetSnapshot returns a copy of the current session state, triggering
// lazy initialization on first call.
func (s *Store) GetSnapshot(ctx context.Context) State {
	s.lazyInit(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() State {
	out := s.state
	if s.state.CurrentProcess != nil {
		p := *s.state.CurrentProcess
		out.CurrentProcess = &p
	}
	if s.state.CurrentThread != nil {
		t := *s.state.CurrentThread
		out.CurrentThread = &t
	}
	if s.state.Metadata != nil {
		md := make(map[string]string, len(s.state.Metadata))
		for k, v := range s.state.Metadata {
			md[k] = v
		}
		out.Metadata = md
	}
	return out
}

// Update replaces fields of the session state wholesale. Callers
// typically build new from a GetSnapshot-derived value rather than
// racing a read-modify-write; Update itself is atomic with respect to
// other readers/writers.
func (s *Store) Update(ctx context.Context, new State) {
	s.lazyInit(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = new
}

// SwitchToThread updates only the current thread pointer, marking it
// current. It does not contact the adapter — callers that need the
// adapter's view of a freshly-switched thread should query it and
// pass the result to Update.
func (s *Store) SwitchToThread(ctx context.Context, tid uint32) {
	s.lazyInit(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	pid := uint32(0)
	if s.state.CurrentProcess != nil {
		pid = s.state.CurrentProcess.PID
	}
	s.state.CurrentThread = &Thread{TID: tid, PID: pid, IsCurrent: true, State: "running"}
}

// SuggestedCommands returns the fixed ordered primitive list.
// Initialization state does not affect it.
func (s *Store) SuggestedCommands() []string {
	out := make([]string, len(SuggestedCommands))
	copy(out, SuggestedCommands)
	return out
}
