// Package capture implements the output capture sink: a transient
// accumulator installed as the debugger's text-output callback for the
// duration of a single command invocation. Grounded on the teacher's
// local executor output capture (internal/executor/local.go's
// bytes.Buffer stdout/stderr capture) generalized to a callback-based
// push model instead of a pipe-based pull model, since WinDbg delivers
// output via repeated callback invocations rather than a single stream
// read.
package capture

import (
	"strings"
	"sync"
)

// MaxBytes is the hard cap on captured output (§4.B, §8: "Output
// exactly 1 MB is returned whole; output exceeding is terminates with
// truncation sentinel").
const MaxBytes = 1 << 20 // 1 MiB

// TruncatedSentinel is appended once when the cap is exceeded; all
// further chunks are dropped until Reset.
const TruncatedSentinel = "[Output truncated - maximum size exceeded]"

const (
	cacheForceDecodeWarning = ".cache forcedecodeuser is not enabled"
	notGalleryCommand       = "is not extension gallery command"
	noExportMarkerA         = "No export"
	noExportMarkerB         = "found"
)

// Sink accumulates text chunks pushed from the debugger's output
// callback. A Sink is scoped to a single command invocation: construct
// it, feed that command's output to Write, read Output(), then let it
// go out of scope. It must never be shared across two commands. This
// package has no install helper; the caller decides how output reaches
// Write.
type Sink struct {
	mu        sync.Mutex
	buf       strings.Builder
	truncated bool
	rewritten map[string]bool // which classification rules already fired
	size      int
}

// New creates an empty capture sink.
func New() *Sink {
	return &Sink{rewritten: make(map[string]bool)}
}

// Write appends a chunk of debugger output text. Safe to call from any
// thread — the debugger may invoke the output callback from a thread
// other than the one that installed the sink.
func (s *Sink) Write(chunk string) {
	if chunk == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.truncated {
		return
	}
	if s.size+len(chunk) > MaxBytes {
		s.buf.WriteString(TruncatedSentinel)
		s.buf.WriteString("\n")
		s.truncated = true
		return
	}

	s.buf.WriteString(s.classify(chunk))
	s.size += len(chunk)
}

// classify rewrites known noisy/misleading debugger lines into
// clearer ones. Each rule fires at most once per capture (§4.B).
func (s *Sink) classify(line string) string {
	if strings.Contains(line, cacheForceDecodeWarning) && !s.rewritten["cache_warning"] {
		s.rewritten["cache_warning"] = true
		return "Note: " + line
	}
	if strings.Contains(line, notGalleryCommand) && !s.rewritten["gallery_command"] {
		s.rewritten["gallery_command"] = true
		return rewriteGalleryCommandError(line)
	}
	if strings.Contains(line, noExportMarkerA) && strings.Contains(line, noExportMarkerB) && !s.rewritten["no_export"] {
		s.rewritten["no_export"] = true
		return "Note: command is unavailable in the current context (" + strings.TrimSpace(line) + ")\n"
	}
	return line
}

// rewriteGalleryCommandError produces an actionable error for the
// "is not extension gallery command" family, with a dedicated case for
// modinfo suggesting its replacement.
func rewriteGalleryCommandError(line string) string {
	if strings.Contains(line, "modinfo") {
		return "Error: 'modinfo' is not available here; try 'lmv' instead\n"
	}
	return "Error: " + strings.TrimSpace(line) + "\n"
}

// Output returns the captured text so far.
func (s *Sink) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// Truncated reports whether the size cap was hit.
func (s *Sink) Truncated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.truncated
}

// Reset clears the buffer and truncation state, allowing the sink to
// be reused for a subsequent, unrelated capture window. Capture sinks
// are normally short-lived (one per command) so Reset exists mainly
// for pooling and tests.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
	s.truncated = false
	s.size = 0
	s.rewritten = make(map[string]bool)
}
