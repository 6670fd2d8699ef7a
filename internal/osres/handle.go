// Package osres provides a move-only owner for native OS handles (pipe
// instances, file handles, process/thread handles) so that every
// successful acquisition has exactly one release, even on an early
// return or a panic recovered higher up the stack.
package osres

import "sync"

// Raw is the underlying native handle value. On Windows this is a
// syscall.Handle-sized value; callers on other platforms may store a
// file descriptor or any other comparable resource id. osres never
// interprets the value itself, only its validity.
type Raw uintptr

// Invalid is the sentinel value representing "no handle". Closing an
// invalid handle is always a no-op.
const Invalid Raw = ^Raw(0)

// Closer releases a Raw handle. Supplied by the caller so osres never
// imports a platform-specific syscall package directly.
type Closer func(Raw) error

// Handle is a single-owner wrapper around a Raw OS handle. It is not
// safe to copy; pass by pointer or use Release to transfer ownership
// explicitly.
type Handle struct {
	mu     sync.Mutex
	raw    Raw
	close  Closer
	closed bool
}

// New adopts raw, taking ownership. close is invoked at most once, by
// Close or by the garbage collector finalizer path is deliberately NOT
// used here — ownership must be explicit, never implicit.
func New(raw Raw, close Closer) *Handle {
	return &Handle{raw: raw, close: close}
}

// Valid reports whether the handle still owns a non-sentinel value.
func (h *Handle) Valid() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed && h.raw != Invalid
}

// Raw returns the underlying value for passing to platform calls. The
// caller must not close it directly; use Close or Release.
func (h *Handle) Raw() Raw {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.raw
}

// Close releases the handle if still owned. Safe to call multiple
// times; only the first call invokes the platform closer.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	raw := h.raw
	h.raw = Invalid
	if raw == Invalid || h.close == nil {
		return nil
	}
	return h.close(raw)
}

// Release hands the raw value back to the caller without closing it,
// transferring ownership out of the Handle. Subsequent Close calls on
// this Handle are no-ops.
func (h *Handle) Release() Raw {
	h.mu.Lock()
	defer h.mu.Unlock()
	raw := h.raw
	h.raw = Invalid
	h.closed = true
	return raw
}

// Replace closes the current handle (if any) and adopts newRaw.
func (h *Handle) Replace(newRaw Raw) error {
	h.mu.Lock()
	old := h.raw
	closer := h.close
	wasClosed := h.closed
	h.raw = newRaw
	h.closed = false
	h.mu.Unlock()

	if wasClosed || old == Invalid || closer == nil {
		return nil
	}
	return closer(old)
}
