// Package pipeserver implements the named-pipe server (component H): a
// listener that accepts one client connection at a time and a worker per
// connection that frames, parses, and dispatches commands through an
// injected handler. The listener/connection split plus the
// platform-selected transport fallback mirror the teacher's
// cmd/agent/main.go listen()/handleConnection() shape (vsock on Linux,
// a Unix socket fallback elsewhere), adapted here to Windows named
// pipes as the primary transport with a Unix-domain-socket fallback for
// non-Windows development and testing.
package pipeserver

import (
	"io"
	"time"
)

// Conn is a single client transport connection: a named pipe instance on
// Windows, a Unix-domain-socket connection elsewhere.
type Conn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Listener accepts Conns one at a time, blocking until a client connects.
// A Listener represents one pipe instance slot being recreated after every
// accepted connection, matching the named-pipe model where each instance
// serves exactly one client for its lifetime.
type Listener interface {
	Accept() (Conn, error)
	Close() error
}

// NewListener builds the platform-appropriate Listener for name.
func NewListener(name string, maxInstances, bufferSize int) (Listener, error) {
	return newPlatformListener(name, maxInstances, bufferSize)
}

// Dial connects to an already-running pipe server as a client, used by
// the CLI harness (§4.O) rather than by the server itself. It retries
// briefly since a named pipe in wait mode may not yet have an instance
// available.
func Dial(name string, timeout time.Duration) (Conn, error) {
	return dialPlatform(name, timeout)
}
