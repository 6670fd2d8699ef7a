//go:build windows

package pipeserver

import (
	"fmt"
	"io"
	"time"

	"github.com/vibedbg/vibedbg/internal/osres"
	"golang.org/x/sys/windows"
)

const (
	pipeAccessDuplex        = 0x00000003
	pipeTypeByte            = 0x00000000
	pipeReadmodeByte        = 0x00000000
	pipeWait                = 0x00000000
	pipeRejectRemoteClients = 0x00000008
	pipeUnlimitedInstances  = 0xff
)

// winPipeListener recreates a named pipe instance after every accepted
// connection, per §4.H's "resume creating the next instance" listener loop.
type winPipeListener struct {
	name         *uint16
	maxInstances uint32
	bufferSize   uint32
	closed       chan struct{}
}

func newPlatformListener(name string, maxInstances, bufferSize int) (Listener, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("pipeserver: invalid pipe name %q: %w", name, err)
	}
	inst := uint32(maxInstances)
	if maxInstances <= 0 {
		inst = pipeUnlimitedInstances
	}
	return &winPipeListener{
		name:         namePtr,
		maxInstances: inst,
		bufferSize:   uint32(bufferSize),
		closed:       make(chan struct{}),
	}, nil
}

func (l *winPipeListener) Accept() (Conn, error) {
	for {
		select {
		case <-l.closed:
			return nil, windows.ERROR_OPERATION_ABORTED
		default:
		}

		handle, err := windows.CreateNamedPipe(
			l.name,
			pipeAccessDuplex,
			pipeTypeByte|pipeReadmodeByte|pipeWait|pipeRejectRemoteClients,
			l.maxInstances,
			l.bufferSize,
			l.bufferSize,
			0,
			nil,
		)
		if err != nil {
			// §4.H: on CreateNamedPipe failure, sleep and retry.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if err := windows.ConnectNamedPipe(handle, nil); err != nil && err != windows.ERROR_PIPE_CONNECTED {
			windows.CloseHandle(handle)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		return newWinPipeConn(handle), nil
	}
}

func (l *winPipeListener) Close() error {
	close(l.closed)
	return nil
}

// winPipeConn wraps one connected named pipe instance. The handle is
// owned by an osres.Handle (component A) so disconnect-then-close
// happens exactly once regardless of how many times Close is called.
type winPipeConn struct {
	handle *osres.Handle
}

func newWinPipeConn(h windows.Handle) *winPipeConn {
	return &winPipeConn{handle: osres.New(osres.Raw(h), closePipeHandle)}
}

func closePipeHandle(raw osres.Raw) error {
	h := windows.Handle(raw)
	windows.DisconnectNamedPipe(h)
	return windows.CloseHandle(h)
}

func (c *winPipeConn) Read(p []byte) (int, error) {
	var n uint32
	err := windows.ReadFile(windows.Handle(c.handle.Raw()), p, &n, nil)
	if err != nil {
		return int(n), mapPipeError(err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return int(n), nil
}

func (c *winPipeConn) Write(p []byte) (int, error) {
	var n uint32
	err := windows.WriteFile(windows.Handle(c.handle.Raw()), p, &n, nil)
	if err != nil {
		return int(n), mapPipeError(err)
	}
	return int(n), nil
}

func (c *winPipeConn) Close() error {
	return c.handle.Close()
}

// Windows named pipes created without FILE_FLAG_OVERLAPPED don't support
// per-call deadlines, so these are no-ops: a Read blocks until data
// arrives or the pipe reports an error, and a Write blocks until it
// completes.
func (c *winPipeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *winPipeConn) SetWriteDeadline(t time.Time) error { return nil }

func mapPipeError(err error) error {
	switch err {
	case windows.ERROR_BROKEN_PIPE, windows.ERROR_PIPE_NOT_CONNECTED, windows.ERROR_NO_DATA:
		return io.EOF
	default:
		return err
	}
}
