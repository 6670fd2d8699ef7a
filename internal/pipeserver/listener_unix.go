//go:build !windows

package pipeserver

import (
	"net"
	"os"
	"path/filepath"
	"strings"
)

// unixListener is the non-Windows development/testing fallback: a Unix
// domain socket standing in for the named pipe, grounded in the teacher's
// listen() fallback chain (vsock → TCP → Unix socket) in
// cmd/agent/main.go.
type unixListener struct {
	ln   net.Listener
	path string
}

func newPlatformListener(name string, maxInstances, bufferSize int) (Listener, error) {
	path := unixSocketPath(name)
	os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &unixListener{ln: ln, path: path}, nil
}

func (l *unixListener) Accept() (Conn, error) {
	c, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (l *unixListener) Close() error {
	err := l.ln.Close()
	os.Remove(l.path)
	return err
}

// unixSocketPath maps a Windows-style pipe name (e.g. \\.\pipe\vibedbg) to
// a socket path under the OS temp directory.
func unixSocketPath(name string) string {
	base := name
	if idx := strings.LastIndex(name, `\`); idx >= 0 {
		base = name[idx+1:]
	}
	if base == "" {
		base = "vibedbg"
	}
	return filepath.Join(os.TempDir(), "vibedbg-"+base+".sock")
}
