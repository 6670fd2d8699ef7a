//go:build !windows

package pipeserver

import (
	"net"
	"time"
)

func dialPlatform(name string, timeout time.Duration) (Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.Dial("unix", unixSocketPath(name))
}
