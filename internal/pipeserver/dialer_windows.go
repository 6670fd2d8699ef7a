//go:build windows

package pipeserver

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows"
)

const (
	genericRead  = 0x80000000
	genericWrite = 0x40000000
	openExisting = 3
)

// dialPlatform opens the named pipe as a client, retrying while the
// server has not yet created an instance or all instances are busy.
func dialPlatform(name string, timeout time.Duration) (Conn, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("pipeserver: invalid pipe name %q: %w", name, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		handle, err := windows.CreateFile(
			namePtr,
			genericRead|genericWrite,
			0,
			nil,
			openExisting,
			0,
			0,
		)
		if err == nil {
			return newWinPipeConn(handle), nil
		}
		if err != windows.ERROR_PIPE_BUSY && err != windows.ERROR_FILE_NOT_FOUND {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("pipeserver: dial %q timed out: %w", name, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
