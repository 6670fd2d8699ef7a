package main

import (
	"fmt"
	"time"

	"github.com/vibedbg/vibedbg/internal/pipeserver"
	"github.com/vibedbg/vibedbg/internal/protocol"
)

// pipeClient is a thin synchronous client over the named-pipe wire
// protocol, grounded in the teacher's cmd/nova/main.go client helpers —
// one dial, one request, one response, no connection pooling — adapted
// from Redis round-trips to the project's own delimiter-framed codec.
type pipeClient struct {
	conn    pipeserver.Conn
	timeout time.Duration
}

func dial(pipeName string, timeout time.Duration) (*pipeClient, error) {
	conn, err := pipeserver.Dial(pipeName, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %q: %w", pipeName, err)
	}
	return &pipeClient{conn: conn, timeout: timeout}, nil
}

func (c *pipeClient) Close() error {
	return c.conn.Close()
}

// Execute sends a Command message and blocks for its Response.
func (c *pipeClient) Execute(command string) (protocol.ResponsePayload, error) {
	req := protocol.CommandPayload{
		RequestID: protocol.NewRequestID(),
		Command:   command,
		TimeoutMS: uint32(c.timeout.Milliseconds()),
	}
	out, err := protocol.SerializeCommand(req)
	if err != nil {
		return protocol.ResponsePayload{}, err
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := c.conn.Write(out); err != nil {
		return protocol.ResponsePayload{}, fmt.Errorf("write: %w", err)
	}

	return c.readResponse()
}

// readResponse reads and frames bytes off the wire until one complete
// message delimited by \r\n\r\n arrives, skipping any Heartbeat messages
// interleaved by the server, then parses it as a Response.
func (c *pipeClient) readResponse() (protocol.ResponsePayload, error) {
	var buf []byte
	readBuf := make([]byte, 4096)
	deadline := time.Now().Add(c.timeout)

	for time.Now().Before(deadline) {
		c.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, err := c.conn.Read(readBuf)
		if n > 0 {
			buf = append(buf, readBuf[:n]...)
		}

		for {
			msg, rest, ok := protocol.Split(buf)
			if !ok {
				break
			}
			buf = rest

			mt, perr := protocol.PeekMessageType(msg)
			if perr != nil {
				return protocol.ResponsePayload{}, perr
			}
			if mt == protocol.MessageHeartbeat {
				continue
			}
			return protocol.ParseResponse(msg)
		}

		if err != nil && !isTimeout(err) {
			return protocol.ResponsePayload{}, fmt.Errorf("read: %w", err)
		}
	}
	return protocol.ResponsePayload{}, fmt.Errorf("timed out waiting for response")
}

// waitForHeartbeat blocks until one Heartbeat message arrives or timeout
// elapses, used by `connect` to confirm the server is live.
func (c *pipeClient) waitForHeartbeat(timeout time.Duration) (protocol.HeartbeatPayload, error) {
	var buf []byte
	readBuf := make([]byte, 4096)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		c.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, err := c.conn.Read(readBuf)
		if n > 0 {
			buf = append(buf, readBuf[:n]...)
			if msg, _, ok := protocol.Split(buf); ok {
				mt, perr := protocol.PeekMessageType(msg)
				if perr != nil {
					return protocol.HeartbeatPayload{}, perr
				}
				if mt == protocol.MessageHeartbeat {
					hb, perr := protocol.ParseHeartbeat(msg)
					if perr != nil {
						return protocol.HeartbeatPayload{}, perr
					}
					return hb, nil
				}
			}
		}
		if err != nil && !isTimeout(err) {
			return protocol.HeartbeatPayload{}, fmt.Errorf("read: %w", err)
		}
	}
	return protocol.HeartbeatPayload{}, fmt.Errorf("timed out waiting for heartbeat")
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}
