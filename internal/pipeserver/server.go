package pipeserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vibedbg/vibedbg/internal/logging"
	"github.com/vibedbg/vibedbg/internal/metrics"
	"github.com/vibedbg/vibedbg/internal/observability"
	"github.com/vibedbg/vibedbg/internal/protocol"
)

const pollInterval = 10 * time.Millisecond

// Handler is installed once at server start by the extension controller
// (§4.I) and closes over the router and command engine. The server never
// interprets command text itself.
type Handler func(context.Context, protocol.CommandPayload) protocol.ResponsePayload

// Options configures the pipe server (§4.H).
type Options struct {
	Name              string
	MaxInstances      int
	BufferSize        int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
}

// ConnStats mirrors the connection entity's stats field (spec.md §3).
type ConnStats struct {
	ConnTime     time.Time
	MsgsRecv     uint64
	MsgsSent     uint64
	BytesRecv    uint64
	BytesSent    uint64
	LastActivity time.Time
}

type connection struct {
	id     string
	conn   Conn
	active atomic.Bool

	mu    sync.Mutex
	stats ConnStats
}

// Stats aggregates server-wide connection counters.
type Stats struct {
	TotalConnections  uint64
	ActiveConnections int
}

// Server owns the listener and the set of live connections (§4.H).
type Server struct {
	opts    Options
	handler Handler

	listener Listener

	mu    sync.RWMutex
	conns map[string]*connection

	totalConns atomic.Uint64
	running    atomic.Bool
	stopCh     chan struct{}

	listenerWG sync.WaitGroup
	workersWG  sync.WaitGroup
}

// New constructs a Server. Start must be called to begin accepting
// connections.
func New(opts Options, handler Handler) *Server {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1 << 16
	}
	return &Server{
		opts:    opts,
		handler: handler,
		conns:   make(map[string]*connection),
	}
}

// Start creates the listener and spawns the listener/heartbeat goroutines.
// Idempotent: calling Start while already running is a no-op.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	ln, err := NewListener(s.opts.Name, s.opts.MaxInstances, s.opts.BufferSize)
	if err != nil {
		s.running.Store(false)
		return err
	}
	s.listener = ln
	s.stopCh = make(chan struct{})

	s.listenerWG.Add(1)
	go s.acceptLoop()

	if s.opts.HeartbeatInterval > 0 {
		s.listenerWG.Add(1)
		go s.heartbeatLoop()
	}

	return nil
}

// Stop joins the listener and every worker, then drops the connection
// list. Idempotent (§4.H "Cleanup").
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stopCh)
	if s.listener != nil {
		s.listener.Close()
	}
	s.listenerWG.Wait()

	s.mu.RLock()
	live := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		live = append(live, c)
	}
	s.mu.RUnlock()

	for _, c := range live {
		c.active.Store(false)
		c.conn.Close()
	}
	s.workersWG.Wait()

	s.mu.Lock()
	s.conns = make(map[string]*connection)
	s.mu.Unlock()
	metrics.SetActiveConnections(0)
}

// IsRunning reports whether the server is currently accepting connections.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

func (s *Server) acceptLoop() {
	defer s.listenerWG.Done()
	for s.running.Load() {
		c, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			logging.Op().Warn("pipe accept failed, retrying", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		conn := s.track(c)
		s.workersWG.Add(1)
		go s.worker(conn)
	}
}

func (s *Server) track(c Conn) *connection {
	conn := &connection{id: protocol.NewRequestID(), conn: c}
	conn.active.Store(true)
	conn.stats.ConnTime = time.Now()

	s.mu.Lock()
	s.conns[conn.id] = conn
	s.mu.Unlock()

	s.totalConns.Add(1)
	metrics.SetActiveConnections(s.ActiveConnectionCount())
	return conn
}

func (s *Server) untrack(conn *connection) {
	conn.active.Store(false)
	conn.conn.Close()

	s.mu.Lock()
	delete(s.conns, conn.id)
	s.mu.Unlock()

	metrics.SetActiveConnections(s.ActiveConnectionCount())
}

// worker implements the per-connection read/frame/dispatch loop (§4.H).
func (s *Server) worker(conn *connection) {
	defer s.workersWG.Done()
	defer s.untrack(conn)

	var buf []byte
	readBuf := make([]byte, s.opts.BufferSize)

	for conn.active.Load() && s.running.Load() {
		if s.opts.ReadTimeout > 0 {
			conn.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		}

		n, err := conn.conn.Read(readBuf)
		if n > 0 {
			buf = append(buf, readBuf[:n]...)
			conn.mu.Lock()
			conn.stats.BytesRecv += uint64(n)
			conn.stats.LastActivity = time.Now()
			conn.mu.Unlock()
		}

		if len(buf) > protocol.MaxMessageSize {
			// §9: reject before buffering further rather than growing buf
			// without bound while waiting for a delimiter that may never
			// arrive.
			logging.Op().Warn("pipe connection exceeded max message size, closing", "conn", conn.id)
			return
		}

		if err != nil {
			if isRecoverable(err) {
				time.Sleep(pollInterval)
			} else {
				return
			}
		}

		for {
			msg, rest, ok := protocol.Split(buf)
			if !ok {
				break
			}
			buf = rest
			s.handleMessage(conn, msg)
		}

		if n == 0 && err == nil {
			time.Sleep(pollInterval)
		}
	}
}

func (s *Server) handleMessage(conn *connection, msg []byte) {
	conn.mu.Lock()
	conn.stats.MsgsRecv++
	conn.mu.Unlock()

	mt, cerr := protocol.PeekMessageType(msg)
	if cerr != nil {
		s.replyCodecError(conn, cerr.Error())
		return
	}
	if mt != protocol.MessageCommand {
		s.replyCodecError(conn, "pipe server only accepts command messages")
		return
	}

	cmd, cerr := protocol.ParseCommand(msg)
	if cerr != nil {
		s.replyCodecError(conn, cerr.Error())
		return
	}

	ctx, span := observability.StartServerSpan(context.Background(), "vibedbg.handle_message",
		observability.AttrConnID.String(conn.id),
		observability.AttrCommand.String(cmd.Command),
	)
	defer span.End()

	start := time.Now()
	resp := s.handler(ctx, cmd)
	if resp.Success {
		observability.SetSpanOK(span)
	} else {
		span.SetAttributes(observability.AttrOutcome.String("failed"))
	}

	logging.Default().Log(&logging.CommandLog{
		RequestID:     cmd.RequestID,
		TraceID:       observability.GetTraceID(ctx),
		SpanID:        observability.GetSpanID(ctx),
		CommandPrefix: commandPrefix(cmd.Command),
		DurationMs:    time.Since(start).Milliseconds(),
		Success:       resp.Success,
		Error:         resp.ErrorMessage,
	})

	out, err := protocol.SerializeResponse(resp)
	if err != nil {
		logging.Op().Error("failed to serialize response", "request_id", resp.RequestID, "error", err)
		return
	}
	s.write(conn, out)
}

// replyCodecError replies per §7's codec-error policy: success=false,
// request_id "unknown", connection stays open.
func (s *Server) replyCodecError(conn *connection, message string) {
	out, err := protocol.SerializeResponse(protocol.ResponsePayload{
		RequestID:    "unknown",
		Success:      false,
		ErrorMessage: message,
	})
	if err != nil {
		return
	}
	s.write(conn, out)
}

func (s *Server) write(conn *connection, data []byte) {
	if s.opts.WriteTimeout > 0 {
		conn.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	n, err := conn.conn.Write(data)

	conn.mu.Lock()
	conn.stats.BytesSent += uint64(n)
	conn.stats.MsgsSent++
	conn.mu.Unlock()

	if err != nil {
		conn.active.Store(false)
	}
}

func (s *Server) heartbeatLoop() {
	defer s.listenerWG.Done()
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.broadcastHeartbeat()
		}
	}
}

func (s *Server) broadcastHeartbeat() {
	out, err := protocol.SerializeHeartbeat(protocol.HeartbeatPayload{})
	if err != nil {
		return
	}

	s.mu.RLock()
	live := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		live = append(live, c)
	}
	s.mu.RUnlock()

	for _, c := range live {
		if c.active.Load() {
			s.write(c, out)
		}
	}
}

// ActiveConnectionCount returns the current number of tracked connections.
func (s *Server) ActiveConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// SnapshotStats returns server-wide connection counters.
func (s *Server) SnapshotStats() Stats {
	return Stats{
		TotalConnections:  s.totalConns.Load(),
		ActiveConnections: s.ActiveConnectionCount(),
	}
}

// commandPrefix truncates a command to its first 32 bytes for logging, so
// that a multi-KB scripted command or raw memory write doesn't balloon the
// request log.
func commandPrefix(cmd string) string {
	const max = 32
	if len(cmd) <= max {
		return cmd
	}
	return cmd[:max] + "..."
}

// isRecoverable reports whether a read error for that connection's worker
// should merely pause-and-retry (timeout / no data yet) rather than end
// the connection (broken pipe, not connected, EOF) — §4.H "errors
// recoverable vs not".
func isRecoverable(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}
