package extension

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vibedbg/vibedbg/internal/circuitbreaker"
	"github.com/vibedbg/vibedbg/internal/config"
	"github.com/vibedbg/vibedbg/internal/debugger"
	"github.com/vibedbg/vibedbg/internal/engine"
	"github.com/vibedbg/vibedbg/internal/logging"
	"github.com/vibedbg/vibedbg/internal/metrics"
	"github.com/vibedbg/vibedbg/internal/observability"
	"github.com/vibedbg/vibedbg/internal/pipeserver"
	"github.com/vibedbg/vibedbg/internal/protocol"
	"github.com/vibedbg/vibedbg/internal/session"
)

// Stats aggregates the controller's lifetime counters (§4.I).
type Stats struct {
	TotalConnections uint64
	TotalCommands    uint64
	Successful       uint64
	Failed           uint64
	Uptime           time.Duration
}

// Controller is the singleton extension entry point. The zero value is
// not usable; construct with New.
type Controller struct {
	cfg     *config.Config
	adapter debugger.Adapter

	mu        sync.Mutex
	running   bool
	startedAt time.Time

	session *session.Store
	breaker *circuitbreaker.Breaker
	engine  *engine.Engine
	server  *pipeserver.Server

	totalCommands uint64
	successful    uint64
	failed        uint64
}

// New constructs a Controller bound to cfg. adapter is the host debugger
// client; a nil adapter makes Init fail with ErrInitializationFailed,
// mirroring spec.md §4.I step 1.
func New(cfg *config.Config, adapter debugger.Adapter) *Controller {
	return &Controller{cfg: cfg, adapter: adapter}
}

// Init brings the controller up in the order spec.md §4.I mandates:
// bind → acquire sub-interfaces → session store → command engine → pipe
// server. A failure at any step tears down everything already started,
// in reverse, before returning.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	// Step 1: bind to the host debugger client.
	if c.adapter == nil {
		return &InitError{Stage: "bind_debugger_client", Err: ErrInitializationFailed}
	}

	// Step 2: acquire the adapter's sub-interfaces. debugger.Adapter is
	// already the unified seam (control, data-spaces, registers, symbols
	// collapsed into one interface per internal/debugger/adapter.go), so
	// acquisition degrades to a capability probe: a CurrentProcess call
	// that must not return a transport-level error.
	if _, _, err := c.adapter.CurrentProcess(ctx); err != nil {
		return &InitError{Stage: "acquire_sub_interfaces", Err: fmt.Errorf("%w: %w", ErrDebuggerInterfaceError, err)}
	}

	// Step 3: session state store (construction only).
	c.session = session.New(c.adapter)

	// Step 4: circuit breaker + command engine (starts its workers).
	c.breaker = circuitbreaker.New(circuitbreaker.Config{
		ErrorPct:       c.cfg.Breaker.ErrorPct,
		WindowDuration: c.cfg.Breaker.Window,
		OpenDuration:   c.cfg.Breaker.OpenDuration,
		HalfOpenProbes: c.cfg.Breaker.HalfOpenProbes,
	})
	c.engine = engine.New(c.adapter, c.session, c.breaker)
	c.engine.Start()

	// Step 5: pipe server, handler closes over engine + router (the
	// engine itself performs routing, per §4.F/§4.G). Start, then sleep
	// 100ms so the listener goroutine has entered its accept state.
	c.server = pipeserver.New(pipeserver.Options{
		Name:              c.cfg.Pipe.Name,
		MaxInstances:      c.cfg.Pipe.MaxInstances,
		BufferSize:        c.cfg.Pipe.BufferSize,
		ReadTimeout:       c.cfg.Pipe.ReadTimeout,
		WriteTimeout:      c.cfg.Pipe.WriteTimeout,
		HeartbeatInterval: c.cfg.Pipe.HeartbeatInterval,
	}, c.handle)

	if err := c.server.Start(); err != nil {
		c.engine.Stop()
		c.engine = nil
		c.session = nil
		c.breaker = nil
		return &InitError{Stage: "start_pipe_server", Err: ErrCommunicationSetupFailed}
	}
	time.Sleep(100 * time.Millisecond)

	c.startedAt = time.Now()
	c.running = true
	logging.Op().Info("extension controller initialized", "pipe", c.cfg.Pipe.Name)
	return nil
}

// Shutdown tears the controller down in reverse order. Idempotent.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}

	c.server.Stop()
	c.engine.Stop()
	c.session = nil
	c.breaker = nil
	c.running = false
	logging.Op().Info("extension controller shut down")
}

// IsRunning reports whether Init has completed and Shutdown has not yet
// run.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Stats returns a snapshot of the controller's lifetime counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var uptime time.Duration
	var conns uint64
	if c.running {
		uptime = time.Since(c.startedAt)
		conns = c.server.SnapshotStats().TotalConnections
	}
	return Stats{
		TotalConnections: conns,
		TotalCommands:    atomic.LoadUint64(&c.totalCommands),
		Successful:       atomic.LoadUint64(&c.successful),
		Failed:           atomic.LoadUint64(&c.failed),
		Uptime:           uptime,
	}
}

// handle is the single function installed into the pipe server at start
// (§4.H "Handler injection", §4.I step 5). It never interprets command
// text itself beyond what engine.Execute already does; it only adapts
// between the wire payload shape and the engine's Options/CommandResult.
func (c *Controller) handle(ctx context.Context, req protocol.CommandPayload) protocol.ResponsePayload {
	opts := engine.DefaultOptions()
	if req.TimeoutMS > 0 {
		opts.TimeoutOverride = time.Duration(req.TimeoutMS) * time.Millisecond
	}

	result := c.engine.Execute(ctx, req.Command, opts)

	atomic.AddUint64(&c.totalCommands, 1)
	if result.Success {
		atomic.AddUint64(&c.successful, 1)
	} else {
		atomic.AddUint64(&c.failed, 1)
	}

	var sessionData map[string]interface{}
	if c.session != nil {
		snap := c.session.GetSnapshot(ctx)
		sessionData = map[string]interface{}{
			"connected":      snap.Connected,
			"target_running": snap.TargetRunning,
		}
	}

	return protocol.ResponsePayload{
		RequestID:       req.RequestID,
		Success:         result.Success,
		Output:          result.Output,
		ErrorMessage:    result.ErrorMessage,
		ExecutionTimeMS: uint32(result.ExecutionTime.Milliseconds()),
		SessionData:     sessionData,
		Timestamp:       time.Now().Unix(),
	}
}

// InitMetrics wires the optional Prometheus /metrics endpoint (§4.K),
// serving on loopback only when cfg.Metrics.Enabled.
func InitMetrics(cfg *config.Config) {
	if !cfg.Metrics.Enabled {
		return
	}
	metrics.Init(cfg.Metrics.Namespace)
	go serveMetrics(cfg.Metrics.Addr)
}

// InitTracing configures the OTLP tracer per §4.L.
func InitTracing(ctx context.Context, cfg *config.Config) error {
	return observability.Init(ctx, observability.Config{
		Enabled:     cfg.Tracing.Enabled,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRate:  cfg.Tracing.SampleRate,
	})
}
