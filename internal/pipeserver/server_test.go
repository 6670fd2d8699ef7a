package pipeserver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vibedbg/vibedbg/internal/protocol"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Name:         fmt.Sprintf("vibedbg-test-%d", time.Now().UnixNano()),
		MaxInstances: 4,
		BufferSize:   4096,
		ReadTimeout:  50 * time.Millisecond,
		WriteTimeout: time.Second,
	}
}

func echoHandler(_ context.Context, p protocol.CommandPayload) protocol.ResponsePayload {
	return protocol.ResponsePayload{
		RequestID: p.RequestID,
		Success:   true,
		Output:    "echo: " + p.Command,
	}
}

func TestServerStartStopIdempotent(t *testing.T) {
	s := New(testOptions(t), echoHandler)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	s.Stop()
	s.Stop()

	if s.IsRunning() {
		t.Fatal("expected server to be stopped")
	}
	if s.ActiveConnectionCount() != 0 {
		t.Fatalf("ActiveConnectionCount = %d, want 0", s.ActiveConnectionCount())
	}
}
