package debugger

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMockExecuteTextCommandUnregistered(t *testing.T) {
	m := NewMock()
	res, err := m.ExecuteTextCommand(context.Background(), "modinfo foo", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for unregistered command")
	}
	if res.Status != StatusFailed {
		t.Fatalf("Status = %v, want StatusFailed", res.Status)
	}
	if !strings.Contains(res.RawOutput, "is not extension gallery command") {
		t.Fatalf("RawOutput = %q", res.RawOutput)
	}
}

func TestMockExecuteTextCommandRegistered(t *testing.T) {
	m := NewMock()
	m.Handle("echo", func(args string) (string, error) { return "got: " + args, nil })

	res, err := m.ExecuteTextCommand(context.Background(), "echo hello world", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Status != StatusOK {
		t.Fatalf("res = %+v, want success", res)
	}
	if res.RawOutput != "got: hello world" {
		t.Fatalf("RawOutput = %q", res.RawOutput)
	}
}

func TestMockExecuteTextCommandTimeout(t *testing.T) {
	m := NewMock()
	m.SetDelay(50 * time.Millisecond)
	m.Handle("slow", func(string) (string, error) { return "done", nil })

	res, err := m.ExecuteTextCommand(context.Background(), "slow", 5*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusTimeout {
		t.Fatalf("Status = %v, want StatusTimeout", res.Status)
	}
}

func TestMockResolveSymbol(t *testing.T) {
	m := NewMock()
	addr, status, err := m.ResolveSymbol(context.Background(), "notepad!WinMain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusOK || addr == 0 {
		t.Fatalf("addr=%x status=%v", addr, status)
	}

	_, status, err = m.ResolveSymbol(context.Background(), "nope!nothing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusNotFound {
		t.Fatalf("status = %v, want StatusNotFound", status)
	}
}

func TestMockSymbolAt(t *testing.T) {
	m := NewMock()
	base, _, err := m.ResolveSymbol(context.Background(), "notepad!WinMain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name, disp, status, err := m.SymbolAt(context.Background(), base+0x10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusOK || name != "notepad!WinMain" || disp != 0x10 {
		t.Fatalf("name=%q disp=%x status=%v", name, disp, status)
	}
}

func TestMockCurrentProcessAndThread(t *testing.T) {
	m := NewMock()
	p, status, err := m.CurrentProcess(context.Background())
	if err != nil || status != StatusOK || p.PID == 0 {
		t.Fatalf("p=%+v status=%v err=%v", p, status, err)
	}
	th, status, err := m.CurrentThread(context.Background())
	if err != nil || status != StatusOK || !th.IsCurrent {
		t.Fatalf("th=%+v status=%v err=%v", th, status, err)
	}
}

func TestMockReadMemoryDeterministic(t *testing.T) {
	m := NewMock()
	a, status, err := m.ReadMemory(context.Background(), 0x1000, 4)
	if err != nil || status != StatusOK {
		t.Fatalf("status=%v err=%v", status, err)
	}
	b, _, _ := m.ReadMemory(context.Background(), 0x1000, 4)
	if string(a) != string(b) {
		t.Fatal("expected deterministic output for same address")
	}
}
