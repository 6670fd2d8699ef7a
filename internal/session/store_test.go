package session

import (
	"context"
	"testing"

	"github.com/vibedbg/vibedbg/internal/debugger"
)

func TestLazyInitPopulatesFromAdapter(t *testing.T) {
	m := debugger.NewMock()
	s := New(m)

	snap := s.GetSnapshot(context.Background())
	if !snap.Connected {
		t.Fatal("expected Connected after first snapshot")
	}
	if snap.CurrentProcess == nil || snap.CurrentProcess.PID == 0 {
		t.Fatalf("CurrentProcess = %+v", snap.CurrentProcess)
	}
	if snap.CurrentThread == nil || !snap.CurrentThread.IsCurrent {
		t.Fatalf("CurrentThread = %+v", snap.CurrentThread)
	}
}

func TestLazyInitOnlyRunsOnce(t *testing.T) {
	m := debugger.NewMock()
	s := New(m)

	first := s.GetSnapshot(context.Background())
	s.SwitchToThread(context.Background(), 99)
	second := s.GetSnapshot(context.Background())

	if first.SessionStart != second.SessionStart {
		t.Fatal("SessionStart changed across reads, lazyInit ran twice")
	}
	if second.CurrentThread.TID != 99 {
		t.Fatalf("CurrentThread.TID = %d, want 99", second.CurrentThread.TID)
	}
}

func TestNilAdapterStillInitializes(t *testing.T) {
	s := New(nil)
	snap := s.GetSnapshot(context.Background())
	if !snap.Connected {
		t.Fatal("expected store to be considered initialized with nil adapter")
	}
	if snap.CurrentProcess != nil {
		t.Fatal("expected CurrentProcess to remain empty with nil adapter")
	}
}

func TestGetSnapshotReturnsIndependentCopy(t *testing.T) {
	m := debugger.NewMock()
	s := New(m)

	snap := s.GetSnapshot(context.Background())
	snap.CurrentProcess.Name = "mutated"

	fresh := s.GetSnapshot(context.Background())
	if fresh.CurrentProcess.Name == "mutated" {
		t.Fatal("GetSnapshot leaked internal state to caller")
	}
}

func TestSuggestedCommandsFixedOrder(t *testing.T) {
	s := New(nil)
	cmds := s.SuggestedCommands()
	if len(cmds) != len(SuggestedCommands) {
		t.Fatalf("len = %d, want %d", len(cmds), len(SuggestedCommands))
	}
	cmds[0] = "mutated"
	if SuggestedCommands[0] == "mutated" {
		t.Fatal("SuggestedCommands caller mutation leaked into package state")
	}
}
