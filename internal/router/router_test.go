package router

import "testing"

func TestRouteSingleTokenCommands(t *testing.T) {
	for _, cmd := range []string{"k", "~", "lm", "r", "g", "bl", ".detach", ".kill"} {
		rt := RouteCommand(cmd)
		if !rt.Matched || rt.ParseError != "" || rt.Text != cmd {
			t.Fatalf("RouteCommand(%q) = %+v", cmd, rt)
		}
	}
}

func TestRouteBreakpointBySymbol(t *testing.T) {
	rt := RouteCommand("bp main")
	if !rt.Matched || rt.ParseError != "" {
		t.Fatalf("RouteCommand = %+v", rt)
	}
	if rt.Text != "bp main" {
		t.Fatalf("Text = %q, want %q", rt.Text, "bp main")
	}
}

func TestRouteBreakpointByAddress(t *testing.T) {
	rt := RouteCommand("bp 0x7ffaa120")
	if !rt.Matched || rt.ParseError != "" {
		t.Fatalf("RouteCommand = %+v", rt)
	}
	if rt.Text != "bp 0x7ffaa120" {
		t.Fatalf("Text = %q", rt.Text)
	}
}

func TestRouteBreakpointSetRequiresArg(t *testing.T) {
	rt := RouteCommand("bp")
	if !rt.Matched || rt.ParseError == "" {
		t.Fatalf("RouteCommand = %+v, want parse error", rt)
	}
}

func TestRouteBreakpointIDMalformed(t *testing.T) {
	rt := RouteCommand("bc abc")
	if !rt.Matched {
		t.Fatal("expected bc to match")
	}
	if rt.ParseError == "" || rt.ParseError[:6] != "Error:" {
		t.Fatalf("ParseError = %q, want Error: prefix", rt.ParseError)
	}
	if !contains(rt.ParseError, "abc") {
		t.Fatalf("ParseError = %q, want to echo original arg", rt.ParseError)
	}
}

func TestRouteBreakpointIDValid(t *testing.T) {
	rt := RouteCommand("bc 3")
	if !rt.Matched || rt.ParseError != "" {
		t.Fatalf("RouteCommand = %+v", rt)
	}
	if rt.Text != "bc 3" {
		t.Fatalf("Text = %q", rt.Text)
	}
}

func TestRouteAttachHexPid(t *testing.T) {
	rt := RouteCommand(".attach 1a2b")
	if !rt.Matched || rt.ParseError != "" {
		t.Fatalf("RouteCommand = %+v", rt)
	}
	if rt.Text != ".attach 0x1a2b" {
		t.Fatalf("Text = %q", rt.Text)
	}
}

func TestRouteMemoryDisplayDefaults(t *testing.T) {
	rt := RouteCommand("db 1000")
	if !rt.Matched || rt.ParseError != "" {
		t.Fatalf("RouteCommand = %+v", rt)
	}
	if rt.Text != "db 0x1000 L0x100" {
		t.Fatalf("Text = %q", rt.Text)
	}
}

func TestRouteMemoryDisplayQwordMultipliesCount(t *testing.T) {
	rt := RouteCommand("dq 1000 L10")
	if !rt.Matched || rt.ParseError != "" {
		t.Fatalf("RouteCommand = %+v", rt)
	}
	if rt.Text != "dq 0x1000 L0x80" {
		t.Fatalf("Text = %q, want count*8", rt.Text)
	}
}

func TestRouteMemoryDisplayWordMultipliesCount(t *testing.T) {
	rt := RouteCommand("dw 1000 L10")
	if !rt.Matched || rt.ParseError != "" {
		t.Fatalf("RouteCommand = %+v", rt)
	}
	if rt.Text != "dw 0x1000 L0x20" {
		t.Fatalf("Text = %q, want count*2", rt.Text)
	}
}

func TestRouteNoMatchFallsThroughToGeneric(t *testing.T) {
	rt := RouteCommand("?eval 1+1")
	if rt.Matched {
		t.Fatalf("expected no match for unrecognized command, got %+v", rt)
	}
}

func TestRouteDeadlockComposite(t *testing.T) {
	rt := RouteCommand("deadlock")
	if !rt.Matched || !rt.Composite {
		t.Fatalf("RouteCommand = %+v, want composite match", rt)
	}
	if len(CompositeSteps) != 4 {
		t.Fatalf("CompositeSteps len = %d, want 4", len(CompositeSteps))
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
