// Package router implements the command router (component G):
// pattern-matching a normalized command string to a typed handler
// that emits the exact debugger command text to run, or falling
// through to generic pass-through. Grounded in the teacher's
// table-driven dispatch style (internal/mcp and the cobra command
// trees register a flat table of named operations rather than a
// cascade of string comparisons); here the table is a prefix→handler
// map instead of a subcommand tree, since the input is user text, not
// argv.
package router

import (
	"fmt"
	"strconv"
	"strings"
)

// Route is the outcome of routing a command. Text is the literal
// string to execute against the debugger adapter. ParseError is set
// when a parameterized command matched an arity but failed argument
// parsing — that failure is an inline, user-visible message (§4.G),
// not an engine-level error, so Route still reports a successful
// routing decision.
type Route struct {
	Matched    bool
	Text       string
	ParseError string // non-empty ⇒ caller should surface this as output instead of invoking the adapter
	Composite  bool   // true for the deadlock-analysis composite command
}

// singleToken lists commands that route verbatim once recognized —
// the debugger command text is identical to the routed prefix.
var singleToken = map[string]bool{
	"k": true, "kn": true, "kl": true, "kp": true, "kv": true, // stack trace family
	"~":         true, // threads
	"!process":  true,
	"!processes": true,
	"lm":        true,
	"!modules":  true,
	"r":         true, // registers
	"g":         true, "p": true, "t": true, "gu": true, "gh": true, "gn": true, // execution
	"bl":        true, // breakpoint listing
	".detach":   true,
	".restart":  true,
	".kill":     true,
	"!analyze":  true,
}

// RouteCommand is the package-level entry point. cmd must already be
// normalized (lower-cased, trimmed) by the caller (the engine does
// this before routing, per §4.F step order).
func RouteCommand(cmd string) Route {
	if cmd == "deadlock" || cmd == "!deadlock" {
		return Route{Matched: true, Composite: true}
	}

	if singleToken[cmd] {
		return Route{Matched: true, Text: cmd}
	}

	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return Route{}
	}
	head := fields[0]
	arg := strings.TrimSpace(strings.TrimPrefix(cmd, head))

	switch head {
	case "bp":
		return routeBreakpointSet(cmd, arg)
	case "bc", "bd", "be":
		return routeBreakpointID(cmd, head, arg)
	case ".attach":
		return routeAttach(cmd, arg)
	case ".create":
		if arg == "" {
			return Route{Matched: true, ParseError: "Error: .create requires a path"}
		}
		return Route{Matched: true, Text: cmd}
	case ".dump":
		if arg == "" {
			return Route{Matched: true, ParseError: "Error: .dump requires a path"}
		}
		return Route{Matched: true, Text: cmd}
	case "db", "dd", "dw", "dq":
		return routeMemoryDisplay(cmd, head, arg)
	}

	// Nothing matched: generic pass-through.
	return Route{}
}

func routeBreakpointSet(cmd, arg string) Route {
	if arg == "" {
		return Route{Matched: true, ParseError: "Error: bp requires an address or symbol"}
	}
	if looksHex(arg) {
		if _, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(arg), "0x"), 16, 64); err != nil {
			return Route{Matched: true, ParseError: fmt.Sprintf("Error: invalid address %q for bp", arg)}
		}
	}
	// Either a valid address or a symbol name: pass through verbatim,
	// the adapter/debugger does the actual resolution.
	return Route{Matched: true, Text: cmd}
}

func routeBreakpointID(cmd, head, arg string) Route {
	if arg == "" {
		return Route{Matched: true, ParseError: fmt.Sprintf("Error: %s requires a breakpoint id", head)}
	}
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return Route{Matched: true, ParseError: fmt.Sprintf("Error: invalid breakpoint id %q for %s", arg, head)}
	}
	return Route{Matched: true, Text: fmt.Sprintf("%s %d", head, id)}
}

func routeAttach(cmd, arg string) Route {
	if arg == "" {
		return Route{Matched: true, ParseError: "Error: .attach requires a hex pid"}
	}
	pid, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(arg), "0x"), 16, 32)
	if err != nil {
		return Route{Matched: true, ParseError: fmt.Sprintf("Error: invalid hex pid %q for .attach", arg)}
	}
	return Route{Matched: true, Text: fmt.Sprintf(".attach 0x%x", pid)}
}

func looksHex(s string) bool {
	s = strings.ToLower(s)
	if strings.HasPrefix(s, "0x") {
		return true
	}
	if len(s) == 0 {
		return false
	}
	c := s[0]
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

const defaultMemoryDisplayBytes = 0x100

func routeMemoryDisplay(cmd, head, arg string) Route {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return Route{Matched: true, ParseError: fmt.Sprintf("Error: %s requires a hex address", head)}
	}
	addrStr := fields[0]
	addr, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(addrStr), "0x"), 16, 64)
	if err != nil {
		return Route{Matched: true, ParseError: fmt.Sprintf("Error: invalid hex address %q for %s", addrStr, head)}
	}

	count := uint64(defaultMemoryDisplayBytes)
	if len(fields) > 1 {
		countSpec := fields[1]
		if !strings.HasPrefix(strings.ToLower(countSpec), "l") {
			return Route{Matched: true, ParseError: fmt.Sprintf("Error: invalid count spec %q for %s, expected Lxx", countSpec, head)}
		}
		c, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(countSpec), "l"), 16, 64)
		if err != nil {
			return Route{Matched: true, ParseError: fmt.Sprintf("Error: invalid count %q for %s", countSpec, head)}
		}
		count = c
	}

	switch head {
	case "dw":
		count *= 2
	case "dq":
		count *= 8
	}

	return Route{Matched: true, Text: fmt.Sprintf("%s 0x%x L0x%x", head, addr, count)}
}

// CompositeSteps are the four sub-commands the deadlock-analysis
// composite runs in order, with their labeled sections.
var CompositeSteps = []struct {
	Label   string
	Command string
}{
	{"Thread List", "~"},
	{"All Thread Stacks", "~*k"},
	{"Locks", "!locks"},
	{"Critical Sections", "!cs -l"},
}
