// Package output formats results for cmd/vibedbgctl (component O), following
// the teacher's output.go Printer: one struct handling table/json/yaml
// rendering, selected once from the --format flag.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format represents output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatTable
	}
}

// Printer handles formatted output
type Printer struct {
	format  Format
	writer  io.Writer
	noColor bool
}

// NewPrinter creates a new printer
func NewPrinter(format Format) *Printer {
	return &Printer{
		format:  format,
		writer:  os.Stdout,
		noColor: os.Getenv("NO_COLOR") != "",
	}
}

// SetWriter sets the output writer
func (p *Printer) SetWriter(w io.Writer) {
	p.writer = w
}

// Print outputs data as YAML in YAML mode and as JSON otherwise; table
// mode has no generic rendering and falls back to JSON.
func (p *Printer) Print(data interface{}) error {
	switch p.format {
	case FormatJSON:
		return p.printJSON(data)
	case FormatYAML:
		return p.printYAML(data)
	default:
		return p.printJSON(data)
	}
}

func (p *Printer) printJSON(data interface{}) error {
	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (p *Printer) printYAML(data interface{}) error {
	enc := yaml.NewEncoder(p.writer)
	enc.SetIndent(2)
	return enc.Encode(data)
}

// Color codes
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m"
)

// Colorize adds color to text
func (p *Printer) Colorize(color, text string) string {
	if p.noColor {
		return text
	}
	return color + text + Reset
}

// TableWriter creates a tabwriter for aligned output
func (p *Printer) TableWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
}

// CommandResultView is the CLI-facing view of engine.CommandResult, returned
// by `vibedbgctl execute`.
type CommandResultView struct {
	RequestID       string `json:"request_id" yaml:"request_id"`
	Success         bool   `json:"success" yaml:"success"`
	Output          string `json:"output,omitempty" yaml:"output,omitempty"`
	ErrorMessage    string `json:"error,omitempty" yaml:"error,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms" yaml:"execution_time_ms"`
}

// PrintCommandResult prints the result of a single executed command.
func (p *Printer) PrintCommandResult(r CommandResultView) error {
	if p.format == FormatJSON || p.format == FormatYAML {
		return p.Print(r)
	}

	fmt.Fprintf(p.writer, "%s %s\n", p.Colorize(Bold, "Request ID:"), r.RequestID)
	fmt.Fprintf(p.writer, "%s %d ms\n", p.Colorize(Bold, "Duration:"), r.ExecutionTimeMs)

	if !r.Success {
		fmt.Fprintf(p.writer, "%s %s\n", p.Colorize(Bold, "Error:"), p.Colorize(Red, r.ErrorMessage))
		return nil
	}
	fmt.Fprintf(p.writer, "%s\n%s\n", p.Colorize(Bold, "Output:"), r.Output)
	return nil
}

// SessionView is the CLI-facing view of session.State, returned by
// `vibedbgctl status`.
type SessionView struct {
	Connected         bool              `json:"connected" yaml:"connected"`
	TargetRunning     bool              `json:"target_running" yaml:"target_running"`
	CurrentProcess    string            `json:"current_process,omitempty" yaml:"current_process,omitempty"`
	CurrentThread     uint32            `json:"current_thread,omitempty" yaml:"current_thread,omitempty"`
	SuggestedCommands []string          `json:"suggested_commands" yaml:"suggested_commands"`
	Metadata          map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// PrintSession prints a session snapshot.
func (p *Printer) PrintSession(s SessionView) error {
	if p.format == FormatJSON || p.format == FormatYAML {
		return p.Print(s)
	}

	w := p.TableWriter()
	fmt.Fprintf(w, "%s\t%v\n", p.Colorize(Bold, "Connected:"), s.Connected)
	fmt.Fprintf(w, "%s\t%v\n", p.Colorize(Bold, "Target running:"), s.TargetRunning)
	if s.CurrentProcess != "" {
		fmt.Fprintf(w, "%s\t%s\n", p.Colorize(Bold, "Process:"), s.CurrentProcess)
	}
	if s.CurrentThread != 0 {
		fmt.Fprintf(w, "%s\t%d\n", p.Colorize(Bold, "Thread:"), s.CurrentThread)
	}
	fmt.Fprintf(w, "%s\t%s\n", p.Colorize(Bold, "Suggested:"), strings.Join(s.SuggestedCommands, ", "))
	return w.Flush()
}

// CommandLogView is the CLI-facing view of one logging.CommandLog entry.
type CommandLogView struct {
	Timestamp     string `json:"timestamp" yaml:"timestamp"`
	RequestID     string `json:"request_id" yaml:"request_id"`
	CommandPrefix string `json:"command_prefix" yaml:"command_prefix"`
	Success       bool   `json:"success" yaml:"success"`
	DurationMs    int64  `json:"duration_ms" yaml:"duration_ms"`
}

// PrintCommandLog prints a single command-log entry.
func (p *Printer) PrintCommandLog(entry CommandLogView) error {
	if p.format == FormatJSON {
		return p.printJSON(entry)
	}

	status := p.Colorize(Green, "ok")
	if !entry.Success {
		status = p.Colorize(Red, "fail")
	}
	fmt.Fprintf(p.writer, "%s %s %-12s %s (%dms)\n",
		p.Colorize(Gray, entry.Timestamp),
		p.Colorize(Cyan, "["+entry.RequestID+"]"),
		entry.CommandPrefix,
		status,
		entry.DurationMs,
	)
	return nil
}

// Success prints a success message
func (p *Printer) Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(p.writer, p.Colorize(Green, "✓ ")+msg)
}

// Error prints an error message
func (p *Printer) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(p.writer, p.Colorize(Red, "✗ ")+msg)
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(p.writer, p.Colorize(Yellow, "⚠ ")+msg)
}

// Info prints an info message
func (p *Printer) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(p.writer, p.Colorize(Blue, "ℹ ")+msg)
}
