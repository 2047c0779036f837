// Package output renders command results either as human-readable text or
// as deterministic JSON, following the CLI's global --json flag contract:
// every command's result, success or failure, becomes a single JSON value
// on stdout when JSON mode is active, with errors shaped as
// {"error": true, "message": "..."}.
package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// Format selects how a Writer renders results.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, "":
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want %q or %q)", s, FormatTable, FormatJSON)
	}
}

// Writer renders a command's outcome to stdout in the active Format, or logs
// to stderr (human mode only).
type Writer struct {
	Format Format
	Out    io.Writer
	Err    io.Writer
}

// New creates a Writer for the given format and streams.
func New(format Format, out, errOut io.Writer) *Writer {
	return &Writer{Format: format, Out: out, Err: errOut}
}

// JSON reports whether this writer is in JSON mode.
func (w *Writer) JSON() bool {
	return w.Format == FormatJSON
}

// Emit renders data. In JSON mode it marshals data directly; in table mode
// it calls human, which is expected to write to w.Out itself (typically via
// a Table).
func (w *Writer) Emit(data interface{}, human func(io.Writer) error) error {
	if w.JSON() {
		enc := json.NewEncoder(w.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	return human(w.Out)
}

// errorEnvelope is the fixed JSON shape for a failed command.
type errorEnvelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// EmitError renders err in the active format and returns the process exit
// code the caller should use (spec.md §6: 0 for logical success, 1
// otherwise — an error is never a logical success).
func (w *Writer) EmitError(err error) int {
	if w.JSON() {
		enc := json.NewEncoder(w.Out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(errorEnvelope{Error: true, Message: err.Error()})
		return 1
	}
	fmt.Fprintf(w.Err, "error: %s\n", err.Error())
	return 1
}
