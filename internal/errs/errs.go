// Package errs carries the intent engine's tagged error taxonomy: a single
// Error type discriminated by Kind, serializable as a self-describing record
// for --json mode and matchable with errors.Is for callers that only care
// about the kind.
package errs

import (
	"errors"
	"fmt"
)

// Kind discriminates the taxonomy. Values are stable and appear verbatim in
// JSON output, so they're not renamed once shipped.
type Kind string

const (
	KindManifestNotFound   Kind = "manifest_not_found"
	KindManifestParse      Kind = "manifest_parse"
	KindPreconditionFailed Kind = "precondition_failed"
	KindConflict           Kind = "conflict"
	KindInvariantFailed    Kind = "invariant_failed"
	KindPermissionDenied   Kind = "permission_denied"
	KindChangeNotFound     Kind = "change_not_found"
	KindRepository         Kind = "repository"
	KindIO                 Kind = "io"
	KindNoRepository       Kind = "no_repository"
	KindNotFound           Kind = "not_found"
	KindPathNotFound       Kind = "path_not_found"
	KindNoChangesInPaths   Kind = "no_changes_in_paths"
)

// ConflictDetail describes one conflicted file after a post-apply tree scan.
// Base is nil when the conflict has no common ancestor (e.g. add/add).
type ConflictDetail struct {
	File   string  `json:"file"`
	Ours   string  `json:"ours"`
	Theirs string  `json:"theirs"`
	Base   *string `json:"base,omitempty"`
}

// Error is the single tagged type behind every error this module returns
// across a package boundary. Fields unused by a given Kind are omitted from
// JSON output.
type Error struct {
	Kind Kind `json:"type"`

	// ManifestNotFound
	Path string `json:"path,omitempty"`

	// ManifestParse
	Message string `json:"message,omitempty"`
	Line    *int   `json:"line,omitempty"`

	// PreconditionFailed
	Reason   string `json:"reason,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`

	// Conflict
	FileCount   int              `json:"file_count,omitempty"`
	Conflicts   []ConflictDetail `json:"conflicts,omitempty"`
	OperationID string           `json:"operation_id,omitempty"`

	// InvariantFailed
	Name     string `json:"name,omitempty"`
	Command  string `json:"command,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`

	// PermissionDenied
	Action string `json:"action,omitempty"`

	// ChangeNotFound
	ChangeID string `json:"change_id,omitempty"`

	// NotFound, PathNotFound
	Revision string `json:"revision,omitempty"`
}

// Error satisfies the error interface with a one-line human summary; detail
// fields are available to callers that want a longer rendering (see
// internal/output).
func (e *Error) Error() string {
	switch e.Kind {
	case KindManifestNotFound:
		return fmt.Sprintf("manifest not found at %s", e.Path)
	case KindManifestParse:
		if e.Line != nil {
			return fmt.Sprintf("manifest parse error at line %d: %s", *e.Line, e.Message)
		}
		return fmt.Sprintf("manifest parse error: %s", e.Message)
	case KindPreconditionFailed:
		return fmt.Sprintf("precondition failed: %s", e.Reason)
	case KindConflict:
		return fmt.Sprintf("conflict in %d files", e.FileCount)
	case KindInvariantFailed:
		return fmt.Sprintf("invariant %q failed (command: `%s`, exit code: %d)", e.Name, e.Command, e.ExitCode)
	case KindPermissionDenied:
		return fmt.Sprintf("permission denied: %s on %s", e.Action, e.Path)
	case KindChangeNotFound:
		return fmt.Sprintf("change %s not found", e.ChangeID)
	case KindRepository:
		return fmt.Sprintf("repository error: %s", e.Message)
	case KindIO:
		return fmt.Sprintf("io error: %s", e.Message)
	case KindNoRepository:
		return fmt.Sprintf("not a jj repository (or any parent): %s", e.Path)
	case KindNotFound:
		if e.Revision != "" {
			return fmt.Sprintf("%s not found at revision %s", e.Path, e.Revision)
		}
		return fmt.Sprintf("%s not found", e.Path)
	case KindPathNotFound:
		return fmt.Sprintf("path %q does not exist in the snapshot", e.Path)
	case KindNoChangesInPaths:
		return "no changes in the requested paths"
	default:
		return fmt.Sprintf("unknown error (%s): %s", e.Kind, e.Message)
	}
}

// Is lets errors.Is(err, errs.ManifestNotFound("")) match on Kind alone,
// ignoring the detail fields of the target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Of reports whether err is an *Error of the given kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// ManifestNotFound builds the ManifestNotFound variant.
func ManifestNotFound(path string) *Error {
	return &Error{Kind: KindManifestNotFound, Path: path}
}

// ManifestParse builds the ManifestParse variant. line is nil when the
// parser couldn't attribute the failure to a specific line.
func ManifestParse(message string, line *int) *Error {
	return &Error{Kind: KindManifestParse, Message: message, Line: line}
}

// PreconditionFailed builds the PreconditionFailed variant.
func PreconditionFailed(reason, expected, actual string) *Error {
	return &Error{Kind: KindPreconditionFailed, Reason: reason, Expected: expected, Actual: actual}
}

// Conflict builds the Conflict variant.
func Conflict(fileCount int, details []ConflictDetail, operationID string) *Error {
	return &Error{Kind: KindConflict, FileCount: fileCount, Conflicts: details, OperationID: operationID}
}

// InvariantFailed builds the InvariantFailed variant.
func InvariantFailed(name, command string, exitCode int, stdout, stderr string) *Error {
	return &Error{Kind: KindInvariantFailed, Name: name, Command: command, ExitCode: exitCode, Stdout: stdout, Stderr: stderr}
}

// PermissionDenied builds the PermissionDenied variant.
func PermissionDenied(action, path string) *Error {
	return &Error{Kind: KindPermissionDenied, Action: action, Path: path}
}

// ChangeNotFound builds the ChangeNotFound variant.
func ChangeNotFound(changeID string) *Error {
	return &Error{Kind: KindChangeNotFound, ChangeID: changeID}
}

// Repository builds the Repository catch-all variant, for driver failures
// that don't fit a more specific kind.
func Repository(format string, args ...interface{}) *Error {
	return &Error{Kind: KindRepository, Message: fmt.Sprintf(format, args...)}
}

// NoRepository builds the NoRepository variant returned by discover() when no
// VCS root is found in dir or any ancestor.
func NoRepository(dir string) *Error {
	return &Error{Kind: KindNoRepository, Path: dir}
}

// NotFound builds the NotFound variant, e.g. read_tree_file against a path
// absent from the given revision.
func NotFound(path, revision string) *Error {
	return &Error{Kind: KindNotFound, Path: path, Revision: revision}
}

// PathNotFound builds the PathNotFound variant returned by commit_working_copy
// when a requested path-filter entry is absent from the snapshot tree.
func PathNotFound(path string) *Error {
	return &Error{Kind: KindPathNotFound, Path: path}
}

// NoChangesInPaths builds the NoChangesInPaths variant returned by
// commit_working_copy when none of the requested paths changed.
func NoChangesInPaths() *Error {
	return &Error{Kind: KindNoChangesInPaths}
}

// IO builds the Io variant, typically by wrapping an *os.PathError or
// similar filesystem failure.
func IO(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindIO, Message: err.Error()}
}
