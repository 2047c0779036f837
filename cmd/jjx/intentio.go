package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/agentjj/jjx/internal/intent"
	"github.com/agentjj/jjx/internal/output"
)

// loadIntent reads an Intent as JSON from path, or from stdin when path is
// "-" or empty.
func loadIntent(path string) (intent.Intent, error) {
	var r io.Reader
	if path == "" || path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return intent.Intent{}, err
		}
		defer f.Close()
		r = f
	}

	var in intent.Intent
	dec := json.NewDecoder(r)
	if err := dec.Decode(&in); err != nil {
		return intent.Intent{}, fmt.Errorf("parse intent: %w", err)
	}
	return in, nil
}

// resultExitCode maps an intent.Result's Kind to the process exit code
// spec.md §6 requires: 0 only for a logical Success, 1 for everything else.
func resultExitCode(res *intent.Result) int {
	if res.Kind == intent.ResultSuccess {
		return 0
	}
	return 1
}

// printResultHuman renders a Result as a short human summary, mirroring the
// detail fields each Kind actually carries.
func printResultHuman(w io.Writer, res *intent.Result) {
	switch res.Kind {
	case intent.ResultSuccess:
		fmt.Fprintf(w, "success: change %s (operation %s)\n", res.ChangeID, res.OperationID)
		for _, f := range res.FilesChanged {
			fmt.Fprintf(w, "  %s\n", f)
		}
		if res.Invariants.Status != "" {
			fmt.Fprintf(w, "invariants: %s\n", res.Invariants.Status)
		}
		if res.PRUrl != nil {
			fmt.Fprintf(w, "pr: %s\n", *res.PRUrl)
		}
	case intent.ResultPreconditionFailed:
		fmt.Fprintf(w, "precondition failed: %s (expected %q, got %q)\n", res.Reason, res.Expected, res.Actual)
	case intent.ResultPermissionDenied:
		fmt.Fprintf(w, "permission denied: %s on %s\n", res.Action, res.Path)
	case intent.ResultConflict:
		fmt.Fprintf(w, "conflict: change %s, %d file(s) conflicted\n", res.ChangeID, res.FileCount)
		for _, c := range res.Conflicts {
			fmt.Fprintf(w, "  %s\n", c.File)
		}
		fmt.Fprintf(w, "rollback: %s\n", res.RollbackCommand)
	case intent.ResultInvariantFailed:
		fmt.Fprintf(w, "invariant %q failed (exit %d): %s\n", res.InvariantName, res.ExitCode, res.InvariantCommand)
		if res.Stderr != "" {
			fmt.Fprintln(w, res.Stderr)
		}
		fmt.Fprintf(w, "rollback: %s\n", res.RollbackCommand)
	case intent.ResultRequiresReview:
		fmt.Fprintf(w, "requires review: change %s\n", res.ChangeID)
		for _, p := range res.ReviewPaths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	default:
		fmt.Fprintf(w, "unknown result kind %q\n", res.Kind)
	}
}

// emitResult renders res through out and returns the process exit code.
func emitResult(out *output.Writer, res *intent.Result) int {
	_ = out.Emit(res, func(w io.Writer) error {
		printResultHuman(w, res)
		return nil
	})
	return resultExitCode(res)
}
