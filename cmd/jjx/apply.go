package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentjj/jjx/internal/intent"
)

var applyIntentFile string
var applyDryRun bool

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Run an intent through the transaction engine",
	Long: `apply reads a declarative Intent as JSON (from --file, or stdin if
omitted) and runs it through the full precondition/permission/stage/validate
state machine, producing a structured Result.

--dry-run runs only the non-mutating gates (preconditions, permissions, and a
structural check of the change spec) and never creates a VCS change.`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringVarP(&applyIntentFile, "file", "f", "", "path to an Intent JSON file (default: stdin)")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "validate gates without mutating the repository")
}

func runApply(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	in, err := loadIntent(applyIntentFile)
	if err != nil {
		return err
	}

	if applyDryRun {
		res := dryRunApply(a, in)
		setExitCode(emitResult(a.out, res))
		return nil
	}

	res, err := a.engine.Apply(a.ctx, in)
	if err != nil {
		setExitCode(a.out.EmitError(err))
		return nil
	}
	setExitCode(emitResult(a.out, res))
	return nil
}

// dryRunApply exercises the non-mutating gates directly rather than calling
// Engine.Apply, since Apply always creates a VCS change before it can detect
// conflicts or invariant failures. It validates preconditions, permissions,
// and (for a files change spec) that replace/delete/rename targets exist.
func dryRunApply(a *app, in intent.Intent) *intent.Result {
	if res := dryRunPreconditions(a, in); res != nil {
		return res
	}
	if a.repo.HasManifest() {
		if res := dryRunPermissions(a, in); res != nil {
			return res
		}
	}
	if res := dryRunChangeSpec(a, in); res != nil {
		return res
	}
	return &intent.Result{Kind: intent.ResultSuccess}
}

func dryRunPreconditions(a *app, in intent.Intent) *intent.Result {
	for _, p := range in.Preconditions {
		switch p.Kind {
		case intent.PreconditionOperationID:
			cur, err := a.repo.CurrentOperationID()
			if err != nil || cur != p.OperationID {
				return &intent.Result{Kind: intent.ResultPreconditionFailed, Reason: "operation id mismatch", Expected: p.OperationID, Actual: cur}
			}
		case intent.PreconditionBranchAt:
			changeID, ok, err := a.repo.BranchChangeID(p.Branch)
			if err != nil || !ok || changeID != p.ChangeID {
				return &intent.Result{Kind: intent.ResultPreconditionFailed, Reason: "branch mismatch or missing: " + p.Branch, Expected: p.ChangeID, Actual: changeID}
			}
		case intent.PreconditionFileExists:
			if _, err := a.repo.ReadFile(p.Path, ""); err != nil {
				return &intent.Result{Kind: intent.ResultPreconditionFailed, Reason: "file not found: " + p.Path, Expected: "exists", Actual: "not found"}
			}
		case intent.PreconditionFileAbsent:
			if _, err := a.repo.ReadFile(p.Path, ""); err == nil {
				return &intent.Result{Kind: intent.ResultPreconditionFailed, Reason: "file exists: " + p.Path, Expected: "absent", Actual: "present"}
			}
		case intent.PreconditionFileHash:
			data, err := a.repo.ReadFile(p.Path, "")
			if err != nil {
				return &intent.Result{Kind: intent.ResultPreconditionFailed, Reason: "file not found: " + p.Path, Expected: p.SHA256}
			}
			sum := sha256.Sum256(data)
			if actual := hex.EncodeToString(sum[:]); !strings.EqualFold(actual, p.SHA256) {
				return &intent.Result{Kind: intent.ResultPreconditionFailed, Reason: "hash mismatch", Expected: strings.ToLower(p.SHA256), Actual: actual}
			}
		}
	}
	return nil
}

func dryRunPermissions(a *app, in intent.Intent) *intent.Result {
	if in.Changes.Kind != intent.ChangeSpecFiles {
		return nil
	}
	m, err := a.repo.Manifest()
	if err != nil {
		return nil
	}
	for _, op := range in.Changes.Operations {
		path := op.Path
		if op.Kind == "rename" {
			path = op.From + " -> " + op.To
		}
		if !m.Permissions.CanChange(path) {
			return &intent.Result{Kind: intent.ResultPermissionDenied, Action: "change", Path: path}
		}
	}
	return nil
}

func dryRunChangeSpec(a *app, in intent.Intent) *intent.Result {
	switch in.Changes.Kind {
	case intent.ChangeSpecPatchFile:
		if _, err := os.Stat(filepath.Join(a.repo.Root(), in.Changes.Path)); err != nil {
			return &intent.Result{Kind: intent.ResultPreconditionFailed, Reason: "patch file not found: " + in.Changes.Path}
		}
	case intent.ChangeSpecFiles:
		for _, op := range in.Changes.Operations {
			switch op.Kind {
			case intent.FileOpReplace, intent.FileOpDelete:
				if _, err := os.Stat(filepath.Join(a.repo.Root(), op.Path)); err != nil {
					return &intent.Result{Kind: intent.ResultPreconditionFailed, Reason: fmt.Sprintf("%s target does not exist: %s", op.Kind, op.Path)}
				}
			case intent.FileOpRename:
				if _, err := os.Stat(filepath.Join(a.repo.Root(), op.From)); err != nil {
					return &intent.Result{Kind: intent.ResultPreconditionFailed, Reason: "rename source does not exist: " + op.From}
				}
			}
		}
	}
	return nil
}
