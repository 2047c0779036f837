// Package intent implements the transaction engine: the state machine that
// turns a declarative Intent (preconditions, a change spec, and invariant
// policy) into a VCS commit or a well-typed non-success result, never
// leaving the repository in a half-mutated state. It is the component
// everything else in this module exists to support.
package intent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentjj/jjx/internal/changestore"
	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/extproc"
	"github.com/agentjj/jjx/internal/manifest"
	"github.com/agentjj/jjx/internal/repo"
	"github.com/agentjj/jjx/internal/taxonomy"
	"github.com/agentjj/jjx/internal/vcsdriver"
)

// PreconditionKind discriminates the declarative gates an Intent may carry.
type PreconditionKind string

const (
	PreconditionOperationID PreconditionKind = "operation_id"
	PreconditionBranchAt    PreconditionKind = "branch_at"
	PreconditionFileExists  PreconditionKind = "file_exists"
	PreconditionFileAbsent  PreconditionKind = "file_absent"
	PreconditionFileHash    PreconditionKind = "file_hash"
)

// Precondition is one declarative gate evaluated before any VCS mutation.
// Fields unused by a given Kind are left zero.
type Precondition struct {
	Kind PreconditionKind `json:"kind"`

	OperationID string `json:"operation_id,omitempty"` // OperationID

	Branch   string `json:"branch,omitempty"`    // BranchAt
	ChangeID string `json:"change_id,omitempty"` // BranchAt: the branch's expected change id

	Path string `json:"path,omitempty"` // FileExists, FileAbsent, FileHash

	SHA256 string `json:"sha256,omitempty"` // FileHash: expected hash, case-insensitive hex
}

// FileOpKind discriminates the direct filesystem operations a Files change
// spec may contain.
type FileOpKind string

const (
	FileOpCreate  FileOpKind = "create"
	FileOpReplace FileOpKind = "replace"
	FileOpDelete  FileOpKind = "delete"
	FileOpRename  FileOpKind = "rename"
)

// FileOperation is one entry in a Files change spec.
type FileOperation struct {
	Kind FileOpKind `json:"kind"`

	Path    string `json:"path,omitempty"`    // Create, Replace, Delete
	Content string `json:"content,omitempty"` // Create, Replace

	From string `json:"from,omitempty"` // Rename
	To   string `json:"to,omitempty"`   // Rename
}

// evaluatedPath returns the path permission checks and file listings should
// attribute this operation to: "from -> to" for a rename, the bare path
// otherwise. This matches the originating implementation's rename handling
// exactly — it does not evaluate both rename endpoints separately.
func (op FileOperation) evaluatedPath() string {
	if op.Kind == FileOpRename {
		return op.From + " -> " + op.To
	}
	return op.Path
}

// ChangeSpecKind discriminates how an Intent's payload is applied.
type ChangeSpecKind string

const (
	ChangeSpecPatch     ChangeSpecKind = "patch"
	ChangeSpecPatchFile ChangeSpecKind = "patch_file"
	ChangeSpecFiles     ChangeSpecKind = "files"
)

// ChangeSpec is the payload an Intent applies to the working copy.
type ChangeSpec struct {
	Kind ChangeSpecKind `json:"kind"`

	Content string `json:"content,omitempty"` // Patch: unified diff text

	Path string `json:"path,omitempty"` // PatchFile: path to a file holding unified diff text

	Operations []FileOperation `json:"operations,omitempty"` // Files
}

// Intent is a single declarative unit of work for the engine to attempt.
type Intent struct {
	Description   string         `json:"description"`
	Preconditions []Precondition `json:"preconditions,omitempty"`
	Changes       ChangeSpec     `json:"changes"`
	RunInvariants bool           `json:"run_invariants"`

	Type     taxonomy.ChangeType      `json:"type"`
	Category *taxonomy.ChangeCategory `json:"category,omitempty"`
	Breaking bool                     `json:"breaking"`
	Metadata map[string]string        `json:"metadata,omitempty"`
}

// ResultKind discriminates the outcome of Apply.
type ResultKind string

const (
	ResultSuccess            ResultKind = "success"
	ResultPreconditionFailed ResultKind = "precondition_failed"
	ResultPermissionDenied   ResultKind = "permission_denied"
	ResultConflict           ResultKind = "conflict"
	ResultRequiresReview     ResultKind = "requires_review"
	ResultInvariantFailed    ResultKind = "invariant_failed"
)

// Result is the single tagged outcome type Apply returns. A non-nil error
// return from Apply means something failed below the gate level — a driver,
// filesystem, or shell-exec failure mid-transaction — not a logical
// non-success, which is always a Result instead.
type Result struct {
	Kind ResultKind `json:"kind"`

	// Success, Conflict, RequiresReview, InvariantFailed
	ChangeID    string `json:"change_id,omitempty"`
	OperationID string `json:"operation_id,omitempty"`

	// Success
	FilesChanged []string                      `json:"files_changed,omitempty"`
	Invariants   changestore.InvariantsResult  `json:"invariants,omitempty"`
	PRUrl        *string                       `json:"pr_url,omitempty"`

	// PreconditionFailed
	Reason   string `json:"reason,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`

	// PermissionDenied
	Action string `json:"action,omitempty"`
	Path   string `json:"path,omitempty"`

	// Conflict
	FileCount int                  `json:"file_count,omitempty"`
	Conflicts []errs.ConflictDetail `json:"conflicts,omitempty"`

	// Conflict, InvariantFailed: the command a caller can run via the
	// driver's RestoreToOperation to undo this attempt.
	RollbackCommand string `json:"rollback_command,omitempty"`

	// InvariantFailed
	InvariantName    string `json:"invariant_name,omitempty"`
	InvariantCommand string `json:"invariant_command,omitempty"`
	ExitCode         int    `json:"exit_code,omitempty"`
	Stdout           string `json:"stdout,omitempty"`
	Stderr           string `json:"stderr,omitempty"`

	// RequiresReview
	ReviewPaths []string `json:"review_paths,omitempty"`
}

// Engine runs Intents against a single repository handle.
type Engine struct {
	repo   *repo.Repo
	logger *slog.Logger
	shell  *extproc.Shell
	patch  *extproc.Patch
}

// New returns an Engine operating on r.
func New(r *repo.Repo, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{repo: r, logger: logger, shell: extproc.NewShell(logger), patch: extproc.NewPatch(logger)}
}

const tempPatchPath = ".agent/temp.patch"

// Apply runs the full state machine: preconditions, permissions, staging,
// materialize, validate, finalize. See the package's originating design for
// the exact gate ordering — it is load-bearing and must not be reordered.
func (e *Engine) Apply(ctx context.Context, in Intent) (*Result, error) {
	if res, err := e.checkPreconditions(in); res != nil || err != nil {
		return res, err
	}

	if e.repo.HasManifest() {
		if res, err := e.checkPermissions(in); res != nil || err != nil {
			return res, err
		}
	}

	rollbackOpID, err := e.repo.CurrentOperationID()
	if err != nil {
		return nil, err
	}

	changeID, _, err := e.repo.Driver().NewCommit(nil, "", in.Description)
	if err != nil {
		return nil, err
	}

	filesChanged, err := e.applyChangeSpec(ctx, in.Changes)
	if err != nil {
		_ = e.repo.Driver().RestoreToOperation(rollbackOpID)
		return nil, err
	}

	rollbackCommand := fmt.Sprintf("jj op restore %s", rollbackOpID)

	hasConflicts, err := e.repo.Driver().HasConflicts(changeID)
	if err != nil {
		return nil, err
	}
	if hasConflicts {
		conflicts, err := e.repo.Driver().GetConflicts(changeID)
		if err != nil {
			return nil, err
		}
		opID, err := e.repo.CurrentOperationID()
		if err != nil {
			return nil, err
		}
		return &Result{
			Kind:            ResultConflict,
			ChangeID:        changeID,
			OperationID:     opID,
			FileCount:       len(conflicts),
			Conflicts:       conflicts,
			RollbackCommand: rollbackCommand,
		}, nil
	}

	if e.repo.HasManifest() {
		reviewPaths, err := e.reviewPathsAmong(filesChanged)
		if err != nil {
			return nil, err
		}
		if len(reviewPaths) > 0 {
			return &Result{Kind: ResultRequiresReview, ChangeID: changeID, ReviewPaths: reviewPaths}, nil
		}
	}

	invariants := changestore.InvariantsResult{Status: taxonomy.InvariantStatusSkipped}
	if in.RunInvariants && e.repo.HasManifest() {
		m, err := e.repo.Manifest()
		if err != nil {
			return nil, err
		}
		result, failure, err := e.runInvariants(ctx, m)
		if err != nil {
			return nil, err
		}
		if failure != nil {
			opID, err := e.repo.CurrentOperationID()
			if err != nil {
				return nil, err
			}
			return &Result{
				Kind:             ResultInvariantFailed,
				ChangeID:         changeID,
				OperationID:      opID,
				RollbackCommand:  rollbackCommand,
				InvariantName:    failure.Name,
				InvariantCommand: failure.Command,
				ExitCode:         failure.ExitCode,
				Stdout:           failure.Stdout,
				Stderr:           failure.Stderr,
			}, nil
		}
		invariants = result
	}

	if err := e.finalize(changeID, in, filesChanged, invariants); err != nil {
		return nil, err
	}

	opID, err := e.repo.CurrentOperationID()
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:         ResultSuccess,
		ChangeID:     changeID,
		OperationID:  opID,
		FilesChanged: filesChanged,
		Invariants:   invariants,
	}, nil
}

// checkPreconditions evaluates in.Preconditions in order, stopping at the
// first failure. A non-nil *Result here is always ResultPreconditionFailed;
// a non-nil error means a driver/filesystem call itself failed, which is
// distinct from a declarative gate failing its check.
func (e *Engine) checkPreconditions(in Intent) (*Result, error) {
	for _, p := range in.Preconditions {
		switch p.Kind {
		case PreconditionOperationID:
			cur, err := e.repo.CurrentOperationID()
			if err != nil {
				return nil, err
			}
			if cur != p.OperationID {
				return preconditionFailed("operation id mismatch", p.OperationID, cur), nil
			}

		case PreconditionBranchAt:
			changeID, ok, err := e.repo.BranchChangeID(p.Branch)
			if err != nil {
				return nil, err
			}
			if !ok {
				return preconditionFailed("branch not found: "+p.Branch, p.ChangeID, ""), nil
			}
			if changeID != p.ChangeID {
				return preconditionFailed("branch is at an unexpected change", p.ChangeID, changeID), nil
			}

		case PreconditionFileExists:
			if _, err := e.repo.ReadFile(p.Path, ""); err != nil {
				if errs.Of(err, errs.KindNotFound) {
					return preconditionFailed(fmt.Sprintf("file not found: %s", p.Path), "exists", "not found"), nil
				}
				return nil, err
			}

		case PreconditionFileAbsent:
			if _, err := e.repo.ReadFile(p.Path, ""); err == nil {
				return preconditionFailed(fmt.Sprintf("file exists: %s", p.Path), "absent", "present"), nil
			} else if !errs.Of(err, errs.KindNotFound) {
				return nil, err
			}

		case PreconditionFileHash:
			data, err := e.repo.ReadFile(p.Path, "")
			if err != nil {
				if errs.Of(err, errs.KindNotFound) {
					return preconditionFailed(fmt.Sprintf("file not found: %s", p.Path), p.SHA256, ""), nil
				}
				return nil, err
			}
			sum := sha256.Sum256(data)
			actual := hex.EncodeToString(sum[:])
			if !strings.EqualFold(actual, p.SHA256) {
				return preconditionFailed("hash mismatch", strings.ToLower(p.SHA256), actual), nil
			}
		}
	}
	return nil, nil
}

func preconditionFailed(reason, expected, actual string) *Result {
	return &Result{Kind: ResultPreconditionFailed, Reason: reason, Expected: expected, Actual: actual}
}

// checkPermissions evaluates a Files change spec against the manifest's
// allow/deny lists. Patch and PatchFile specs can't enumerate their targets
// without applying them, so they skip this gate entirely.
func (e *Engine) checkPermissions(in Intent) (*Result, error) {
	if in.Changes.Kind != ChangeSpecFiles {
		return nil, nil
	}
	m, err := e.repo.Manifest()
	if err != nil {
		return nil, err
	}
	for _, op := range in.Changes.Operations {
		path := op.evaluatedPath()
		if !m.Permissions.CanChange(path) {
			return &Result{Kind: ResultPermissionDenied, Action: "change", Path: path}, nil
		}
	}
	return nil, nil
}

// applyChangeSpec materializes the change spec onto the working copy and
// returns the paths it touched.
func (e *Engine) applyChangeSpec(ctx context.Context, spec ChangeSpec) ([]string, error) {
	switch spec.Kind {
	case ChangeSpecPatch:
		return e.applyPatch(ctx, spec.Content)

	case ChangeSpecPatchFile:
		content, err := os.ReadFile(filepath.Join(e.repo.Root(), spec.Path))
		if err != nil {
			return nil, errs.IO(err)
		}
		return e.applyPatch(ctx, string(content))

	case ChangeSpecFiles:
		return e.applyFileOperations(spec.Operations)

	default:
		return nil, errs.Repository("unknown change spec kind %q", spec.Kind)
	}
}

func (e *Engine) applyPatch(ctx context.Context, content string) ([]string, error) {
	path := filepath.Join(e.repo.Root(), tempPatchPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.IO(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, errs.IO(err)
	}
	defer os.Remove(path)

	if err := e.patch.Apply(ctx, e.repo.Root(), tempPatchPath); err != nil {
		return nil, err
	}

	snapshot, err := e.repo.Driver().SnapshotWorkingCopy(vcsdriver.Ignores{})
	if err != nil {
		return nil, err
	}
	return snapshot.ChangedPaths, nil
}

func (e *Engine) applyFileOperations(ops []FileOperation) ([]string, error) {
	var touched []string
	for _, op := range ops {
		switch op.Kind {
		case FileOpCreate, FileOpReplace:
			full := filepath.Join(e.repo.Root(), op.Path)
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return nil, errs.IO(err)
			}
			if err := os.WriteFile(full, []byte(op.Content), 0o644); err != nil {
				return nil, errs.IO(err)
			}
			touched = append(touched, op.Path)

		case FileOpDelete:
			full := filepath.Join(e.repo.Root(), op.Path)
			if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
				return nil, errs.IO(err)
			}
			touched = append(touched, op.Path)

		case FileOpRename:
			fromFull := filepath.Join(e.repo.Root(), op.From)
			toFull := filepath.Join(e.repo.Root(), op.To)
			if err := os.MkdirAll(filepath.Dir(toFull), 0o755); err != nil {
				return nil, errs.IO(err)
			}
			if err := os.Rename(fromFull, toFull); err != nil {
				return nil, errs.IO(err)
			}
			touched = append(touched, op.From, op.To)
		}
	}

	if _, err := e.repo.Driver().SnapshotWorkingCopy(vcsdriver.Ignores{}); err != nil {
		return nil, err
	}
	return touched, nil
}

// reviewPathsAmong returns the subset of paths that match the manifest's
// human-review globs.
func (e *Engine) reviewPathsAmong(paths []string) ([]string, error) {
	m, err := e.repo.Manifest()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range paths {
		if m.RequiresHumanReview(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// invariantFailure captures the first failing invariant's detail, stopping
// the run — invariants after the first failure never execute.
type invariantFailure struct {
	Name, Command  string
	ExitCode       int
	Stdout, Stderr string
}

// runInvariants runs every pre-commit invariant in manifest order, stopping
// at the first non-zero exit. On a clean run it returns an aggregate status
// of Passed if every invariant ran and passed, or Skipped if there were none
// to run.
func (e *Engine) runInvariants(ctx context.Context, m *manifest.Manifest) (changestore.InvariantsResult, *invariantFailure, error) {
	entries := m.InvariantsFor(taxonomy.TriggerPreCommit)
	if len(entries) == 0 {
		return changestore.InvariantsResult{Status: taxonomy.InvariantStatusSkipped}, nil, nil
	}

	result := changestore.InvariantsResult{
		Details: make(map[string]taxonomy.InvariantStatus, len(entries)),
	}
	for _, entry := range entries {
		res, err := e.shell.Run(ctx, e.repo.Root(), entry.Invariant.Command())
		if err != nil {
			return changestore.InvariantsResult{}, nil, err
		}
		result.Checked = append(result.Checked, entry.Name)
		if res.ExitCode != 0 {
			result.Details[entry.Name] = taxonomy.InvariantStatusFailed
			result.Status = taxonomy.InvariantStatusFailed
			return result, &invariantFailure{
				Name:    entry.Name,
				Command: entry.Invariant.Command(),
				ExitCode: res.ExitCode,
				Stdout:  res.Stdout,
				Stderr:  res.Stderr,
			}, nil
		}
		result.Details[entry.Name] = taxonomy.InvariantStatusPassed
	}
	result.Status = taxonomy.InvariantStatusPassed
	return result, nil, nil
}

func (e *Engine) finalize(changeID string, in Intent, filesChanged []string, invariants changestore.InvariantsResult) error {
	c := changestore.New(changeID, in.Type, in.Description)
	c.Category = in.Category
	c.Files = filesChanged
	c.Breaking = in.Breaking
	c.Invariants = invariants
	c.Metadata = in.Metadata
	return changestore.Open(e.repo.Root()).Save(c)
}
