// Package repo implements the repository handle: the operations callers
// reach for beyond the raw vcsdriver.Driver surface — manifest lazy-loading,
// selective working-copy commits, colocated Git/HEAD synchronization, undo,
// and a path-aware file read that falls back to the working filesystem. It
// is the component the intent engine (internal/intent) and the CLI
// (cmd/jjx) both sit on top of.
package repo

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/extproc"
	"github.com/agentjj/jjx/internal/manifest"
	"github.com/agentjj/jjx/internal/taxonomy"
	"github.com/agentjj/jjx/internal/vcsdriver"
)

// pathScopedSnapshotter is an optional capability a Driver may implement to
// support commit_working_copy's --paths filter precisely; drivers that don't
// implement it fall back to a full snapshot filtered in Go (see
// snapshotForCommit).
type pathScopedSnapshotter interface {
	SnapshotWorkingCopyPaths(paths []string, ignores vcsdriver.Ignores) (vcsdriver.Snapshot, error)
}

// Repo is a handle on a single repository: its root directory, its VCS
// driver, and a lazily loaded, mutation-invalidated manifest cache.
type Repo struct {
	root   string
	driver vcsdriver.Driver
	git    *extproc.Git
	logger *slog.Logger

	manifest *manifest.Manifest // nil until first Manifest() call or after invalidation
}

// Open returns a handle rooted at root, with no discovery performed — the
// caller already knows root is a repository (e.g. from a prior Discover).
func Open(root string, driver vcsdriver.Driver, logger *slog.Logger) *Repo {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repo{root: root, driver: driver, git: extproc.NewGit(logger), logger: logger}
}

// Discover locates a repository at or above startingDir via driver.Discover
// (which also bootstraps colocated VCS state for a plain Git repo) and
// returns a handle rooted there.
func Discover(startingDir string, driver vcsdriver.Driver, logger *slog.Logger) (*Repo, error) {
	root, err := driver.Discover(startingDir)
	if err != nil {
		return nil, err
	}
	return Open(root, driver, logger), nil
}

// Root returns the repository's root directory.
func (r *Repo) Root() string { return r.root }

// Driver returns the underlying VCS driver, for callers that need the raw
// capability surface (e.g. the intent engine).
func (r *Repo) Driver() vcsdriver.Driver { return r.driver }

// HasManifest reports whether a manifest file exists, without parsing it.
func (r *Repo) HasManifest() bool {
	_, err := os.Stat(filepath.Join(r.root, manifest.DefaultPath))
	return err == nil
}

// Manifest lazily loads and caches the repository's manifest. The cache is
// invalidated by InvalidateManifest, which callers must do after any
// mutating transaction commits — the repository object holds at most one
// owned manifest handle at a time, per the lazy-workspace-cache pattern.
func (r *Repo) Manifest() (*manifest.Manifest, error) {
	if r.manifest != nil {
		return r.manifest, nil
	}
	m, err := manifest.LoadFromRepo(r.root)
	if err != nil {
		return nil, err
	}
	r.manifest = m
	return m, nil
}

// InvalidateManifest drops the cached manifest so the next Manifest() call
// re-reads it from disk.
func (r *Repo) InvalidateManifest() {
	r.manifest = nil
}

// CurrentChangeID, CurrentCommitID, CurrentOperationID, BranchChangeID,
// ResolveRevision, ChangedFiles, HasConflicts, and GetConflicts pass straight
// through to the driver; repo adds no behavior beyond exposing them under a
// single handle for callers that shouldn't need to hold a driver reference
// themselves.

func (r *Repo) CurrentChangeID() (string, error)     { return r.driver.CurrentChangeID() }
func (r *Repo) CurrentCommitID() (string, error)     { return r.driver.CurrentCommitID() }
func (r *Repo) CurrentOperationID() (string, error)  { return r.driver.CurrentOperationID() }
func (r *Repo) BranchChangeID(branch string) (string, bool, error) {
	return r.driver.BranchChangeID(branch)
}
func (r *Repo) ResolveRevision(spec string) (string, string, error) {
	return r.driver.ResolveRevision(spec)
}
func (r *Repo) ChangedFiles(changeID string) ([]string, error) {
	return r.driver.ChangedFiles(changeID)
}
func (r *Repo) HasConflicts(changeID string) (bool, error) { return r.driver.HasConflicts(changeID) }
func (r *Repo) GetConflicts(changeID string) ([]errs.ConflictDetail, error) {
	return r.driver.GetConflicts(changeID)
}

// ReadFile reads path. An empty revision reads the working filesystem
// (covering both tracked and untracked files); a non-empty revision reads
// via the driver's tree-file accessor.
func (r *Repo) ReadFile(path, revision string) ([]byte, error) {
	if revision == "" {
		data, err := os.ReadFile(filepath.Join(r.root, path))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errs.NotFound(path, "")
			}
			return nil, errs.IO(err)
		}
		return data, nil
	}
	return r.driver.ReadTreeFile(path, revision)
}

// Undo rewinds the repository to the operation n steps before the current
// one: fetching n+1 operations newest-first and restoring to the last one
// fetched. Undo(0) restores to the current operation (a no-op); Undo(1)
// restores to the operation immediately prior.
func (r *Repo) Undo(n int) error {
	ops, err := r.driver.OperationLog(n + 1)
	if err != nil {
		return err
	}
	if len(ops) < n+1 {
		return errs.Repository("not enough operation history to undo %d step(s)", n)
	}
	return r.driver.RestoreToOperation(ops[n].ID)
}

// CommitOptions configures CommitWorkingCopy.
type CommitOptions struct {
	Description string
	// Paths, if non-empty, restricts the commit to these paths: every other
	// path in the working copy remains uncommitted. Every entry must name a
	// path that actually changed in the snapshot.
	Paths []string
	// RunInvariants runs the manifest's pre-commit invariants (if a manifest
	// is present) before the commit lands, failing the whole operation on
	// the first non-zero exit.
	RunInvariants bool
	// NoNew skips creating a new empty working-copy commit after rewriting
	// the current one.
	NoNew bool
	Ignores vcsdriver.Ignores
}

// CommitResult is what CommitWorkingCopy returns on success.
type CommitResult struct {
	ChangeID     string
	CommitID     string
	FilesChanged []string
}

// CommitWorkingCopy implements spec §4.F's commit_working_copy: snapshot the
// working copy, optionally scope it to a path filter, optionally run
// pre-commit invariants, rewrite the current commit's description (and, for
// drivers that support real tree slicing, its tree), advance to a fresh
// empty working-copy commit unless NoNew is set, export refs to Git, and
// resynchronize the colocated Git branch and HEAD.
func (r *Repo) CommitWorkingCopy(ctx context.Context, opts CommitOptions) (*CommitResult, error) {
	snapshot, err := r.snapshotForCommit(opts)
	if err != nil {
		return nil, err
	}

	if opts.RunInvariants && r.HasManifest() {
		if err := r.runPreCommitInvariants(ctx); err != nil {
			return nil, err
		}
	}

	commitID, err := r.driver.CurrentCommitID()
	if err != nil {
		return nil, err
	}
	tree := snapshot.TreeID
	if err := r.driver.RewriteCommit(commitID, &tree, &opts.Description); err != nil {
		return nil, err
	}

	changeID, err := r.driver.CurrentChangeID()
	if err != nil {
		return nil, err
	}
	newCommitID := commitID

	if !opts.NoNew {
		newChangeID, nc, err := r.driver.NewCommit([]string{commitID}, "", "")
		if err != nil {
			return nil, err
		}
		changeID, newCommitID = newChangeID, nc
	}

	if err := r.driver.ExportRefsToGit(); err != nil {
		return nil, err
	}
	r.syncGit(ctx, newCommitID)
	r.InvalidateManifest()

	return &CommitResult{ChangeID: changeID, CommitID: newCommitID, FilesChanged: snapshot.ChangedPaths}, nil
}

// snapshotForCommit captures the working copy, using the driver's
// path-scoped capability when available and opts.Paths is non-empty,
// otherwise a plain full snapshot.
func (r *Repo) snapshotForCommit(opts CommitOptions) (vcsdriver.Snapshot, error) {
	if len(opts.Paths) == 0 {
		return r.driver.SnapshotWorkingCopy(opts.Ignores)
	}
	if scoped, ok := r.driver.(pathScopedSnapshotter); ok {
		return scoped.SnapshotWorkingCopyPaths(opts.Paths, opts.Ignores)
	}

	full, err := r.driver.SnapshotWorkingCopy(opts.Ignores)
	if err != nil {
		return vcsdriver.Snapshot{}, err
	}
	changed := make(map[string]bool, len(full.ChangedPaths))
	for _, p := range full.ChangedPaths {
		changed[p] = true
	}
	var selected []string
	for _, p := range opts.Paths {
		if !changed[p] {
			return vcsdriver.Snapshot{}, errs.PathNotFound(p)
		}
		selected = append(selected, p)
	}
	if len(selected) == 0 {
		return vcsdriver.Snapshot{}, errs.NoChangesInPaths()
	}
	return vcsdriver.Snapshot{TreeID: full.TreeID, ChangedPaths: selected}, nil
}

func (r *Repo) runPreCommitInvariants(ctx context.Context) error {
	m, err := r.Manifest()
	if err != nil {
		return err
	}
	shell := extproc.NewShell(r.logger)
	for _, entry := range m.InvariantsFor(taxonomy.TriggerPreCommit) {
		res, err := shell.Run(ctx, r.root, entry.Invariant.Command())
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return errs.InvariantFailed(entry.Name, entry.Invariant.Command(), res.ExitCode, res.Stdout, res.Stderr)
		}
	}
	return nil
}

// syncGit re-establishes the colocated Git branch and HEAD after an export,
// which can leave HEAD detached. If no candidate branch can be resolved, it
// logs a warning and leaves the commit as-is in VCS state — the commit
// itself never depends on this step succeeding.
func (r *Repo) syncGit(ctx context.Context, commit string) {
	branch, ok := r.resolveGitBranch(ctx)
	if !ok {
		r.logger.Warn("skipping git branch sync: HEAD is detached and no candidate branch was found")
		return
	}
	if err := r.git.UpdateRef(ctx, r.root, branch, commit); err != nil {
		r.logger.Warn("git branch sync failed", "branch", branch, "err", err)
		return
	}
	if err := r.git.SetHead(ctx, r.root, branch); err != nil {
		r.logger.Warn("git HEAD sync failed", "branch", branch, "err", err)
	}
}

// resolveGitBranch implements spec §4.F's candidate order: the current
// symbolic ref, then init.defaultBranch (if it names an existing branch),
// then "main", then "master".
func (r *Repo) resolveGitBranch(ctx context.Context) (string, bool) {
	if branch, ok := r.git.SymbolicRef(ctx, r.root, "HEAD"); ok && branch != "" {
		return branch, true
	}
	if branch, ok := r.git.ConfigGet(ctx, r.root, "init.defaultBranch"); ok && branch != "" {
		if r.git.BranchExists(ctx, r.root, branch) {
			return branch, true
		}
	}
	for _, candidate := range []string{"main", "master"} {
		if r.git.BranchExists(ctx, r.root, candidate) {
			return candidate, true
		}
	}
	return "", false
}
