// Package vcsdriver defines the capability surface the intent engine needs
// from the underlying version-control system, independent of how a given
// implementation talks to it (shelling out to a real jj binary, or an
// in-memory double for tests). Every failure returned through this
// interface is an *errs.Error from the project's tagged taxonomy.
package vcsdriver

import "github.com/agentjj/jjx/internal/errs"

// LogEntry is one record from Driver.LogEntries.
type LogEntry struct {
	ShortChangeID    string
	ShortCommitID    string
	CommitID         string
	Description      string // first line only
	ParentShortIDs   []string
	IsWorkingCopy    bool
	AuthorTimestamp  string // ISO-8601 with timezone offset
	AuthorNameOrMail string
}

// OperationEntry is one record from Driver.OperationLog.
type OperationEntry struct {
	ID          string
	Description string
}

// Snapshot is the result of capturing the working copy into a new tree.
type Snapshot struct {
	TreeID string
	// ChangedPaths lists paths that differ between the new tree and the
	// parent tree, in the order the driver discovered them.
	ChangedPaths []string
}

// Ignores configures which files Driver.SnapshotWorkingCopy excludes,
// layered the way a real working-copy snapshot must: user-global patterns,
// repo-level exclude patterns, and per-directory ignore files all apply
// together.
type Ignores struct {
	GlobalPatterns []string // from user config, already ~-expanded
	RepoPatterns   []string // repo-level exclude file
	// MaxFileSize caps how large an individual file may be before it's
	// skipped from the snapshot entirely. Zero means use the driver's
	// default (approximately 1 GiB).
	MaxFileSize int64
}

// Driver is the capability surface a VCS backend must provide. Paths are
// always repo-root-relative, revisions are always the backend's native
// identifiers (for jj: change ids or "@"/"@-" specs).
type Driver interface {
	// Discover locates (or, for a colocated Git repo with no VCS state yet,
	// bootstraps) a repository rooted at or above startingDir. Returns the
	// repository root. Fails with errs.KindNoRepository if none is found.
	Discover(startingDir string) (root string, err error)

	CurrentChangeID() (string, error)
	CurrentCommitID() (string, error)
	CurrentOperationID() (string, error)

	// BranchChangeID returns the change id a bookmark/branch currently
	// points at, or "", false if the branch doesn't exist.
	BranchChangeID(branch string) (changeID string, ok bool, err error)

	// ResolveRevision resolves spec (one of "@", "@-", or a change-id hex
	// prefix) to its parent commit id (empty if the revision is a root) and
	// its own commit id.
	ResolveRevision(spec string) (parentCommitID, commitID string, err error)

	// ChangedFiles lists the paths touched by changeID, in tree-diff order,
	// deduplicated.
	ChangedFiles(changeID string) ([]string, error)

	HasConflicts(changeID string) (bool, error)
	GetConflicts(changeID string) ([]errs.ConflictDetail, error)

	// ReadTreeFile reads path as it exists at revision. Fails with
	// errs.KindNotFound if path isn't present there.
	ReadTreeFile(path, revision string) ([]byte, error)

	// SnapshotWorkingCopy captures the current working copy into a new tree,
	// honoring ignores, and returns the tree id plus the paths that changed
	// relative to the parent tree.
	SnapshotWorkingCopy(ignores Ignores) (Snapshot, error)

	// NewCommit creates a commit with the given parents and tree,
	// described by description, inside a transaction. Returns the new
	// commit's change id and commit id.
	NewCommit(parents []string, tree, description string) (changeID, commitID string, err error)

	// RewriteCommit amends commit in place. A nil tree or description
	// leaves that part unchanged.
	RewriteCommit(commit string, tree, description *string) error

	RebaseDescendants() error
	SetLocalBookmark(ref, commit string) error
	ExportRefsToGit() error

	// LogEntries returns up to limit log records (ignored when allHeads is
	// true), DFS-ordered from all view heads, deduplicated by commit id,
	// skipping the synthetic root commit.
	LogEntries(limit int, allHeads bool) ([]LogEntry, error)

	// OperationLog returns up to limit operation-log records, newest first.
	OperationLog(limit int) ([]OperationEntry, error)

	// RestoreToOperation records a restore operation merging opID's view
	// into the current one.
	RestoreToOperation(opID string) error
}
