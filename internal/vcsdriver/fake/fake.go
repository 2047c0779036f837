// Package fake provides an in-memory vcsdriver.Driver double so the intent
// engine and repository handle can be tested without shelling out to a real
// jj binary. It models just enough of jj's change/operation/tree semantics
// to exercise the engine's state machine: linear history, one working-copy
// change at a time, and operations recorded as an append-only log that
// RestoreToOperation can rewind to.
package fake

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/vcsdriver"
)

// change is one node in the fake's commit graph.
type change struct {
	changeID    string
	commitID    string
	parents     []string // commit ids
	tree        map[string]string
	description string
	conflicts   []errs.ConflictDetail
}

// operation is one entry in the fake's operation log.
type operation struct {
	id          string
	description string
	// snapshot captures enough state to restore to this point.
	workingChangeID string
	changes         map[string]*change
	bookmarks       map[string]string
}

// Driver is an in-memory double implementing vcsdriver.Driver.
type Driver struct {
	mu sync.Mutex

	seq int

	changes         map[string]*change // keyed by change id
	workingChangeID string
	bookmarks       map[string]string // branch name -> change id

	ops []operation

	// MaxFileSize, if set, makes SnapshotWorkingCopy reject files in
	// PendingFiles larger than this size the same way a real ignore-by-size
	// rule would. Tests can leave it zero to disable the check.
	MaxFileSize int64

	// PendingFiles is the working-copy content tests stage before calling
	// SnapshotWorkingCopy or NewCommit; it models the filesystem a real
	// driver would snapshot.
	PendingFiles map[string]string
}

var _ vcsdriver.Driver = (*Driver)(nil)

// New returns a Driver with a single empty root change checked out.
func New() *Driver {
	d := &Driver{
		changes:      map[string]*change{},
		bookmarks:    map[string]string{},
		PendingFiles: map[string]string{},
	}
	root := &change{
		changeID: "zzzzzzzzroot",
		commitID: d.nextID("commit"),
		tree:     map[string]string{},
	}
	d.changes[root.changeID] = root
	d.workingChangeID = root.changeID
	d.recordOp("initialize repo")
	return d
}

func (d *Driver) nextID(kind string) string {
	d.seq++
	return fmt.Sprintf("%s%06d", kind[:1], d.seq)
}

func (d *Driver) recordOp(description string) {
	snapshotChanges := make(map[string]*change, len(d.changes))
	for k, v := range d.changes {
		cp := *v
		cp.tree = copyMap(v.tree)
		cp.parents = append([]string(nil), v.parents...)
		snapshotChanges[k] = &cp
	}
	d.ops = append(d.ops, operation{
		id:              d.nextID("operation"),
		description:     description,
		workingChangeID: d.workingChangeID,
		changes:         snapshotChanges,
		bookmarks:       copyMap(d.bookmarks),
	})
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *Driver) current() *change {
	return d.changes[d.workingChangeID]
}

func (d *Driver) Discover(startingDir string) (string, error) {
	return startingDir, nil
}

func (d *Driver) CurrentChangeID() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.workingChangeID, nil
}

func (d *Driver) CurrentCommitID() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current().commitID, nil
}

func (d *Driver) CurrentOperationID() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ops[len(d.ops)-1].id, nil
}

func (d *Driver) BranchChangeID(branch string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.bookmarks[branch]
	return id, ok, nil
}

func (d *Driver) ResolveRevision(spec string) (string, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var target *change
	switch {
	case spec == "@":
		target = d.current()
	case spec == "@-":
		cur := d.current()
		if len(cur.parents) == 0 {
			return "", "", errs.NotFound("@-", spec)
		}
		target = d.findByCommitID(cur.parents[0])
	default:
		target = d.findByChangeIDPrefix(spec)
	}
	if target == nil {
		return "", "", errs.NotFound(spec, spec)
	}
	parentCommitID := ""
	if len(target.parents) > 0 {
		parentCommitID = target.parents[0]
	}
	return parentCommitID, target.commitID, nil
}

func (d *Driver) findByCommitID(commitID string) *change {
	for _, c := range d.changes {
		if c.commitID == commitID {
			return c
		}
	}
	return nil
}

func (d *Driver) findByChangeIDPrefix(prefix string) *change {
	if c, ok := d.changes[prefix]; ok {
		return c
	}
	for id, c := range d.changes {
		if strings.HasPrefix(id, prefix) {
			return c
		}
	}
	return nil
}

func (d *Driver) ChangedFiles(changeID string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.changes[changeID]
	if !ok {
		return nil, errs.ChangeNotFound(changeID)
	}
	var parentTree map[string]string
	if len(c.parents) > 0 {
		if p := d.findByCommitID(c.parents[0]); p != nil {
			parentTree = p.tree
		}
	}
	return diffTreePaths(parentTree, c.tree), nil
}

func diffTreePaths(parent, child map[string]string) []string {
	var out []string
	for path, content := range child {
		if pv, ok := parent[path]; !ok || pv != content {
			out = append(out, path)
		}
	}
	for path := range parent {
		if _, ok := child[path]; !ok {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

func (d *Driver) HasConflicts(changeID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.changes[changeID]
	if !ok {
		return false, errs.ChangeNotFound(changeID)
	}
	return len(c.conflicts) > 0, nil
}

func (d *Driver) GetConflicts(changeID string) ([]errs.ConflictDetail, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.changes[changeID]
	if !ok {
		return nil, errs.ChangeNotFound(changeID)
	}
	return c.conflicts, nil
}

// InjectConflict marks changeID as conflicted with the given detail records,
// for tests exercising the engine's Conflict gate.
func (d *Driver) InjectConflict(changeID string, details []errs.ConflictDetail) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.changes[changeID]; ok {
		c.conflicts = details
	}
}

func (d *Driver) ReadTreeFile(path, revision string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rev := revision
	if rev == "" {
		rev = "@"
	}
	var c *change
	if rev == "@" {
		c = d.current()
	} else {
		c = d.findByChangeIDPrefix(rev)
	}
	if c == nil {
		return nil, errs.NotFound(path, rev)
	}
	content, ok := c.tree[path]
	if !ok {
		return nil, errs.NotFound(path, rev)
	}
	return []byte(content), nil
}

func (d *Driver) SnapshotWorkingCopy(ignores vcsdriver.Ignores) (vcsdriver.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	maxSize := ignores.MaxFileSize
	if maxSize <= 0 {
		maxSize = d.MaxFileSize
	}

	cur := d.current()
	newTree := copyMap(cur.tree)
	for path, content := range d.PendingFiles {
		if maxSize > 0 && int64(len(content)) > maxSize {
			continue
		}
		newTree[path] = content
	}
	changed := diffTreePaths(cur.tree, newTree)
	cur.tree = newTree
	return vcsdriver.Snapshot{TreeID: d.nextID("tree"), ChangedPaths: changed}, nil
}

// SnapshotWorkingCopyPaths mirrors jj.Driver's path-scoped snapshot: it
// applies the same pending-file merge as SnapshotWorkingCopy, then validates
// and filters the result down to paths, in the same order the caller
// requested them.
func (d *Driver) SnapshotWorkingCopyPaths(paths []string, ignores vcsdriver.Ignores) (vcsdriver.Snapshot, error) {
	full, err := d.SnapshotWorkingCopy(ignores)
	if err != nil {
		return vcsdriver.Snapshot{}, err
	}

	changedSet := make(map[string]bool, len(full.ChangedPaths))
	for _, p := range full.ChangedPaths {
		changedSet[p] = true
	}

	var selected []string
	for _, p := range paths {
		if !changedSet[p] {
			return vcsdriver.Snapshot{}, errs.PathNotFound(p)
		}
		selected = append(selected, p)
	}
	if len(selected) == 0 {
		return vcsdriver.Snapshot{}, errs.NoChangesInPaths()
	}
	return vcsdriver.Snapshot{TreeID: full.TreeID, ChangedPaths: selected}, nil
}

func (d *Driver) NewCommit(parents []string, tree, description string) (string, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	parentCommits := parents
	if len(parentCommits) == 0 {
		parentCommits = []string{d.current().commitID}
	}

	newChange := &change{
		changeID:    d.nextID("change"),
		commitID:    d.nextID("commit"),
		parents:     parentCommits,
		tree:        copyMap(d.current().tree),
		description: description,
	}
	d.changes[newChange.changeID] = newChange
	d.workingChangeID = newChange.changeID
	d.recordOp("new commit: " + description)
	return newChange.changeID, newChange.commitID, nil
}

func (d *Driver) RewriteCommit(commit string, tree, description *string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c := d.findByChangeIDPrefix(commit)
	if c == nil {
		c = d.findByCommitID(commit)
	}
	if c == nil {
		return errs.ChangeNotFound(commit)
	}
	if description != nil {
		c.description = *description
	}
	c.commitID = d.nextID("commit")
	d.recordOp("rewrite commit " + commit)
	return nil
}

func (d *Driver) RebaseDescendants() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recordOp("rebase descendants")
	return nil
}

func (d *Driver) SetLocalBookmark(ref, commit string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c := d.findByChangeIDPrefix(commit)
	if c == nil {
		return errs.ChangeNotFound(commit)
	}
	d.bookmarks[ref] = c.changeID
	d.recordOp("bookmark set " + ref)
	return nil
}

func (d *Driver) ExportRefsToGit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recordOp("git export")
	return nil
}

func (d *Driver) LogEntries(limit int, allHeads bool) ([]vcsdriver.LogEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]string, 0, len(d.changes))
	for id := range d.changes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []vcsdriver.LogEntry
	for _, id := range ids {
		if strings.HasPrefix(id, "zzzzzzzz") {
			continue
		}
		c := d.changes[id]
		var parentShorts []string
		for _, pc := range c.parents {
			if p := d.findByCommitID(pc); p != nil {
				parentShorts = append(parentShorts, p.changeID)
			}
		}
		out = append(out, vcsdriver.LogEntry{
			ShortChangeID:    id,
			ShortCommitID:    c.commitID,
			CommitID:         c.commitID,
			Description:      firstLine(c.description),
			ParentShortIDs:   parentShorts,
			IsWorkingCopy:    id == d.workingChangeID,
			AuthorTimestamp:  "2024-01-01T00:00:00+00:00",
			AuthorNameOrMail: "test@example.com",
		})
		if !allHeads && limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (d *Driver) OperationLog(limit int) ([]vcsdriver.OperationEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []vcsdriver.OperationEntry
	for i := len(d.ops) - 1; i >= 0; i-- {
		out = append(out, vcsdriver.OperationEntry{ID: d.ops[i].id, Description: d.ops[i].description})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (d *Driver) RestoreToOperation(opID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, op := range d.ops {
		if op.id == opID {
			restored := make(map[string]*change, len(op.changes))
			for k, v := range op.changes {
				cp := *v
				cp.tree = copyMap(v.tree)
				cp.parents = append([]string(nil), v.parents...)
				restored[k] = &cp
			}
			d.changes = restored
			d.workingChangeID = op.workingChangeID
			d.bookmarks = copyMap(op.bookmarks)
			d.recordOp("restore to operation " + opID)
			return nil
		}
	}
	return errs.Repository("operation %q not found", opID)
}
