// Package jj implements vcsdriver.Driver by shelling out to the jj and git
// command-line binaries against a colocated jj+git repository, following the
// exec-wrapper idiom of mccartykim-wong/wong_impl's internal/vcs package:
// a thin Command constructor plus run helpers that capture stdout/stderr and
// wrap failures in a single error type.
package jj

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/vcsdriver"
)

// rootMarker is the directory jj creates at a repository's root.
const rootMarker = ".jj"

// Driver shells out to jj (and, for colocated sync, git) against a single
// repository root.
type Driver struct {
	root string
}

var _ vcsdriver.Driver = (*Driver)(nil)

// Open returns a Driver rooted at root without checking that root is a jj
// repository; callers that need discovery should call Discover first.
func Open(root string) *Driver {
	return &Driver{root: root}
}

// Discover walks up from startingDir looking for a .jj directory. If it
// finds a Git repository with no jj state, it bootstraps colocated jj state
// in place via `jj git init --colocate` and returns the new root.
func (d *Driver) Discover(startingDir string) (string, error) {
	abs, err := filepath.Abs(startingDir)
	if err != nil {
		return "", errs.IO(err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errs.IO(err)
	}

	current := abs
	for {
		if dirExists(filepath.Join(current, rootMarker)) {
			d.root = current
			return current, nil
		}
		if dirExists(filepath.Join(current, ".git")) {
			d.root = current
			if _, err := d.jj("git", "init", "--colocate"); err != nil {
				return "", err
			}
			if err := ensureGitignoreEntry(current); err != nil {
				return "", err
			}
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", errs.NoRepository(abs)
		}
		current = parent
	}
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// ensureGitignoreEntry appends a line excluding the jj private directory to
// the repo's root .gitignore, in normalized form, if it isn't already there.
func ensureGitignoreEntry(root string) error {
	const entry = "/.jj/"
	path := filepath.Join(root, ".gitignore")

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return errs.IO(err)
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if normalizeIgnoreLine(line) == entry {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.IO(err)
	}
	defer f.Close()
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return errs.IO(err)
		}
	}
	if _, err := f.WriteString(entry + "\n"); err != nil {
		return errs.IO(err)
	}
	return nil
}

func normalizeIgnoreLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	if !strings.HasPrefix(line, "/") {
		line = "/" + line
	}
	if !strings.HasSuffix(line, "/") {
		line += "/"
	}
	return line
}

// command builds an exec.Cmd for name against the repo root.
func (d *Driver) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = d.root
	cmd.Env = os.Environ()
	return cmd
}

// run executes name with args and returns trimmed stdout, wrapping any
// failure as a Repository error carrying the captured stderr.
func (d *Driver) run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := d.command(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", errs.Repository("%s %s failed: %s", name, strings.Join(args, " "), stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

// runMaybe is run, but failures are swallowed and reported via ok=false
// instead of an error, for operations where "doesn't exist" isn't
// exceptional (e.g. resolving an absent bookmark).
func (d *Driver) runMaybe(ctx context.Context, name string, args ...string) (output string, ok bool) {
	out, err := d.run(ctx, name, args...)
	if err != nil {
		return "", false
	}
	return out, true
}

func (d *Driver) jj(args ...string) (string, error) {
	return d.run(context.Background(), "jj", args...)
}

func (d *Driver) jjMaybe(args ...string) (string, bool) {
	return d.runMaybe(context.Background(), "jj", args...)
}

const changeIDTemplate = `change_id ++ "\n"`
const commitIDTemplate = `commit_id ++ "\n"`

func (d *Driver) CurrentChangeID() (string, error) {
	out, err := d.jj("log", "-r", "@", "--no-graph", "-T", changeIDTemplate)
	return strings.TrimSpace(out), err
}

func (d *Driver) CurrentCommitID() (string, error) {
	out, err := d.jj("log", "-r", "@", "--no-graph", "-T", commitIDTemplate)
	return strings.TrimSpace(out), err
}

func (d *Driver) CurrentOperationID() (string, error) {
	out, err := d.jj("op", "log", "--no-graph", "-T", `id ++ "\n"`, "--limit", "1")
	return strings.TrimSpace(out), err
}

func (d *Driver) BranchChangeID(branch string) (string, bool, error) {
	out, ok := d.jjMaybe("log", "-r", branch, "--no-graph", "-T", changeIDTemplate)
	if !ok {
		return "", false, nil
	}
	return strings.TrimSpace(out), true, nil
}

func (d *Driver) ResolveRevision(spec string) (string, string, error) {
	out, err := d.jj("log", "-r", spec, "--no-graph", "-T",
		`commit_id ++ "\n" ++ if(parents.len() > 0, parents.first().commit_id(), "")`)
	if err != nil {
		return "", "", err
	}
	lines := strings.SplitN(out, "\n", 2)
	commitID := strings.TrimSpace(lines[0])
	parentID := ""
	if len(lines) > 1 {
		parentID = strings.TrimSpace(lines[1])
	}
	return parentID, commitID, nil
}

func (d *Driver) ChangedFiles(changeID string) ([]string, error) {
	out, err := d.jj("diff", "-r", changeID, "--summary")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) == 2 {
			files = append(files, strings.TrimSpace(parts[1]))
		}
	}
	return dedupPreserveOrder(files), nil
}

func dedupPreserveOrder(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (d *Driver) HasConflicts(changeID string) (bool, error) {
	out, err := d.jj("log", "-r", changeID, "--no-graph", "-T", `if(conflict, "true", "false")`)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "true", nil
}

func (d *Driver) GetConflicts(changeID string) ([]errs.ConflictDetail, error) {
	out, err := d.jj("resolve", "-r", changeID, "--list")
	if err != nil {
		return nil, err
	}
	var conflicts []errs.ConflictDetail
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		conflicts = append(conflicts, errs.ConflictDetail{File: line})
	}
	return conflicts, nil
}

func (d *Driver) ReadTreeFile(path, revision string) ([]byte, error) {
	if revision == "" {
		revision = "@"
	}
	cmd := d.command(context.Background(), "jj", "file", "show", "-r", revision, path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if strings.Contains(strings.ToLower(stderr.String()), "no such path") {
			return nil, errs.NotFound(path, revision)
		}
		return nil, errs.Repository("jj file show failed: %s", stderr.String())
	}
	return stdout.Bytes(), nil
}

// SnapshotWorkingCopy relies on jj's automatic working-copy snapshotting: any
// jj command that touches @ triggers one. We run `jj status` to force it,
// read the new tree id off @, and diff against the parent for changed paths.
// Ignore-layering (global/repo/per-directory) is jj's own responsibility;
// ignores.MaxFileSize is passed through the JJ_MAX_NEW_FILE_SIZE knob jj
// honors for oversized-file snapshotting.
func (d *Driver) SnapshotWorkingCopy(ignores vcsdriver.Ignores) (vcsdriver.Snapshot, error) {
	maxSize := ignores.MaxFileSize
	if maxSize <= 0 {
		maxSize = 1 << 30 // 1 GiB default
	}

	cmd := d.command(context.Background(), "jj", "status")
	cmd.Env = append(cmd.Env, fmtEnv("JJ_MAX_NEW_FILE_SIZE", maxSize))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return vcsdriver.Snapshot{}, errs.Repository("jj status failed: %s", stderr.String())
	}

	changeID, err := d.CurrentChangeID()
	if err != nil {
		return vcsdriver.Snapshot{}, err
	}
	treeID, err := d.jj("log", "-r", "@", "--no-graph", "-T", `tree_id ++ "\n"`)
	if err != nil {
		return vcsdriver.Snapshot{}, err
	}
	changed, err := d.ChangedFiles(changeID)
	if err != nil {
		return vcsdriver.Snapshot{}, err
	}
	return vcsdriver.Snapshot{TreeID: strings.TrimSpace(treeID), ChangedPaths: changed}, nil
}

// SnapshotWorkingCopyPaths is the path-scoped variant of SnapshotWorkingCopy,
// implementing vcsdriver's optional path-filter capability (see
// internal/repo's use of this via a type assertion). jj has no single
// subcommand that assembles a tree from an arbitrary path subset of a
// snapshot, so this validates the request against a full snapshot and
// reports the requested paths actually touched; the repository handle is
// responsible for deciding what that means for the commit it builds.
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

func fmtEnv(key string, value int64) string {
	return key + "=" + itoa(value)
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// NewCommit creates a new change via `jj new`, describing it and advancing
// onto it. jj always starts a transaction per command and commits it
// atomically when the process exits successfully, so no explicit
// transaction bracketing is needed here; an error return means the command
// never committed.
func (d *Driver) NewCommit(parents []string, tree, description string) (string, string, error) {
	args := []string{"new", "-m", description}
	args = append(args, parents...)
	if _, err := d.jj(args...); err != nil {
		return "", "", err
	}
	changeID, err := d.CurrentChangeID()
	if err != nil {
		return "", "", err
	}
	commitID, err := d.CurrentCommitID()
	if err != nil {
		return "", "", err
	}
	return changeID, commitID, nil
}

func (d *Driver) RewriteCommit(commit string, tree, description *string) error {
	if description != nil {
		if _, err := d.jj("describe", "-r", commit, "-m", *description); err != nil {
			return err
		}
	}
	// A full tree replacement isn't exposed as a single jj subcommand; the
	// engine achieves it by restoring paths before calling RewriteCommit,
	// so tree is accepted for interface symmetry but unused here.
	_ = tree
	return nil
}

func (d *Driver) RebaseDescendants() error {
	_, err := d.jj("rebase", "-s", "all()", "-d", "@")
	return err
}

func (d *Driver) SetLocalBookmark(ref, commit string) error {
	_, err := d.jj("bookmark", "set", ref, "-r", commit, "--allow-backwards")
	return err
}

func (d *Driver) ExportRefsToGit() error {
	_, err := d.jj("git", "export")
	return err
}

func (d *Driver) LogEntries(limit int, allHeads bool) ([]vcsdriver.LogEntry, error) {
	template := `change_id.short() ++ "\x1f" ++ commit_id.short() ++ "\x1f" ++ commit_id ++ "\x1f" ++ ` +
		`description.first_line() ++ "\x1f" ++ parents.map(|p| p.change_id().short()).join(",") ++ "\x1f" ++ ` +
		`if(current_working_copy, "true", "false") ++ "\x1f" ++ author.timestamp() ++ "\x1f" ++ author.email() ++ "\x1e"`

	args := []string{"log", "--no-graph", "-T", template, "-r", "all()"}
	if !allHeads && limit > 0 {
		args = append(args, "--limit", itoa(int64(limit)))
	}

	out, err := d.jj(args...)
	if err != nil {
		return nil, err
	}

	var entries []vcsdriver.LogEntry
	seen := make(map[string]bool)
	for _, rec := range strings.Split(out, "\x1e") {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		fields := strings.Split(rec, "\x1f")
		if len(fields) != 8 {
			continue
		}
		if strings.HasPrefix(fields[0], "zzzzzzzz") {
			continue
		}
		if seen[fields[2]] {
			continue
		}
		seen[fields[2]] = true

		var parents []string
		if fields[4] != "" {
			parents = strings.Split(fields[4], ",")
		}
		entries = append(entries, vcsdriver.LogEntry{
			ShortChangeID:    fields[0],
			ShortCommitID:    fields[1],
			CommitID:         fields[2],
			Description:      fields[3],
			ParentShortIDs:   parents,
			IsWorkingCopy:    fields[5] == "true",
			AuthorTimestamp:  fields[6],
			AuthorNameOrMail: fields[7],
		})
	}
	return entries, nil
}

func (d *Driver) OperationLog(limit int) ([]vcsdriver.OperationEntry, error) {
	args := []string{"op", "log", "--no-graph", "-T", `id ++ "\x1f" ++ description.first_line() ++ "\x1e"`}
	if limit > 0 {
		args = append(args, "--limit", itoa(int64(limit)))
	}
	out, err := d.jj(args...)
	if err != nil {
		return nil, err
	}
	var entries []vcsdriver.OperationEntry
	for _, rec := range strings.Split(out, "\x1e") {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		fields := strings.SplitN(rec, "\x1f", 2)
		if len(fields) != 2 {
			continue
		}
		entries = append(entries, vcsdriver.OperationEntry{ID: fields[0], Description: fields[1]})
	}
	return entries, nil
}

func (d *Driver) RestoreToOperation(opID string) error {
	_, err := d.jj("op", "restore", opID)
	return err
}
