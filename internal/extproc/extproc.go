// Package extproc wraps the external binaries the intent engine shells out
// to beyond jj itself: the `patch` tool for applying unified diffs, the
// user's shell for running manifest invariants, `git` for colocated ref
// synchronization, and the optional `gh` CLI for PR creation. All follow the
// same exec.CommandContext-injection idiom as the teacher's loop supervisor
// (cli/cmd/ao/rpi_loop_supervisor.go), which swaps exec.CommandContext
// behind a package variable so tests can stub process execution.
package extproc

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/agentjj/jjx/internal/errs"
)

// execCommandContext is indirected for tests, matching the teacher's
// loopExecCommandContext pattern.
var execCommandContext = exec.CommandContext

// Result captures a finished external command's outcome.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Patch applies unified-diff content via `patch -p1` against dir.
type Patch struct {
	logger *slog.Logger
}

// NewPatch returns a Patch runner, defaulting to slog.Default() if logger is nil.
func NewPatch(logger *slog.Logger) *Patch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Patch{logger: logger}
}

// Apply runs `patch -p1 -i <patchFile>` with dir as the working directory.
// patchFile is relative to dir, matching the engine's convention of writing
// to <repo>/.agent/temp.patch before invoking this.
func (p *Patch) Apply(ctx context.Context, dir, patchFile string) error {
	p.logger.Debug("applying patch", "dir", dir, "file", patchFile)

	cmd := execCommandContext(ctx, "patch", "-p1", "-i", patchFile)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		p.logger.Warn("patch failed", "stderr", stderr.String())
		return errs.Repository("patch failed: %s", stderr.String())
	}
	return nil
}

// Shell runs manifest invariant commands via `sh -c <cmd>`.
type Shell struct {
	logger *slog.Logger
}

// NewShell returns a Shell runner, defaulting to slog.Default() if logger is nil.
func NewShell(logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{logger: logger}
}

// Run executes cmd via `sh -c` with dir as the working directory, capturing
// stdout/stderr and the exit code rather than translating a non-zero exit
// into a Go error — the caller (the invariant gate) decides what a failing
// exit code means.
func (s *Shell) Run(ctx context.Context, dir, cmd string) (Result, error) {
	s.logger.Debug("running invariant", "dir", dir, "cmd", cmd)

	c := execCommandContext(ctx, "sh", "-c", cmd)
	c.Dir = dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	exitCode := 0
	if err != nil {
		exitCode = exitCodeOf(err)
		if exitCode == -1 {
			return Result{}, errs.Repository("failed to run %q: %s", cmd, err)
		}
	}

	return Result{ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func exitCodeOf(err error) int {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// Git wraps the handful of plain git commands the repository handle needs
// for colocated HEAD/branch synchronization, beyond what the jj driver
// already exposes via `jj git export`.
type Git struct {
	logger *slog.Logger
}

// NewGit returns a Git runner, defaulting to slog.Default() if logger is nil.
func NewGit(logger *slog.Logger) *Git {
	if logger == nil {
		logger = slog.Default()
	}
	return &Git{logger: logger}
}

func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := execCommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errs.Repository("git %s failed: %s", strings.Join(args, " "), stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

// SymbolicRef returns the short name the given symbolic ref points at, e.g.
// "main" for HEAD pointing at refs/heads/main. ok is false if ref is unset
// or detached.
func (g *Git) SymbolicRef(ctx context.Context, dir, ref string) (branch string, ok bool) {
	out, err := g.run(ctx, dir, "symbolic-ref", "--short", ref)
	if err != nil || out == "" {
		return "", false
	}
	return out, true
}

// ConfigGet reads a single git config value, ok=false if unset.
func (g *Git) ConfigGet(ctx context.Context, dir, key string) (value string, ok bool) {
	out, err := g.run(ctx, dir, "config", "--get", key)
	if err != nil || out == "" {
		return "", false
	}
	return out, true
}

// BranchExists reports whether refs/heads/<branch> exists.
func (g *Git) BranchExists(ctx context.Context, dir, branch string) bool {
	_, err := g.run(ctx, dir, "show-ref", "--verify", "refs/heads/"+branch)
	return err == nil
}

// UpdateRef points refs/heads/<branch> at commit.
func (g *Git) UpdateRef(ctx context.Context, dir, branch, commit string) error {
	_, err := g.run(ctx, dir, "update-ref", "refs/heads/"+branch, commit)
	return err
}

// SetHead re-attaches HEAD to refs/heads/<branch> via a symbolic ref.
func (g *Git) SetHead(ctx context.Context, dir, branch string) error {
	_, err := g.run(ctx, dir, "symbolic-ref", "HEAD", "refs/heads/"+branch)
	return err
}

// Push pushes branch to remote.
func (g *Git) Push(ctx context.Context, dir, remote, branch string) error {
	_, err := g.run(ctx, dir, "push", remote, branch)
	return err
}

// Tag creates a lightweight tag named name at rev ("" for HEAD).
func (g *Git) Tag(ctx context.Context, dir, name, rev string) error {
	args := []string{"tag", name}
	if rev != "" {
		args = append(args, rev)
	}
	_, err := g.run(ctx, dir, args...)
	return err
}

// Diff returns `git diff` between two revisions ("" for the working tree).
func (g *Git) Diff(ctx context.Context, dir, from, to string) (string, error) {
	args := []string{"diff"}
	if from != "" {
		rangeSpec := from
		if to != "" {
			rangeSpec = from + ".." + to
		}
		args = append(args, rangeSpec)
	}
	return g.run(ctx, dir, args...)
}

// Show returns `git show` for a single revision.
func (g *Git) Show(ctx context.Context, dir, rev string) (string, error) {
	return g.run(ctx, dir, "show", rev)
}

// Log returns `git log` output for up to limit commits, one line each.
func (g *Git) Log(ctx context.Context, dir string, limit int) (string, error) {
	return g.run(ctx, dir, "log", "--oneline", fmt.Sprintf("-%d", limit))
}

// Init runs `git init` in dir.
func (g *Git) Init(ctx context.Context, dir string) error {
	_, err := g.run(ctx, dir, "init")
	return err
}

// RevParse resolves a revision spec to a full commit hash.
func (g *Git) RevParse(ctx context.Context, dir, rev string) (string, error) {
	return g.run(ctx, dir, "rev-parse", rev)
}

// GH wraps the optional `gh` CLI for PR creation; spec.md §6 documents gh as
// an optional collaborator, so a missing binary is reported through err
// rather than panicking the caller.
type GH struct {
	logger *slog.Logger
}

// NewGH returns a GH runner, defaulting to slog.Default() if logger is nil.
func NewGH(logger *slog.Logger) *GH {
	if logger == nil {
		logger = slog.Default()
	}
	return &GH{logger: logger}
}

// CreatePR runs `gh pr create --title <title> --body <body>` in dir and
// returns the created PR's URL (gh prints it to stdout on success).
func (g *GH) CreatePR(ctx context.Context, dir, title, body string) (string, error) {
	cmd := execCommandContext(ctx, "gh", "pr", "create", "--title", title, "--body", body)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errs.Repository("gh pr create failed: %s", stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}
