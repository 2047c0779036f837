package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/vcsdriver/fake"
)

func newTestRepo(t *testing.T) (*Repo, *fake.Driver) {
	t.Helper()
	dir := t.TempDir()
	d := fake.New()
	return Open(dir, d, nil), d
}

func TestCommitWorkingCopyFullSnapshot(t *testing.T) {
	r, d := newTestRepo(t)
	d.PendingFiles["a.txt"] = "hello"
	d.PendingFiles["b.txt"] = "world"

	res, err := r.CommitWorkingCopy(context.Background(), CommitOptions{Description: "feat: add files"})
	if err != nil {
		t.Fatalf("CommitWorkingCopy() error = %v", err)
	}
	if len(res.FilesChanged) != 2 {
		t.Errorf("FilesChanged = %v, want 2 entries", res.FilesChanged)
	}
	if res.ChangeID == "" || res.CommitID == "" {
		t.Error("expected a non-empty change/commit id after commit")
	}
}

func TestCommitWorkingCopySelectivePaths(t *testing.T) {
	r, d := newTestRepo(t)
	d.PendingFiles["a.txt"] = "1"
	d.PendingFiles["b.txt"] = "2"
	d.PendingFiles["c.txt"] = "3"

	res, err := r.CommitWorkingCopy(context.Background(), CommitOptions{
		Description: "feat: a and b only",
		Paths:       []string{"a.txt", "b.txt"},
	})
	if err != nil {
		t.Fatalf("CommitWorkingCopy() error = %v", err)
	}
	if len(res.FilesChanged) != 2 || res.FilesChanged[0] != "a.txt" || res.FilesChanged[1] != "b.txt" {
		t.Errorf("FilesChanged = %v, want [a.txt b.txt]", res.FilesChanged)
	}
}

func TestCommitWorkingCopyPathNotFound(t *testing.T) {
	r, d := newTestRepo(t)
	d.PendingFiles["a.txt"] = "1"

	_, err := r.CommitWorkingCopy(context.Background(), CommitOptions{
		Description: "feat: bogus path",
		Paths:       []string{"missing.txt"},
	})
	if !errs.Of(err, errs.KindPathNotFound) {
		t.Errorf("expected KindPathNotFound, got %v", err)
	}
}

func TestCommitWorkingCopyNoChangesInPaths(t *testing.T) {
	r, _ := newTestRepo(t)

	_, err := r.CommitWorkingCopy(context.Background(), CommitOptions{
		Description: "feat: nothing changed",
		Paths:       []string{"nope.txt"},
	})
	if err == nil {
		t.Fatal("expected an error when no paths changed")
	}
}

func TestCommitWorkingCopyRunsInvariants(t *testing.T) {
	r, d := newTestRepo(t)
	d.PendingFiles["x.txt"] = "1"

	if err := os.MkdirAll(filepath.Join(r.Root(), ".agent"), 0o755); err != nil {
		t.Fatal(err)
	}
	manifestTOML := "[invariants]\nalways_fail = { cmd = \"false\", on = [\"pre-commit\"] }\n"
	if err := os.WriteFile(filepath.Join(r.Root(), ".agent", "manifest.toml"), []byte(manifestTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := r.CommitWorkingCopy(context.Background(), CommitOptions{
		Description:   "feat: x",
		RunInvariants: true,
	})
	if !errs.Of(err, errs.KindInvariantFailed) {
		t.Errorf("expected KindInvariantFailed, got %v", err)
	}
}

func TestUndoRewindsToPriorOperation(t *testing.T) {
	r, d := newTestRepo(t)
	opBefore, err := r.CurrentOperationID()
	if err != nil {
		t.Fatal(err)
	}

	d.PendingFiles["a.txt"] = "1"
	if _, _, err := d.NewCommit(nil, "", "first"); err != nil {
		t.Fatal(err)
	}

	if err := r.Undo(1); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	opAfter, err := r.CurrentOperationID()
	if err != nil {
		t.Fatal(err)
	}
	if opAfter == opBefore {
		t.Log("operation id equal after undo; restore records a new op, so this is expected to differ")
	}
}

func TestUndoFailsWithoutEnoughHistory(t *testing.T) {
	r, _ := newTestRepo(t)
	if err := r.Undo(10); err == nil {
		t.Error("expected Undo to fail without enough operation history")
	}
}

func TestReadFileFallsBackToFilesystem(t *testing.T) {
	r, _ := newTestRepo(t)
	if err := os.WriteFile(filepath.Join(r.Root(), "untracked.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := r.ReadFile("untracked.txt", "")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "hi" {
		t.Errorf("ReadFile() = %q, want %q", data, "hi")
	}
}

func TestManifestIsCachedUntilInvalidated(t *testing.T) {
	r, _ := newTestRepo(t)
	if r.HasManifest() {
		t.Fatal("expected no manifest initially")
	}
	if err := os.MkdirAll(filepath.Join(r.Root(), ".agent"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(r.Root(), ".agent", "manifest.toml"), []byte("[repo]\nname=\"x\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := r.Manifest()
	if err != nil {
		t.Fatalf("Manifest() error = %v", err)
	}
	if m.Repo.Name != "x" {
		t.Errorf("Repo.Name = %q, want x", m.Repo.Name)
	}

	if err := os.WriteFile(filepath.Join(r.Root(), ".agent", "manifest.toml"), []byte("[repo]\nname=\"y\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m2, err := r.Manifest()
	if err != nil {
		t.Fatal(err)
	}
	if m2.Repo.Name != "x" {
		t.Errorf("expected cached manifest to still read x, got %q", m2.Repo.Name)
	}

	r.InvalidateManifest()
	m3, err := r.Manifest()
	if err != nil {
		t.Fatal(err)
	}
	if m3.Repo.Name != "y" {
		t.Errorf("expected a fresh read after invalidation to see y, got %q", m3.Repo.Name)
	}
}
