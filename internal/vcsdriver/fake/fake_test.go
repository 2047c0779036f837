package fake

import (
	"testing"

	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/vcsdriver"
)

func TestNewStartsAtRootChange(t *testing.T) {
	d := New()
	id, err := d.CurrentChangeID()
	if err != nil {
		t.Fatalf("CurrentChangeID() error = %v", err)
	}
	if id == "" {
		t.Error("expected a non-empty root change id")
	}
}

func TestNewCommitAdvancesWorkingCopy(t *testing.T) {
	d := New()
	before, _ := d.CurrentChangeID()

	changeID, _, err := d.NewCommit(nil, "", "add feature")
	if err != nil {
		t.Fatalf("NewCommit() error = %v", err)
	}
	after, _ := d.CurrentChangeID()

	if after != changeID {
		t.Errorf("CurrentChangeID() = %q, want %q", after, changeID)
	}
	if after == before {
		t.Error("expected working copy to advance to the new change")
	}
}

func TestSnapshotWorkingCopyCapturesPendingFiles(t *testing.T) {
	d := New()
	d.PendingFiles["src/api.py"] = "print('hi')"

	snap, err := d.SnapshotWorkingCopy(vcsdriver.Ignores{})
	if err != nil {
		t.Fatalf("SnapshotWorkingCopy() error = %v", err)
	}
	if len(snap.ChangedPaths) != 1 || snap.ChangedPaths[0] != "src/api.py" {
		t.Errorf("ChangedPaths = %v, want [src/api.py]", snap.ChangedPaths)
	}

	changeID, _ := d.CurrentChangeID()
	content, err := d.ReadTreeFile("src/api.py", "@")
	if err != nil {
		t.Fatalf("ReadTreeFile() error = %v", err)
	}
	if string(content) != "print('hi')" {
		t.Errorf("ReadTreeFile() = %q, want %q", content, "print('hi')")
	}

	files, err := d.ChangedFiles(changeID)
	if err != nil {
		t.Fatalf("ChangedFiles() error = %v", err)
	}
	if len(files) != 1 || files[0] != "src/api.py" {
		t.Errorf("ChangedFiles() = %v, want [src/api.py]", files)
	}
}

func TestSnapshotWorkingCopyRespectsMaxFileSize(t *testing.T) {
	d := New()
	d.PendingFiles["big.bin"] = "0123456789"

	snap, err := d.SnapshotWorkingCopy(vcsdriver.Ignores{MaxFileSize: 5})
	if err != nil {
		t.Fatalf("SnapshotWorkingCopy() error = %v", err)
	}
	if len(snap.ChangedPaths) != 0 {
		t.Errorf("ChangedPaths = %v, want empty (file exceeds max size)", snap.ChangedPaths)
	}
}

func TestHasConflictsAndGetConflicts(t *testing.T) {
	d := New()
	changeID, _, err := d.NewCommit(nil, "", "conflicting change")
	if err != nil {
		t.Fatal(err)
	}

	has, err := d.HasConflicts(changeID)
	if err != nil {
		t.Fatalf("HasConflicts() error = %v", err)
	}
	if has {
		t.Error("expected no conflicts before injection")
	}

	d.InjectConflict(changeID, []errs.ConflictDetail{{File: "src/api.py"}})

	has, err = d.HasConflicts(changeID)
	if err != nil {
		t.Fatalf("HasConflicts() error = %v", err)
	}
	if !has {
		t.Error("expected conflicts after injection")
	}

	conflicts, err := d.GetConflicts(changeID)
	if err != nil {
		t.Fatalf("GetConflicts() error = %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].File != "src/api.py" {
		t.Errorf("GetConflicts() = %v, want [src/api.py]", conflicts)
	}
}

func TestSetLocalBookmarkAndBranchChangeID(t *testing.T) {
	d := New()
	changeID, _, err := d.NewCommit(nil, "", "feature work")
	if err != nil {
		t.Fatal(err)
	}

	if err := d.SetLocalBookmark("feat/x", changeID); err != nil {
		t.Fatalf("SetLocalBookmark() error = %v", err)
	}

	id, ok, err := d.BranchChangeID("feat/x")
	if err != nil {
		t.Fatalf("BranchChangeID() error = %v", err)
	}
	if !ok || id != changeID {
		t.Errorf("BranchChangeID() = (%q, %v), want (%q, true)", id, ok, changeID)
	}

	_, ok, err = d.BranchChangeID("does-not-exist")
	if err != nil {
		t.Fatalf("BranchChangeID() error = %v", err)
	}
	if ok {
		t.Error("expected ok=false for a nonexistent branch")
	}
}

func TestRestoreToOperationRewindsState(t *testing.T) {
	d := New()
	opBefore, err := d.CurrentOperationID()
	if err != nil {
		t.Fatal(err)
	}

	changeID, _, err := d.NewCommit(nil, "", "change that gets rolled back")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.CurrentChangeID(); err != nil {
		t.Fatal(err)
	}

	if err := d.RestoreToOperation(opBefore); err != nil {
		t.Fatalf("RestoreToOperation() error = %v", err)
	}

	after, err := d.CurrentChangeID()
	if err != nil {
		t.Fatal(err)
	}
	if after == changeID {
		t.Error("expected working copy to roll back past the new commit")
	}

	if _, err := d.ChangedFiles(changeID); !errs.Of(err, errs.KindChangeNotFound) {
		t.Errorf("ChangedFiles() after restore error = %v, want ChangeNotFound (change pruned)", err)
	}
}

func TestOperationLogNewestFirst(t *testing.T) {
	d := New()
	if _, _, err := d.NewCommit(nil, "", "first"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := d.NewCommit(nil, "", "second"); err != nil {
		t.Fatal(err)
	}

	ops, err := d.OperationLog(0)
	if err != nil {
		t.Fatalf("OperationLog() error = %v", err)
	}
	if len(ops) < 3 {
		t.Fatalf("OperationLog() returned %d entries, want at least 3", len(ops))
	}
	if ops[0].Description != "new commit: second" {
		t.Errorf("OperationLog()[0].Description = %q, want %q", ops[0].Description, "new commit: second")
	}
}

func TestLogEntriesSkipsSyntheticRoot(t *testing.T) {
	d := New()
	if _, _, err := d.NewCommit(nil, "", "real change"); err != nil {
		t.Fatal(err)
	}

	entries, err := d.LogEntries(0, true)
	if err != nil {
		t.Fatalf("LogEntries() error = %v", err)
	}
	for _, e := range entries {
		if e.Description == "" && e.ShortChangeID[0] == 'z' {
			t.Errorf("LogEntries() leaked synthetic root entry: %+v", e)
		}
	}
}

func TestResolveRevisionAtSign(t *testing.T) {
	d := New()
	changeID, commitID, err := d.NewCommit(nil, "", "some change")
	if err != nil {
		t.Fatal(err)
	}

	parent, commit, err := d.ResolveRevision("@")
	if err != nil {
		t.Fatalf("ResolveRevision(@) error = %v", err)
	}
	if commit != commitID {
		t.Errorf("ResolveRevision(@) commit = %q, want %q", commit, commitID)
	}
	if parent == "" {
		t.Error("expected a parent commit id for a non-root change")
	}
	_ = changeID
}
