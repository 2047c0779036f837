package changestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/taxonomy"
)

func TestNewTypedChange(t *testing.T) {
	feature := taxonomy.ChangeCategoryFeature
	c := New("qpvuntsm", taxonomy.ChangeTypeBehavioral, "Add retry logic")
	c.Category = &feature
	c.Files = []string{"src/webhook.py", "tests/test_webhook.py"}

	if c.ChangeID != "qpvuntsm" {
		t.Errorf("ChangeID = %q, want %q", c.ChangeID, "qpvuntsm")
	}
	if c.Type != taxonomy.ChangeTypeBehavioral {
		t.Errorf("Type = %q, want %q", c.Type, taxonomy.ChangeTypeBehavioral)
	}
	if c.Category == nil || *c.Category != taxonomy.ChangeCategoryFeature {
		t.Errorf("Category = %v, want feature", c.Category)
	}
	if len(c.Files) != 2 {
		t.Errorf("Files = %v, want 2 entries", c.Files)
	}
}

func TestRoundtripTOML(t *testing.T) {
	c := New("qpvuntsm", taxonomy.ChangeTypeRefactor, "Clean up imports")
	c.Files = []string{"src/api.py"}

	out, err := c.ToTOML()
	if err != nil {
		t.Fatalf("ToTOML() error = %v", err)
	}

	reparsed, err := ParseTypedChange(out)
	if err != nil {
		t.Fatalf("ParseTypedChange() error = %v", err)
	}

	if reparsed.ChangeID != c.ChangeID {
		t.Errorf("ChangeID roundtrip = %q, want %q", reparsed.ChangeID, c.ChangeID)
	}
	if reparsed.Intent != c.Intent {
		t.Errorf("Intent roundtrip = %q, want %q", reparsed.Intent, c.Intent)
	}
}

func TestParseFromTOML(t *testing.T) {
	content := `
change_id = "kkmpptqz"
type = "schema"
intent = "Add user_id field to events"
files = ["schemas/events.json", "src/models.py"]
breaking = true

[invariants]
checked = ["tests_pass", "types_check"]
status = "passed"
`
	c, err := ParseTypedChange(content)
	if err != nil {
		t.Fatalf("ParseTypedChange() error = %v", err)
	}
	if c.Type != taxonomy.ChangeTypeSchema {
		t.Errorf("Type = %q, want %q", c.Type, taxonomy.ChangeTypeSchema)
	}
	if !c.Breaking {
		t.Error("expected Breaking = true")
	}
	if c.Invariants.Status != taxonomy.InvariantStatusPassed {
		t.Errorf("Invariants.Status = %q, want %q", c.Invariants.Status, taxonomy.InvariantStatusPassed)
	}
}

func TestStoragePath(t *testing.T) {
	c := New("abc123", taxonomy.ChangeTypeDocs, "Update readme")
	if got, want := c.StoragePath(), filepath.Join(Dir, "abc123.toml"); got != want {
		t.Errorf("StoragePath() = %q, want %q", got, want)
	}
}

func TestStoreSaveLoad(t *testing.T) {
	repoRoot := t.TempDir()
	store := Open(repoRoot)

	c := New("chg1", taxonomy.ChangeTypeBehavioral, "Add retry logic")
	c.Files = []string{"a.py"}
	if err := store.Save(c); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load("chg1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Intent != c.Intent {
		t.Errorf("Load().Intent = %q, want %q", loaded.Intent, c.Intent)
	}

	if _, err := os.Stat(filepath.Join(repoRoot, Dir, "chg1.toml")); err != nil {
		t.Errorf("expected change file on disk: %v", err)
	}
}

func TestStoreLoadNotFound(t *testing.T) {
	store := Open(t.TempDir())
	_, err := store.Load("missing")
	if !errs.Of(err, errs.KindChangeNotFound) {
		t.Errorf("Load() error = %v, want ChangeNotFound", err)
	}
}

func TestStoreListEmptyDirIsNotError(t *testing.T) {
	store := Open(t.TempDir())
	changes, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("List() = %v, want empty", changes)
	}
}

func TestStoreListSortedByChangeID(t *testing.T) {
	repoRoot := t.TempDir()
	store := Open(repoRoot)

	for _, id := range []string{"zzz", "aaa", "mmm"} {
		if err := store.Save(New(id, taxonomy.ChangeTypeTest, "t")); err != nil {
			t.Fatalf("Save(%q) error = %v", id, err)
		}
	}

	changes, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("List() returned %d changes, want 3", len(changes))
	}
	want := []string{"aaa", "mmm", "zzz"}
	for i, c := range changes {
		if c.ChangeID != want[i] {
			t.Errorf("changes[%d].ChangeID = %q, want %q", i, c.ChangeID, want[i])
		}
	}
}

func TestStoreListSkipsUnparsableFiles(t *testing.T) {
	repoRoot := t.TempDir()
	store := Open(repoRoot)

	if err := store.Save(New("good", taxonomy.ChangeTypeTest, "t")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repoRoot, Dir, "bad.toml"), []byte("not [ valid"), 0o644); err != nil {
		t.Fatal(err)
	}

	changes, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(changes) != 1 || changes[0].ChangeID != "good" {
		t.Errorf("List() = %v, want only the good change", changes)
	}
}

func TestStoreByTypeAndBreaking(t *testing.T) {
	repoRoot := t.TempDir()
	store := Open(repoRoot)

	behavioral := New("c1", taxonomy.ChangeTypeBehavioral, "feature")
	behavioral.Breaking = true
	docs := New("c2", taxonomy.ChangeTypeDocs, "docs")

	if err := store.Save(behavioral); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(docs); err != nil {
		t.Fatal(err)
	}

	byType, err := store.ByType(taxonomy.ChangeTypeBehavioral)
	if err != nil {
		t.Fatalf("ByType() error = %v", err)
	}
	if len(byType) != 1 || byType[0].ChangeID != "c1" {
		t.Errorf("ByType(behavioral) = %v, want [c1]", byType)
	}

	breaking, err := store.Breaking()
	if err != nil {
		t.Fatalf("Breaking() error = %v", err)
	}
	if len(breaking) != 1 || breaking[0].ChangeID != "c1" {
		t.Errorf("Breaking() = %v, want [c1]", breaking)
	}
}

func TestStoreAffecting(t *testing.T) {
	repoRoot := t.TempDir()
	store := Open(repoRoot)

	c1 := New("c1", taxonomy.ChangeTypeBehavioral, "t")
	c1.Files = []string{"src/api.py", "src/models.py"}
	c2 := New("c2", taxonomy.ChangeTypeDocs, "t")
	c2.Files = []string{"README.md"}

	if err := store.Save(c1); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(c2); err != nil {
		t.Fatal(err)
	}

	affecting, err := store.Affecting("src/models.py")
	if err != nil {
		t.Fatalf("Affecting() error = %v", err)
	}
	if len(affecting) != 1 || affecting[0].ChangeID != "c1" {
		t.Errorf("Affecting() = %v, want [c1]", affecting)
	}
}
