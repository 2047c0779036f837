package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/taxonomy"
)

const sampleManifest = `
[repo]
name = "payment-service"
description = "Handles payment processing"
languages = ["python"]

[entry_points]
cli = "src/cli.py:main"
api = "src/api.py:app"
tests = "pytest tests/"

[interfaces]
api_schema = "openapi.yaml"
events_schema = "schemas/events.json"

[invariants]
tests_pass = { cmd = "pytest -q", on = ["pre-push", "pr"] }
types_check = { cmd = "mypy src/", on = ["pre-push"] }
no_secrets = "! grep -r 'API_KEY=' src/"

[permissions]
allow_change = ["src/**", "tests/**"]
deny_change = [".agent/*", "migrations/*"]
allow_push = ["feat/*", "fix/*"]
deny_push = ["main", "release/*"]

[branches]
trunk = "main"
protected = ["main", "release/*"]

[review]
require_human = ["src/billing/*", "migrations/*"]
`

func TestParseCompleteManifest(t *testing.T) {
	m, err := Parse(sampleManifest)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if m.Repo.Name != "payment-service" {
		t.Errorf("Repo.Name = %q, want %q", m.Repo.Name, "payment-service")
	}
	if len(m.Repo.Languages) != 1 || m.Repo.Languages[0] != "python" {
		t.Errorf("Repo.Languages = %v, want [python]", m.Repo.Languages)
	}
	if m.EntryPoints["cli"] != "src/cli.py:main" {
		t.Errorf("EntryPoints[cli] = %q, want %q", m.EntryPoints["cli"], "src/cli.py:main")
	}
	if _, ok := m.Invariants["tests_pass"]; !ok {
		t.Error("expected tests_pass invariant to be present")
	}
}

func TestPermissionsAllowDeny(t *testing.T) {
	m, err := Parse(sampleManifest)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !m.Permissions.CanChange("src/api.py") {
		t.Error("expected src/api.py to be allowed")
	}
	if !m.Permissions.CanChange("tests/test_api.py") {
		t.Error("expected tests/test_api.py to be allowed")
	}
	if m.Permissions.CanChange(".agent/manifest.toml") {
		t.Error("expected .agent/manifest.toml to be denied")
	}
	if m.Permissions.CanChange("migrations/001.sql") {
		t.Error("expected migrations/001.sql to be denied")
	}
}

func TestBranchPermissions(t *testing.T) {
	m, err := Parse(sampleManifest)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !m.Permissions.CanPush("feat/add-retry") {
		t.Error("expected feat/add-retry to be pushable")
	}
	if !m.Permissions.CanPush("fix/bug-123") {
		t.Error("expected fix/bug-123 to be pushable")
	}
	if m.Permissions.CanPush("main") {
		t.Error("expected main to be denied")
	}
	if m.Permissions.CanPush("release/v1.0") {
		t.Error("expected release/v1.0 to be denied")
	}
}

func TestInvariantTriggers(t *testing.T) {
	m, err := Parse(sampleManifest)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	prePush := m.InvariantsFor(taxonomy.TriggerPrePush)
	names := map[string]bool{}
	for _, e := range prePush {
		names[e.Name] = true
	}

	if !names["tests_pass"] {
		t.Error("expected tests_pass to run on pre-push")
	}
	if !names["types_check"] {
		t.Error("expected types_check to run on pre-push")
	}
	// no_secrets has no triggers, so it runs always
	if !names["no_secrets"] {
		t.Error("expected no_secrets (no declared triggers) to run on pre-push too")
	}
}

func TestHumanReviewRequired(t *testing.T) {
	m, err := Parse(sampleManifest)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !m.RequiresHumanReview("src/billing/processor.py") {
		t.Error("expected src/billing/processor.py to require review")
	}
	if !m.RequiresHumanReview("migrations/002.sql") {
		t.Error("expected migrations/002.sql to require review")
	}
	if m.RequiresHumanReview("src/api.py") {
		t.Error("expected src/api.py not to require review")
	}
}

func TestRoundtripTOML(t *testing.T) {
	original, err := Parse(sampleManifest)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	out, err := original.ToTOML()
	if err != nil {
		t.Fatalf("ToTOML() error = %v", err)
	}

	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse(reserialized) error = %v", err)
	}

	if original.Repo.Name != reparsed.Repo.Name {
		t.Errorf("Repo.Name roundtrip = %q, want %q", reparsed.Repo.Name, original.Repo.Name)
	}
	if len(original.Permissions.AllowChange) != len(reparsed.Permissions.AllowChange) {
		t.Errorf("Permissions.AllowChange roundtrip length mismatch: %v vs %v",
			original.Permissions.AllowChange, reparsed.Permissions.AllowChange)
	}
}

func TestMinimalManifest(t *testing.T) {
	m, err := Parse("[repo]\nname = \"tiny\"\n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if m.Repo.Name != "tiny" {
		t.Errorf("Repo.Name = %q, want %q", m.Repo.Name, "tiny")
	}
	if m.Branches.Trunk != "main" {
		t.Errorf("Branches.Trunk = %q, want default %q", m.Branches.Trunk, "main")
	}
	if len(m.Invariants) != 0 {
		t.Errorf("expected no invariants, got %v", m.Invariants)
	}
}

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"**", "anything/at/all", true},
		{"src/**", "src/api.py", true},
		{"src/**", "tests/api.py", false},
		{"feat/*", "feat/add-retry", true},
		{"feat/*", "fix/add-retry", false},
		{"*.toml", "manifest.toml", true},
		{"*.toml", "manifest.yaml", false},
		{"main", "main", true},
		{"main", "mainline", false},
	}
	for _, c := range cases {
		if got := GlobMatch(c.pattern, c.path); got != c.want {
			t.Errorf("GlobMatch(%q, %q) = %v, want %v", c.pattern, c.path, got, c.want)
		}
	}
}

func TestLoadManifestNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errs.Of(err, errs.KindManifestNotFound) {
		t.Errorf("Load() error = %v, want ManifestNotFound", err)
	}
}

func TestLoadManifestParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.toml")
	if err := os.WriteFile(path, []byte("this is not [ valid toml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errs.Of(err, errs.KindManifestParse) {
		t.Errorf("Load() error = %v, want ManifestParse", err)
	}
}

func TestLoadFromRepo(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".agent"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, DefaultPath), []byte(sampleManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadFromRepo(dir)
	if err != nil {
		t.Fatalf("LoadFromRepo() error = %v", err)
	}
	if m.Repo.Name != "payment-service" {
		t.Errorf("Repo.Name = %q, want %q", m.Repo.Name, "payment-service")
	}
}

func TestInvariantUnmarshalRejectsBadTrigger(t *testing.T) {
	_, err := Parse("[repo]\nname = \"x\"\n[invariants]\nbad = { cmd = \"true\", on = [\"nightly\"] }\n")
	if err == nil {
		t.Fatal("expected an error for an unknown invariant trigger")
	}
}
