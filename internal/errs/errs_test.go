package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	line := 12
	cases := []struct {
		name string
		err  *Error
		want string
	}{
		{"manifest not found", ManifestNotFound(".agent/manifest.toml"), "manifest not found at .agent/manifest.toml"},
		{"manifest parse with line", ManifestParse("unexpected key", &line), "manifest parse error at line 12: unexpected key"},
		{"manifest parse without line", ManifestParse("bad toml", nil), "manifest parse error: bad toml"},
		{"precondition failed", PreconditionFailed("main has advanced", "abc123", "def456"), "precondition failed: main has advanced"},
		{"conflict", Conflict(2, nil, "op123"), "conflict in 2 files"},
		{"invariant failed", InvariantFailed("tests_pass", "pytest -q", 1, "", ""), "invariant \"tests_pass\" failed (command: `pytest -q`, exit code: 1)"},
		{"permission denied", PermissionDenied("change", "migrations/001.sql"), "permission denied: change on migrations/001.sql"},
		{"change not found", ChangeNotFound("chg-1"), "change chg-1 not found"},
		{"repository", Repository("jj op log failed: %s", "timeout"), "repository error: jj op log failed: timeout"},
		{"io", IO(fmt.Errorf("permission denied")), "io error: permission denied"},
		{"no repository", NoRepository("/home/x/proj"), "not a jj repository (or any parent): /home/x/proj"},
		{"not found with revision", NotFound("src/gone.py", "abc123"), "src/gone.py not found at revision abc123"},
		{"not found without revision", NotFound("src/gone.py", ""), "src/gone.py not found"},
		{"path not found", PathNotFound("src/missing.py"), `path "src/missing.py" does not exist in the snapshot`},
		{"no changes in paths", NoChangesInPaths(), "no changes in the requested paths"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.err.Error(); got != c.want {
				t.Errorf("Error() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestIsMatchesOnKindOnly(t *testing.T) {
	err := PreconditionFailed("main has advanced", "abc123", "def456")

	if !errors.Is(err, PreconditionFailed("", "", "")) {
		t.Error("errors.Is should match on Kind regardless of detail fields")
	}
	if errors.Is(err, ManifestNotFound("")) {
		t.Error("errors.Is should not match across different Kinds")
	}
}

func TestOf(t *testing.T) {
	err := Conflict(3, nil, "op1")
	wrapped := fmt.Errorf("apply failed: %w", err)

	if !Of(wrapped, KindConflict) {
		t.Error("Of should see through fmt.Errorf wrapping via errors.As")
	}
	if Of(wrapped, KindRepository) {
		t.Error("Of should not match a different Kind")
	}
	if Of(errors.New("plain error"), KindConflict) {
		t.Error("Of should return false for a non-*Error")
	}
}

func TestConflictSerializesDetails(t *testing.T) {
	base := "fn original()"
	err := Conflict(1, []ConflictDetail{
		{File: "src/api.py", Ours: "fn a()", Theirs: "fn b()", Base: &base},
	}, "op123")

	data, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatalf("Marshal() error = %v", jerr)
	}
	s := string(data)
	for _, want := range []string{`"type":"conflict"`, "src/api.py", "op123"} {
		if !strings.Contains(s, want) {
			t.Errorf("Marshal() = %s, want it to contain %q", s, want)
		}
	}
}

func TestManifestNotFoundOmitsUnusedFields(t *testing.T) {
	err := ManifestNotFound(".agent/manifest.toml")

	data, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatalf("Marshal() error = %v", jerr)
	}
	s := string(data)
	if strings.Contains(s, "file_count") || strings.Contains(s, "exit_code") {
		t.Errorf("Marshal() = %s, want unrelated fields omitted", s)
	}
	if !strings.Contains(s, `"type":"manifest_not_found"`) {
		t.Errorf("Marshal() = %s, want manifest_not_found tag", s)
	}
}

func TestIOOfNilIsNil(t *testing.T) {
	if err := IO(nil); err != nil {
		t.Errorf("IO(nil) = %v, want nil", err)
	}
}
