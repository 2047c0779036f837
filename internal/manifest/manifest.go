// Package manifest parses and evaluates a repository's .agent/manifest.toml
// policy: what an intent is allowed to touch, which invariants gate which
// workflow points, and which paths require a human in the loop before merge.
// The manifest is read on every transactional action and never mutated by
// the engine itself.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/taxonomy"
)

// DefaultPath is where a manifest is conventionally stored within a repo root.
const DefaultPath = ".agent/manifest.toml"

// Manifest is the root policy structure for a repository.
type Manifest struct {
	Repo        RepoInfo             `toml:"repo"`
	EntryPoints map[string]string    `toml:"entry_points"`
	Interfaces  map[string]string    `toml:"interfaces"`
	Invariants  map[string]Invariant `toml:"invariants"`
	Permissions Permissions          `toml:"permissions"`
	Branches    BranchConfig         `toml:"branches"`
	Review      ReviewConfig         `toml:"review"`
}

// RepoInfo describes the repository itself.
type RepoInfo struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Languages   []string `toml:"languages"`
	VCS         string   `toml:"vcs"`
}

// Invariant is either a bare command string or a command with an explicit
// trigger set. Both forms parse into the same struct; On is empty for the
// simple form, meaning "run on every trigger".
type Invariant struct {
	Cmd string                      `toml:"cmd"`
	On  []taxonomy.InvariantTrigger `toml:"on,omitempty"`
}

// Command returns the invariant's shell command.
func (inv Invariant) Command() string { return inv.Cmd }

// Triggers returns the invariant's declared trigger set (possibly empty).
func (inv Invariant) Triggers() []taxonomy.InvariantTrigger { return inv.On }

// ShouldRunOn reports whether this invariant runs at the given workflow point.
func (inv Invariant) ShouldRunOn(trigger taxonomy.InvariantTrigger) bool {
	return taxonomy.MatchesTrigger(inv.On, trigger)
}

// UnmarshalTOML accepts either a bare string or a {cmd, on} table. It is
// BurntSushi/toml's Unmarshaler hook and switches on the decoded value's type.
func (inv *Invariant) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		inv.Cmd = v
		inv.On = nil
		return nil
	case map[string]interface{}:
		cmd, _ := v["cmd"].(string)
		if cmd == "" {
			return fmt.Errorf("invariant table missing required \"cmd\" field")
		}
		inv.Cmd = cmd
		inv.On = nil
		if onRaw, ok := v["on"]; ok {
			items, ok := onRaw.([]interface{})
			if !ok {
				return fmt.Errorf("invariant \"on\" field must be an array of strings")
			}
			for _, item := range items {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("invariant \"on\" entries must be strings")
				}
				trig := taxonomy.InvariantTrigger(s)
				if !trig.Valid() {
					return fmt.Errorf("invariant trigger %q is not one of pre-commit, pre-push, pr, always", s)
				}
				inv.On = append(inv.On, trig)
			}
		}
		return nil
	default:
		return fmt.Errorf("invariant must be a string or a table, got %T", data)
	}
}

// Permissions governs which paths an intent may change and which branches it
// may push to, via allow/deny glob lists. Deny always wins over allow; an
// empty allow list means "allow everything not denied".
type Permissions struct {
	AllowChange []string `toml:"allow_change"`
	DenyChange  []string `toml:"deny_change"`
	AllowPush   []string `toml:"allow_push"`
	DenyPush    []string `toml:"deny_push"`
}

// CanChange reports whether path may be modified under this policy.
func (p Permissions) CanChange(path string) bool {
	if matchesAny(path, p.DenyChange) {
		return false
	}
	if len(p.AllowChange) == 0 {
		return true
	}
	return matchesAny(path, p.AllowChange)
}

// CanPush reports whether branch may be pushed to under this policy.
func (p Permissions) CanPush(branch string) bool {
	if matchesAny(branch, p.DenyPush) {
		return false
	}
	if len(p.AllowPush) == 0 {
		return true
	}
	return matchesAny(branch, p.AllowPush)
}

func matchesAny(path string, patterns []string) bool {
	for _, p := range patterns {
		if GlobMatch(p, path) {
			return true
		}
	}
	return false
}

// GlobMatch implements the manifest's bespoke glob grammar, which is
// deliberately narrower than path/filepath.Match:
//   - "**" matches anything.
//   - a pattern containing "**" is treated as a prefix match: a trailing
//     "/**" or "**" is stripped and the remainder must prefix path. A "**"
//     anywhere else stays in the prefix as literal text.
//   - a pattern containing exactly one "*" (i.e. splitting into exactly two
//     parts) matches when path starts with the first part and ends with the
//     second.
//   - anything else requires exact equality.
func GlobMatch(pattern, path string) bool {
	if pattern == "**" {
		return true
	}
	if strings.Contains(pattern, "**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		prefix = strings.TrimSuffix(prefix, "**")
		return strings.HasPrefix(path, prefix)
	}
	if strings.Contains(pattern, "*") {
		parts := strings.Split(pattern, "*")
		if len(parts) == 2 {
			return strings.HasPrefix(path, parts[0]) && strings.HasSuffix(path, parts[1])
		}
	}
	return pattern == path
}

// BranchConfig names the trunk branch and any branches protected from direct
// pushes regardless of Permissions.
type BranchConfig struct {
	Trunk     string   `toml:"trunk"`
	Protected []string `toml:"protected"`
}

// ReviewConfig lists path globs that require a human to sign off before merge.
type ReviewConfig struct {
	RequireHuman []string `toml:"require_human"`
}

func defaultManifest() Manifest {
	return Manifest{
		Repo:        RepoInfo{VCS: "jj"},
		Branches:    BranchConfig{Trunk: "main"},
		EntryPoints: map[string]string{},
		Interfaces:  map[string]string{},
		Invariants:  map[string]Invariant{},
	}
}

// Parse parses manifest TOML content.
func Parse(content string) (*Manifest, error) {
	m := defaultManifest()
	if _, err := toml.Decode(content, &m); err != nil {
		return nil, toParseError(err)
	}
	if m.Branches.Trunk == "" {
		m.Branches.Trunk = "main"
	}
	if m.Repo.VCS == "" {
		m.Repo.VCS = "jj"
	}
	return &m, nil
}

// toParseError classifies a toml decode failure as errs.ManifestParse,
// attributing a line number when the underlying parser reports one.
func toParseError(err error) error {
	var pe toml.ParseError
	if errors.As(err, &pe) {
		line := pe.Position.Line
		return errs.ManifestParse(pe.Message, &line)
	}
	return errs.ManifestParse(err.Error(), nil)
}

// Load reads and parses a manifest from an explicit file path.
func Load(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ManifestNotFound(path)
		}
		return nil, errs.IO(err)
	}
	return Parse(string(content))
}

// LoadFromRepo loads the manifest at <repoRoot>/.agent/manifest.toml.
func LoadFromRepo(repoRoot string) (*Manifest, error) {
	return Load(filepath.Join(repoRoot, DefaultPath))
}

// ToTOML serializes the manifest back to TOML text.
func (m *Manifest) ToTOML() (string, error) {
	var sb strings.Builder
	enc := toml.NewEncoder(&sb)
	if err := enc.Encode(m); err != nil {
		return "", errs.ManifestParse(err.Error(), nil)
	}
	return sb.String(), nil
}

// RequiresHumanReview reports whether path matches the review policy.
func (m *Manifest) RequiresHumanReview(path string) bool {
	for _, p := range m.Review.RequireHuman {
		if GlobMatch(p, path) {
			return true
		}
	}
	return false
}

// InvariantEntry pairs an invariant's declared name with its definition, for
// callers that need both (e.g. to report which invariant failed).
type InvariantEntry struct {
	Name      string
	Invariant Invariant
}

// InvariantsFor returns every invariant that should run at the given trigger,
// in a stable order (sorted by name) so output is deterministic.
func (m *Manifest) InvariantsFor(trigger taxonomy.InvariantTrigger) []InvariantEntry {
	var out []InvariantEntry
	for name, inv := range m.Invariants {
		if inv.ShouldRunOn(trigger) {
			out = append(out, InvariantEntry{Name: name, Invariant: inv})
		}
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []InvariantEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Name < entries[j-1].Name; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}
