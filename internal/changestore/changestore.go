// Package changestore persists typed-change metadata — the semantic record
// the intent engine writes after a successful commit — as one self-describing
// TOML file per VCS change id under .agent/changes/. Writes are atomic
// whole-file replacements, following the teacher's FileStorage.atomicWrite
// idiom, adapted here for a single-file-per-record layout instead of
// per-session files.
package changestore

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/agentjj/jjx/internal/errs"
	"github.com/agentjj/jjx/internal/taxonomy"
)

// Dir is the directory, relative to a repo root, holding typed-change records.
const Dir = ".agent/changes"

// InvariantsResult records which invariants ran against a change and their
// overall and per-invariant outcomes.
type InvariantsResult struct {
	Checked []string                            `toml:"checked" json:"checked,omitempty"`
	Status  taxonomy.InvariantStatus            `toml:"status" json:"status"`
	Details map[string]taxonomy.InvariantStatus `toml:"details,omitempty" json:"details,omitempty"`
}

// TypedChange is the per-change metadata record, keyed by its stable VCS
// change id (survives rebase, unlike the commit id).
type TypedChange struct {
	ChangeID            string                   `toml:"change_id" json:"change_id"`
	Type                taxonomy.ChangeType      `toml:"type" json:"type"`
	Category            *taxonomy.ChangeCategory `toml:"category,omitempty" json:"category,omitempty"`
	Intent              string                   `toml:"intent" json:"intent"`
	Files               []string                 `toml:"files" json:"files"`
	Breaking            bool                     `toml:"breaking" json:"breaking"`
	DependenciesAdded   []string                 `toml:"dependencies_added,omitempty" json:"dependencies_added,omitempty"`
	DependenciesRemoved []string                 `toml:"dependencies_removed,omitempty" json:"dependencies_removed,omitempty"`
	Invariants          InvariantsResult         `toml:"invariants" json:"invariants"`
	Metadata            map[string]string        `toml:"metadata,omitempty" json:"metadata,omitempty"`
}

// New builds a minimal TypedChange ready for further field assignment.
func New(changeID string, changeType taxonomy.ChangeType, intent string) *TypedChange {
	return &TypedChange{
		ChangeID: changeID,
		Type:     changeType,
		Intent:   intent,
		Invariants: InvariantsResult{
			Status: taxonomy.InvariantStatusUnknown,
		},
	}
}

// StoragePath returns the record's path relative to a repo root.
func (c *TypedChange) StoragePath() string {
	return filepath.Join(Dir, c.ChangeID+".toml")
}

// ParseTypedChange parses a typed-change record from TOML content.
func ParseTypedChange(content string) (*TypedChange, error) {
	var c TypedChange
	if _, err := toml.Decode(content, &c); err != nil {
		return nil, toParseError(err)
	}
	return &c, nil
}

func toParseError(err error) error {
	var pe toml.ParseError
	if errors.As(err, &pe) {
		line := pe.Position.Line
		return errs.ManifestParse(pe.Message, &line)
	}
	return errs.ManifestParse(err.Error(), nil)
}

// ToTOML serializes the record to TOML text.
func (c *TypedChange) ToTOML() (string, error) {
	var sb strings.Builder
	enc := toml.NewEncoder(&sb)
	if err := enc.Encode(c); err != nil {
		return "", errs.ManifestParse(err.Error(), nil)
	}
	return sb.String(), nil
}

// Store provides load/save/list/filter access to the typed-change records
// rooted at a single repository.
type Store struct {
	repoRoot string
}

// Open returns a Store rooted at repoRoot. No I/O happens until a method is
// called, so an uninitialized .agent/changes directory is not an error.
func Open(repoRoot string) *Store {
	return &Store{repoRoot: repoRoot}
}

func (s *Store) pathFor(changeID string) string {
	return filepath.Join(s.repoRoot, Dir, changeID+".toml")
}

// Save atomically writes c to its conventional path, creating the changes
// directory if needed.
func (s *Store) Save(c *TypedChange) error {
	content, err := c.ToTOML()
	if err != nil {
		return err
	}
	path := s.pathFor(c.ChangeID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.IO(err)
	}
	return atomicWrite(path, []byte(content))
}

// Load reads the typed change with the given id.
func (s *Store) Load(changeID string) (*TypedChange, error) {
	path := s.pathFor(changeID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ChangeNotFound(changeID)
		}
		return nil, errs.IO(err)
	}
	return ParseTypedChange(string(data))
}

// List returns every typed change under .agent/changes, sorted by change id.
// A missing directory yields an empty list, not an error. Records that fail
// to parse are skipped rather than aborting the listing, matching the
// original implementation's load_from_repo tolerance for partial corruption.
func (s *Store) List() ([]*TypedChange, error) {
	dir := filepath.Join(s.repoRoot, Dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.IO(err)
	}

	var out []*TypedChange
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".toml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		c, err := ParseTypedChange(string(data))
		if err != nil {
			continue
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ChangeID < out[j].ChangeID })
	return out, nil
}

// ByType filters List() results by change type.
func (s *Store) ByType(t taxonomy.ChangeType) ([]*TypedChange, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []*TypedChange
	for _, c := range all {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out, nil
}

// Breaking filters List() results to changes marked breaking.
func (s *Store) Breaking() ([]*TypedChange, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []*TypedChange
	for _, c := range all {
		if c.Breaking {
			out = append(out, c)
		}
	}
	return out, nil
}

// Affecting returns every typed change whose Files list contains path,
// supporting the `jjx affected <path>` impact query.
func (s *Store) Affecting(path string) ([]*TypedChange, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []*TypedChange
	for _, c := range all {
		for _, f := range c.Files {
			if f == path {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

// atomicWrite writes data to a temp file in the same directory and renames
// it into place, so a crash mid-write never leaves a partially-written
// record behind.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return errs.IO(err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errs.IO(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errs.IO(err)
	}
	if err := tmp.Close(); err != nil {
		return errs.IO(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errs.IO(err)
	}
	success = true
	return nil
}
