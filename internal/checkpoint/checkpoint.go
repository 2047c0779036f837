// Package checkpoint persists named recovery points — VCS change id,
// operation id, and timestamp — as individual JSON files under
// .agent/checkpoints/. Timestamps are computed from a unix time directly via
// Howard Hinnant's civil-calendar arithmetic rather than a date library, per
// the engine's minimal-dependency timestamp contract; everything else in
// this module still reaches for the corpus's libraries where one applies.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agentjj/jjx/internal/errs"
)

func currentUnixSeconds() int64 { return time.Now().Unix() }

// Dir is the directory, relative to a repo root, holding checkpoint records.
const Dir = ".agent/checkpoints"

// Checkpoint is a named recovery point.
type Checkpoint struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	ChangeID    string  `json:"change_id"`
	OperationID string  `json:"operation_id"`
	Timestamp   string  `json:"timestamp"`
}

// StoragePath returns the record's path relative to a repo root.
func (c *Checkpoint) StoragePath() string {
	return filepath.Join(Dir, c.Name+".json")
}

// Store provides create/list/resolve access to checkpoints in a single repo.
type Store struct {
	repoRoot string
	now      func() int64 // unix seconds; overridable in tests
}

// Open returns a Store rooted at repoRoot using the real wall clock.
func Open(repoRoot string) *Store {
	return &Store{repoRoot: repoRoot, now: currentUnixSeconds}
}

// Create writes a new checkpoint named name, stamped with the current UTC
// time to second precision. description may be empty.
func (s *Store) Create(name, description, changeID, operationID string) (*Checkpoint, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.Repository("checkpoint name must not be empty")
	}

	c := &Checkpoint{
		Name:        name,
		ChangeID:    changeID,
		OperationID: operationID,
		Timestamp:   FormatUnixUTC(s.now()),
	}
	if description != "" {
		c.Description = &description
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, errs.Repository("marshal checkpoint: %s", err)
	}

	path := filepath.Join(s.repoRoot, c.StoragePath())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.IO(err)
	}
	if err := atomicWrite(path, data); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads a single checkpoint by name.
func (s *Store) Load(name string) (*Checkpoint, error) {
	path := filepath.Join(s.repoRoot, Dir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Repository("checkpoint %q not found", name)
		}
		return nil, errs.IO(err)
	}
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errs.Repository("parse checkpoint %q: %s", name, err)
	}
	return &c, nil
}

// List returns every checkpoint, sorted descending by timestamp. ISO-8601
// UTC timestamps to second precision sort correctly as plain strings, so no
// time parsing is needed to order them.
func (s *Store) List() ([]*Checkpoint, error) {
	dir := filepath.Join(s.repoRoot, Dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.IO(err)
	}

	var out []*Checkpoint
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var c Checkpoint
		if err := json.Unmarshal(data, &c); err != nil {
			continue
		}
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// atomicWrite writes data to a temp file and renames it into place.
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

const secondsPerDay = 86400

// FormatUnixUTC renders a unix timestamp as an ISO-8601 UTC string to second
// precision, e.g. "2024-01-15T10:30:00Z".
func FormatUnixUTC(unixSeconds int64) string {
	days := floorDiv(unixSeconds, secondsPerDay)
	secOfDay := floorMod(unixSeconds, secondsPerDay)

	y, m, d := civilFromDays(days)
	h := secOfDay / 3600
	min := (secOfDay % 3600) / 60
	sec := secOfDay % 60

	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02dZ", y, m, d, h, min, sec)
}

// civilFromDays converts a day count since the Unix epoch (1970-01-01) into
// a (year, month, day) civil date, using Howard Hinnant's algorithm:
// http://howardhinnant.github.io/date_algorithms.html#civil_from_days
func civilFromDays(z int64) (year int, month int, day int) {
	z += 719468
	era := floorDiv(z, 146097)
	doe := z - era*146097                                   // [0, 146096]
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365   // [0, 399]
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)                 // [0, 365]
	mp := (5*doy + 2) / 153                                  // [0, 11]
	d := doy - (153*mp+2)/5 + 1                              // [1, 31]
	m := mp + 3
	if mp >= 10 {
		m = mp - 9
	}
	if m <= 2 {
		y++
	}
	return int(y), int(m), int(d)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
