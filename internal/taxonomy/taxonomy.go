// Package taxonomy holds the small closed vocabularies shared across the
// manifest, typed-change store, and intent engine: change types and
// categories, invariant triggers, and invariant outcome statuses. Each type
// implements encoding.TextMarshaler/TextUnmarshaler so it round-trips
// through both TOML (BurntSushi/toml) and JSON using the same lowercase
// wire form.
package taxonomy

import "fmt"

// ChangeType is the mandatory semantic tag on every Intent and TypedChange.
type ChangeType string

const (
	ChangeTypeBehavioral ChangeType = "behavioral"
	ChangeTypeRefactor   ChangeType = "refactor"
	ChangeTypeSchema     ChangeType = "schema"
	ChangeTypeDocs       ChangeType = "docs"
	ChangeTypeDeps       ChangeType = "deps"
	ChangeTypeConfig     ChangeType = "config"
	ChangeTypeTest       ChangeType = "test"
)

var validChangeTypes = map[ChangeType]bool{
	ChangeTypeBehavioral: true,
	ChangeTypeRefactor:   true,
	ChangeTypeSchema:     true,
	ChangeTypeDocs:       true,
	ChangeTypeDeps:       true,
	ChangeTypeConfig:     true,
	ChangeTypeTest:       true,
}

// Valid reports whether t is one of the known change types.
func (t ChangeType) Valid() bool { return validChangeTypes[t] }

func (t ChangeType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("taxonomy: invalid change type %q", string(t))
	}
	return []byte(t), nil
}

func (t *ChangeType) UnmarshalText(text []byte) error {
	v := ChangeType(text)
	if !v.Valid() {
		return fmt.Errorf("taxonomy: invalid change type %q", string(text))
	}
	*t = v
	return nil
}

// ChangeCategory is an optional, more granular classification than ChangeType.
type ChangeCategory string

const (
	ChangeCategoryFeature     ChangeCategory = "feature"
	ChangeCategoryFix         ChangeCategory = "fix"
	ChangeCategoryPerf        ChangeCategory = "perf"
	ChangeCategorySecurity    ChangeCategory = "security"
	ChangeCategoryBreaking    ChangeCategory = "breaking"
	ChangeCategoryDeprecation ChangeCategory = "deprecation"
	ChangeCategoryChore       ChangeCategory = "chore"
)

var validChangeCategories = map[ChangeCategory]bool{
	ChangeCategoryFeature:     true,
	ChangeCategoryFix:         true,
	ChangeCategoryPerf:        true,
	ChangeCategorySecurity:    true,
	ChangeCategoryBreaking:    true,
	ChangeCategoryDeprecation: true,
	ChangeCategoryChore:       true,
}

// Valid reports whether c is one of the known change categories.
func (c ChangeCategory) Valid() bool { return validChangeCategories[c] }

func (c ChangeCategory) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("taxonomy: invalid change category %q", string(c))
	}
	return []byte(c), nil
}

func (c *ChangeCategory) UnmarshalText(text []byte) error {
	v := ChangeCategory(text)
	if !v.Valid() {
		return fmt.Errorf("taxonomy: invalid change category %q", string(text))
	}
	*c = v
	return nil
}

// InvariantTrigger names a point in the workflow at which an invariant may
// run. An invariant with no declared triggers runs on all of them.
type InvariantTrigger string

const (
	TriggerPreCommit InvariantTrigger = "pre-commit"
	TriggerPrePush   InvariantTrigger = "pre-push"
	TriggerPR        InvariantTrigger = "pr"
	TriggerAlways    InvariantTrigger = "always"
)

var validTriggers = map[InvariantTrigger]bool{
	TriggerPreCommit: true,
	TriggerPrePush:   true,
	TriggerPR:        true,
	TriggerAlways:    true,
}

// Valid reports whether t is one of the known invariant triggers.
func (t InvariantTrigger) Valid() bool { return validTriggers[t] }

func (t InvariantTrigger) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("taxonomy: invalid invariant trigger %q", string(t))
	}
	return []byte(t), nil
}

func (t *InvariantTrigger) UnmarshalText(text []byte) error {
	v := InvariantTrigger(text)
	if !v.Valid() {
		return fmt.Errorf("taxonomy: invalid invariant trigger %q", string(text))
	}
	*t = v
	return nil
}

// MatchesTrigger reports whether an invariant whose declared trigger set is
// triggers should run for the given point in the workflow. An empty set
// matches everything, mirroring TriggerAlways.
func MatchesTrigger(triggers []InvariantTrigger, at InvariantTrigger) bool {
	if len(triggers) == 0 {
		return true
	}
	for _, t := range triggers {
		if t == at || t == TriggerAlways {
			return true
		}
	}
	return false
}

// InvariantStatus is the outcome of running (or not running) a single
// invariant as part of a typed change's recorded history.
type InvariantStatus string

const (
	InvariantStatusUnknown InvariantStatus = "unknown"
	InvariantStatusPassed  InvariantStatus = "passed"
	InvariantStatusFailed  InvariantStatus = "failed"
	InvariantStatusSkipped InvariantStatus = "skipped"
)

var validInvariantStatuses = map[InvariantStatus]bool{
	InvariantStatusUnknown: true,
	InvariantStatusPassed:  true,
	InvariantStatusFailed:  true,
	InvariantStatusSkipped: true,
}

// Valid reports whether s is one of the known invariant statuses.
func (s InvariantStatus) Valid() bool { return validInvariantStatuses[s] }

func (s InvariantStatus) MarshalText() ([]byte, error) {
	if s == "" {
		return []byte(InvariantStatusUnknown), nil
	}
	if !s.Valid() {
		return nil, fmt.Errorf("taxonomy: invalid invariant status %q", string(s))
	}
	return []byte(s), nil
}

func (s *InvariantStatus) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = InvariantStatusUnknown
		return nil
	}
	v := InvariantStatus(text)
	if !v.Valid() {
		return fmt.Errorf("taxonomy: invalid invariant status %q", string(text))
	}
	*s = v
	return nil
}
