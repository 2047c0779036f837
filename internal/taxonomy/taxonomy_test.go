package taxonomy

import "testing"

func TestChangeTypeValid(t *testing.T) {
	if !ChangeTypeBehavioral.Valid() {
		t.Error("behavioral should be a valid change type")
	}
	if ChangeType("bogus").Valid() {
		t.Error("bogus should not be a valid change type")
	}
}

func TestChangeTypeTextRoundtrip(t *testing.T) {
	text, err := ChangeTypeSchema.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "schema" {
		t.Errorf("MarshalText() = %q, want %q", text, "schema")
	}

	var got ChangeType
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if got != ChangeTypeSchema {
		t.Errorf("UnmarshalText() = %q, want %q", got, ChangeTypeSchema)
	}
}

func TestChangeTypeUnmarshalRejectsUnknown(t *testing.T) {
	var ct ChangeType
	if err := ct.UnmarshalText([]byte("nonsense")); err == nil {
		t.Error("UnmarshalText() expected error for unknown change type")
	}
}

func TestChangeCategoryValid(t *testing.T) {
	if !ChangeCategoryBreaking.Valid() {
		t.Error("breaking should be a valid change category")
	}
	if ChangeCategory("nope").Valid() {
		t.Error("nope should not be a valid change category")
	}
}

func TestMatchesTriggerEmptySetMatchesAll(t *testing.T) {
	if !MatchesTrigger(nil, TriggerPrePush) {
		t.Error("an invariant with no declared triggers should run on every trigger")
	}
	if !MatchesTrigger([]InvariantTrigger{}, TriggerPR) {
		t.Error("an empty (non-nil) trigger set should also match everything")
	}
}

func TestMatchesTriggerExplicitSet(t *testing.T) {
	triggers := []InvariantTrigger{TriggerPrePush, TriggerPR}

	if !MatchesTrigger(triggers, TriggerPrePush) {
		t.Error("expected pre-push to match")
	}
	if !MatchesTrigger(triggers, TriggerPR) {
		t.Error("expected pr to match")
	}
	if MatchesTrigger(triggers, TriggerPreCommit) {
		t.Error("expected pre-commit not to match an explicit {pre-push, pr} set")
	}
}

func TestMatchesTriggerAlwaysInSetMatchesEverything(t *testing.T) {
	triggers := []InvariantTrigger{TriggerAlways}

	for _, at := range []InvariantTrigger{TriggerPreCommit, TriggerPrePush, TriggerPR, TriggerAlways} {
		if !MatchesTrigger(triggers, at) {
			t.Errorf("a set containing always should match %q", at)
		}
	}
}

func TestInvariantStatusDefaultsToUnknown(t *testing.T) {
	var s InvariantStatus
	text, err := s.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "unknown" {
		t.Errorf("MarshalText() on zero value = %q, want %q", text, "unknown")
	}

	var got InvariantStatus
	if err := got.UnmarshalText(nil); err != nil {
		t.Fatalf("UnmarshalText(nil) error = %v", err)
	}
	if got != InvariantStatusUnknown {
		t.Errorf("UnmarshalText(nil) = %q, want %q", got, InvariantStatusUnknown)
	}
}

func TestInvariantTriggerTextRoundtrip(t *testing.T) {
	for _, trig := range []InvariantTrigger{TriggerPreCommit, TriggerPrePush, TriggerPR, TriggerAlways} {
		text, err := trig.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%q) error = %v", trig, err)
		}
		var got InvariantTrigger
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", text, err)
		}
		if got != trig {
			t.Errorf("roundtrip(%q) = %q", trig, got)
		}
	}
}
