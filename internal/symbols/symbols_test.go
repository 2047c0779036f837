package symbols

import (
	"strings"
	"testing"
)

func TestLanguageFromExtension(t *testing.T) {
	cases := []struct {
		ext  string
		want Language
		ok   bool
	}{
		{"py", Python, true},
		{"rs", Rust, true},
		{"js", JavaScript, true},
		{"jsx", JavaScript, true},
		{"ts", TypeScript, true},
		{"tsx", TypeScript, true},
		{"PY", Python, true},
		{"unknown", "", false},
	}
	for _, c := range cases {
		got, ok := LanguageFromExtension(c.ext)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("LanguageFromExtension(%q) = (%q, %v), want (%q, %v)", c.ext, got, ok, c.want, c.ok)
		}
	}
}

func TestLanguageFromPath(t *testing.T) {
	got, ok := LanguageFromPath("src/webhook.py")
	if !ok || got != Python {
		t.Errorf("LanguageFromPath() = (%q, %v), want (python, true)", got, ok)
	}
	if _, ok := LanguageFromPath("README"); ok {
		t.Error("expected no language for an extensionless path")
	}
}

func TestExtractPythonFunctionsAndClasses(t *testing.T) {
	source := []byte(`
def hello(name):
    """Say hello to someone."""
    return "Hello, " + name

def goodbye(name):
    return "Goodbye, " + name

class Greeter:
    def greet(self, name):
        pass
`)
	syms, err := Extract(source, Python)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	names := map[string]bool{}
	for _, s := range syms {
		names[s.Name] = true
	}
	for _, want := range []string{"hello", "goodbye", "Greeter", "greet"} {
		if !names[want] {
			t.Errorf("Extract() missing symbol %q, got %v", want, names)
		}
	}
}

func TestExtractPythonDocstrings(t *testing.T) {
	source := []byte(`
def greet(name):
    """Say hello to someone.

    Returns a greeting string.
    """
    return name

def no_docstring():
    pass
`)
	syms, err := Extract(source, Python)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	var greet, noDoc *Symbol
	for i := range syms {
		switch syms[i].Name {
		case "greet":
			greet = &syms[i]
		case "no_docstring":
			noDoc = &syms[i]
		}
	}
	if greet == nil || greet.Docstring == "" || !strings.Contains(greet.Docstring, "Say hello") {
		t.Errorf("greet.Docstring = %q, want it to contain %q", greet, "Say hello")
	}
	if noDoc == nil || noDoc.Docstring != "" {
		t.Errorf("no_docstring.Docstring = %q, want empty", noDoc)
	}
}

func TestExtractRustItems(t *testing.T) {
	source := []byte(`
pub fn process_data(input: &str) -> String {
    input.to_uppercase()
}

struct Config {
    name: String,
}

enum Status {
    Active,
    Inactive,
}

trait Processor {
    fn process(&self);
}
`)
	syms, err := Extract(source, Rust)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	names := map[string]bool{}
	for _, s := range syms {
		names[s.Name] = true
	}
	for _, want := range []string{"process_data", "Config", "Status", "Processor"} {
		if !names[want] {
			t.Errorf("Extract() missing symbol %q, got %v", want, names)
		}
	}
}

func TestFindSpecificSymbol(t *testing.T) {
	source := []byte(`
def foo():
    pass

def bar():
    pass

def baz():
    pass
`)
	sym, ok, err := Find(source, Python, "bar")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if !ok || sym.Name != "bar" {
		t.Errorf("Find(bar) = (%+v, %v), want bar", sym, ok)
	}

	_, ok, err = Find(source, Python, "qux")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if ok {
		t.Error("Find(qux) should not match")
	}
}

func TestGetContextIncludesImports(t *testing.T) {
	source := []byte(`
import os
from typing import Optional

def process(data):
    """Process incoming data."""
    return list(data)
`)
	ctx, ok, err := GetContext(source, Python, "process")
	if err != nil {
		t.Fatalf("GetContext() error = %v", err)
	}
	if !ok {
		t.Fatal("expected to find process")
	}
	if ctx.Signature == "" || !strings.Contains(ctx.Signature, "process") {
		t.Errorf("ctx.Signature = %q, want it to contain process", ctx.Signature)
	}
	if len(ctx.ImportsNeeded) != 2 {
		t.Errorf("ctx.ImportsNeeded = %v, want 2 entries", ctx.ImportsNeeded)
	}
}

func TestIsPublicRustUsesPubKeyword(t *testing.T) {
	pub := Symbol{Signature: "pub fn process_data(input: &str) -> String {"}
	priv := Symbol{Signature: "fn internal_helper() {"}
	if !IsPublic(Rust, pub) {
		t.Error("expected pub fn to be public")
	}
	if IsPublic(Rust, priv) {
		t.Error("expected non-pub fn to be private")
	}
}

func TestIsPublicPythonUsesUnderscoreConvention(t *testing.T) {
	if !IsPublic(Python, Symbol{Name: "greet"}) {
		t.Error("expected greet to be public")
	}
	if IsPublic(Python, Symbol{Name: "_internal"}) {
		t.Error("expected _internal to be private")
	}
}

func TestIsPublicJSUsesExportConventionWithDefault(t *testing.T) {
	exported := Symbol{Signature: "export function process() {"}
	notExported := Symbol{Signature: "function helper() {"}
	noSignature := Symbol{Signature: ""}

	if !IsPublic(JavaScript, exported) {
		t.Error("expected exported function to be public")
	}
	if IsPublic(JavaScript, notExported) {
		t.Error("expected non-exported function to be private")
	}
	if !IsPublic(JavaScript, noSignature) {
		t.Error("expected a symbol with no signature to default to public")
	}
}

func TestExtractDeduplicatesByNameAndStartLine(t *testing.T) {
	source := []byte(`
def foo():
    pass
`)
	syms, err := Extract(source, Python)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	seen := map[string]int{}
	for _, s := range syms {
		key := s.Name
		seen[key]++
		if seen[key] > 1 {
			t.Errorf("symbol %q appeared more than once: %v", key, syms)
		}
	}
}
