package pyast

import (
	"strings"
	"testing"

	"docmaint/internal/model"
)

const sample = `"""Module docstring."""
import os


class Foo:
    """Foo class docstring."""

    def bar(self, x: int) -> str:
        """Bar method docstring."""
        return str(x)

    def baz(self):
        return 1


def top(a, b=":"):
    return a + b
`

func TestResolveExactMatchFunction(t *testing.T) {
	m := Parse(sample)
	lines := strings.Split(sample, "\n")
	barLine := 0
	for i, l := range lines {
		if strings.Contains(l, "def bar(") {
			barLine = i + 1
		}
	}
	target := m.Resolve(barLine)
	if target.Kind != model.SymbolFunction {
		t.Fatalf("Kind = %v, want SymbolFunction", target.Kind)
	}
	if !target.HasDocstring {
		t.Error("HasDocstring should be true for bar")
	}
	if !strings.Contains(target.ExistingDoc, "Bar method docstring") {
		t.Errorf("ExistingDoc = %q", target.ExistingDoc)
	}
}

func TestResolveInnermostClassMethodWithoutDocstring(t *testing.T) {
	m := Parse(sample)
	lines := strings.Split(sample, "\n")
	bazBodyLine := 0
	for i, l := range lines {
		if strings.Contains(l, "return 1") {
			bazBodyLine = i + 1
		}
	}
	target := m.Resolve(bazBodyLine)
	if target.Kind != model.SymbolFunction {
		t.Fatalf("Kind = %v, want SymbolFunction (innermost baz)", target.Kind)
	}
	if target.HasDocstring {
		t.Error("HasDocstring should be false for baz")
	}
}

func TestResolveModuleForLineOne(t *testing.T) {
	m := Parse(sample)
	target := m.Resolve(1)
	if target.Kind != model.SymbolModule {
		t.Fatalf("Kind = %v, want SymbolModule", target.Kind)
	}
	if !target.HasDocstring {
		t.Error("module docstring should be detected")
	}
}

func TestSignatureHandlesColonInDefaultValue(t *testing.T) {
	m := Parse(sample)
	lines := strings.Split(sample, "\n")
	topLine := 0
	for i, l := range lines {
		if strings.HasPrefix(l, "def top(") {
			topLine = i + 1
		}
	}
	target := m.Resolve(topLine)
	if !strings.Contains(target.Signature, "def top(a, b=\":\"):") {
		t.Errorf("Signature = %q", target.Signature)
	}
}

func TestBodyIndentFallsBackWhenBlockEmpty(t *testing.T) {
	src := "def f():\n"
	m := Parse(src)
	target := m.Resolve(1)
	if target.BodyIndent != "    " {
		t.Errorf("BodyIndent = %q, want 4 spaces", target.BodyIndent)
	}
}

func TestMultilineStringDoesNotConfuseIndentation(t *testing.T) {
	src := "def f():\n" +
		"    s = \"\"\"\n" +
		"unindented line inside string\n" +
		"\"\"\"\n" +
		"    return s\n" +
		"\n" +
		"def g():\n" +
		"    return 2\n"
	m := Parse(src)
	target := m.Resolve(7) // def g() line
	if target.Kind != model.SymbolFunction || !strings.Contains(target.Signature, "def g()") {
		t.Errorf("Resolve(7) = %+v", target)
	}
}
