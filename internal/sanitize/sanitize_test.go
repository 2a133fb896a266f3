package sanitize

import (
	"strings"
	"testing"
)

func TestTextStripsEnclosingTripleQuotes(t *testing.T) {
	got := Text(`"""Compute the sum.

Returns an int."""`, false, Config{})
	if strings.Contains(got, `"""`) {
		t.Errorf("got %q, want no triple quotes", got)
	}
	if !strings.HasPrefix(got, "Compute the sum.") {
		t.Errorf("got %q", got)
	}
}

func TestTextStripsLeadingThisPhrase(t *testing.T) {
	got := Text("This function computes the sum.\n", false, Config{})
	if strings.HasPrefix(got, "This function") {
		t.Errorf("got %q, want leading phrase stripped", got)
	}
	if !strings.HasPrefix(got, "Computes the sum.") {
		t.Errorf("got %q", got)
	}
}

func TestTextCollapsesBlankLines(t *testing.T) {
	got := Text("Summary.\n\n\n\nBody.\n", false, Config{})
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("got %q, want at most one blank line", got)
	}
}

func TestTextTrimsTrailingWhitespace(t *testing.T) {
	got := Text("Summary.   \nBody line.\t\n", false, Config{})
	for _, line := range strings.Split(got, "\n") {
		if line != strings.TrimRight(line, " \t") {
			t.Errorf("line %q has trailing whitespace", line)
		}
	}
}

func TestTextFallsBackWhenEmpty(t *testing.T) {
	got := Text("   \n\n  ", false, Config{})
	if got != "Add a concise summary.\n" {
		t.Errorf("got %q", got)
	}
}

func TestTextRewritesCapabilitiesSectionWhenConfigured(t *testing.T) {
	raw := "Handles requests.\n\n- cap:network: opens sockets\n- cap:fs: reads files\n"
	got := Text(raw, true, Config{CapabilityTagPrefixes: []string{"cap:"}})
	if !strings.Contains(got, "Capabilities:") {
		t.Errorf("got %q, want a Capabilities section", got)
	}
	if !strings.Contains(got, "- network: opens sockets") {
		t.Errorf("got %q, want tag prefix stripped", got)
	}
}

func TestTextIdempotent(t *testing.T) {
	cfg := Config{CapabilityTagPrefixes: []string{"cap:"}}
	inputs := []string{
		"This function computes the sum.\n",
		`"""Compute the sum."""`,
		"Handles requests.\n\n- cap:network: opens sockets\n- cap:fs: reads files\n",
		"Summary.\n\n\n\nBody.   \n",
		"   \n",
	}
	for _, raw := range inputs {
		once := Text(raw, true, cfg)
		twice := Text(once, true, cfg)
		if once != twice {
			t.Errorf("Text not idempotent for %q: once=%q twice=%q", raw, once, twice)
		}
	}
}

func TestTextLeavesCapabilitiesUntouchedByDefault(t *testing.T) {
	raw := "Handles requests.\n\n- cap:network: opens sockets\n"
	got := Text(raw, true, Config{})
	if strings.Contains(got, "Capabilities:") {
		t.Errorf("got %q, want no rewriting with empty prefix list", got)
	}
}
