// Package sanitize normalizes raw LLM docstring text to house style
// before it is rendered into a patch.
package sanitize

import (
	"regexp"
	"strings"
)

// Config carries the one operator-configurable convention spec.md's Open
// Questions leave unresolved: which project-internal tag prefixes (if
// any) get rewritten into a "Capabilities:" section in module docstrings.
type Config struct {
	CapabilityTagPrefixes []string
}

var leadingPhraseRe = regexp.MustCompile(`(?i)^(this (function|method|class|module)\s+)`)

// Text normalizes one docstring body (without the surrounding triple
// quotes) to house style. It always returns non-empty text.
func Text(raw string, isModule bool, cfg Config) string {
	s := stripEnclosingTripleQuotes(raw)
	s = stripLeadingThisPhrase(s)
	if isModule {
		s = rewriteCapabilitiesSection(s, cfg.CapabilityTagPrefixes)
	}
	s = collapseBlankLines(s)
	s = trimTrailingWhitespacePerLine(s)
	s = strings.TrimRight(s, "\n") + "\n"

	if strings.TrimSpace(s) == "" {
		return "Add a concise summary.\n"
	}
	return s
}

func stripEnclosingTripleQuotes(s string) string {
	t := strings.TrimSpace(s)
	for _, q := range []string{`"""`, `'''`} {
		if strings.HasPrefix(t, q) && strings.HasSuffix(t, q) && len(t) >= 2*len(q) {
			return strings.TrimSpace(t[len(q) : len(t)-len(q)])
		}
	}
	return s
}

func stripLeadingThisPhrase(s string) string {
	lines := strings.SplitN(s, "\n", 2)
	lines[0] = leadingPhraseRe.ReplaceAllString(lines[0], "")
	if len(lines[0]) > 0 {
		lines[0] = strings.ToUpper(lines[0][:1]) + lines[0][1:]
	}
	return strings.Join(lines, "\n")
}

var tagLineRe = regexp.MustCompile(`(?m)^\s*[-*]\s*(\S+):\s*(.*)$`)

// rewriteCapabilitiesSection finds bullet lines whose tag matches one of
// prefixes and rewrites the whole bulleted run into a "Capabilities:"
// section with dash bullets and the tag prefix stripped. With no
// configured prefixes this is a no-op (the Open Question default).
func rewriteCapabilitiesSection(s string, prefixes []string) string {
	if len(prefixes) == 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	var out []string
	var capBullets []string
	for _, line := range lines {
		m := tagLineRe.FindStringSubmatch(line)
		if m != nil && hasAnyPrefix(m[1], prefixes) {
			capBullets = append(capBullets, "- "+strings.TrimPrefix(m[1]+": "+m[2], tagPrefixOf(m[1], prefixes)))
			continue
		}
		out = append(out, line)
	}
	if len(capBullets) == 0 {
		return s
	}
	out = append(out, "", "Capabilities:")
	out = append(out, capBullets...)
	return strings.Join(out, "\n")
}

func hasAnyPrefix(tag string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(tag, p) {
			return true
		}
	}
	return false
}

func tagPrefixOf(tag string, prefixes []string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(tag, p) {
			return p
		}
	}
	return ""
}

var multiBlankRe = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	return multiBlankRe.ReplaceAllString(s, "\n\n")
}

func trimTrailingWhitespacePerLine(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}
