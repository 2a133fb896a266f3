// Package verify runs the minimal, PEP-257-inspired docstring checks on
// each sanitized docstring. A failed check is reported, not enforced: the
// patch still reaches sandbox apply.
package verify

import (
	"regexp"
	"strings"

	"docmaint/internal/model"
)

// Result is the outcome of checking one rendered docstring against its item.
type Result struct {
	OK     bool
	Issues []string
}

// Docstring checks doc (the sanitized body, no surrounding quotes) against
// item's signature for PEP-257-minimal shape and parameter coverage.
func Docstring(doc string, item model.Item) Result {
	var issues []string

	summary := firstNonBlankLine(doc)
	if strings.TrimSpace(doc) == "" {
		issues = append(issues, "docstring is empty")
	} else {
		if len(strings.TrimSpace(summary)) < 3 {
			issues = append(issues, "summary line is too short")
		}
		if !strings.HasSuffix(strings.TrimSpace(summary), ".") {
			issues = append(issues, "summary line does not end with a period")
		}
	}

	if item.SymbolType == model.SymbolFunction {
		issues = append(issues, paramIssues(doc, item.Signature)...)
	}

	return Result{OK: len(issues) == 0, Issues: issues}
}

func firstNonBlankLine(doc string) string {
	for _, line := range strings.Split(doc, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

var argsHeaderRe = regexp.MustCompile(`(?m)^\s*Args:\s*$`)

// paramIssues reports any signature parameter (excluding self/cls and
// *args/**kwargs markers) not appearing as a word in the docstring's
// Args: section. A docstring with no Args: section at all is not
// flagged; the consistency check only applies once the author committed
// to documenting parameters.
func paramIssues(doc, signature string) []string {
	params := signatureParams(signature)
	if len(params) == 0 {
		return nil
	}

	loc := argsHeaderRe.FindStringIndex(doc)
	if loc == nil {
		return nil
	}
	argsBody := doc[loc[1]:]
	if end := nextSectionStart(argsBody); end >= 0 {
		argsBody = argsBody[:end]
	}

	var missing []string
	for _, p := range params {
		wordRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`)
		if !wordRe.MatchString(argsBody) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []string{"Args: section missing " + strings.Join(missing, ", ")}
}

var sectionHeaderRe = regexp.MustCompile(`(?m)^\s*(Returns|Raises|Yields|Examples?):\s*$`)

func nextSectionStart(s string) int {
	loc := sectionHeaderRe.FindStringIndex(s)
	if loc == nil {
		return -1
	}
	return loc[0]
}

var paramListRe = regexp.MustCompile(`\(([^)]*)\)`)

// signatureParams extracts positional/keyword parameter names from a
// one-line (or joined multi-line) def/method signature, dropping self,
// cls, and bare *args/**kwargs markers, since those aren't documented
// individually in Google-style Args: sections.
func signatureParams(signature string) []string {
	m := paramListRe.FindStringSubmatch(signature)
	if m == nil {
		return nil
	}
	raw := splitTopLevelCommas(m[1])
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "*") {
			continue // bare *, *args, **kwargs
		}
		name := p
		if idx := strings.IndexAny(name, ":="); idx >= 0 {
			name = name[:idx]
		}
		name = strings.TrimSpace(name)
		if name == "" || name == "self" || name == "cls" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// splitTopLevelCommas splits a parameter list on commas that aren't
// nested inside brackets, parens, or a default value's string literal.
func splitTopLevelCommas(s string) []string {
	var out []string
	depth := 0
	inString := false
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			if c == quote {
				inString = false
			}
		case c == '\'' || c == '"':
			inString = true
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
