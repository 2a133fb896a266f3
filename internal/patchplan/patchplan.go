// Package patchplan selects, for every documented target, the op that
// applies the sanitized docstring to its file, and renders the docstring
// text itself.
package patchplan

import (
	"fmt"
	"regexp"
	"strings"

	"docmaint/internal/model"
)

const wrapWidth = 72

// Plan builds the ops for one item against the file's current line
// buffer, using item.Target for AST-derived span information and doc as
// the already-sanitized docstring body (no surrounding quotes).
func Plan(item model.Item, lines []string, doc string) []model.PatchOp {
	target := item.Target
	indent := target.BodyIndent
	rendered := Render(doc, indent)

	op := model.PatchOp{RelPath: item.RelPath, SourceItemID: item.ID}

	switch {
	case target.Kind == model.SymbolModule && target.HasDocstring:
		op.Kind = model.OpReplaceRange
		op.StartLine, op.EndLine = target.DocStartLine, target.DocEndLine
		op.NewText = rendered

	case target.Kind == model.SymbolModule:
		if start, end, ok := findOrphanModuleString(lines); ok {
			op.Kind = model.OpReplaceRange
			op.StartLine, op.EndLine = start, end
			op.NewText = rendered
		} else {
			op.Kind = model.OpInsertAt
			op.AnchorKind = model.AnchorAfterShebangAndEncoding
			// Trailing blank line separates the new module docstring from
			// whatever followed the shebang/encoding block.
			op.NewText = rendered + "\n\n"
		}

	case target.HasDocstring: // function or class with existing docstring
		op.Kind = model.OpReplaceRange
		op.StartLine, op.EndLine = target.DocStartLine, target.DocEndLine
		op.NewText = rendered

	default: // function or class without a docstring
		op.Kind = model.OpInsertAt
		op.AnchorKind = model.AnchorAfterLine
		op.Line = target.HeaderEndLineNo
		op.NewText = rendered + "\n"
	}

	return []model.PatchOp{op}
}

var shebangRe = regexp.MustCompile(`^#!`)
var encodingRe = regexp.MustCompile(`^#.*coding[:=]\s*[-\w.]+`)
var importRe = regexp.MustCompile(`^\s*(import|from)\s+\S`)
var tripleQuoteStartRe = regexp.MustCompile(`^("""|''')`)

// findOrphanModuleString looks at the first line that is not blank, an
// import, a shebang or an encoding comment; if that line opens a column-0
// triple-quoted string not attached to the AST as a docstring (e.g. left
// behind by a previous manual edit), it returns the string's 1-based
// [start,end] span. A triple-quoted string further down is not found.
func findOrphanModuleString(lines []string) (start, end int, ok bool) {
	scanned := 0
	for i := 0; i < len(lines) && scanned < 50; i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || importRe.MatchString(line) || shebangRe.MatchString(line) || encodingRe.MatchString(line) {
			continue
		}
		scanned++
		m := tripleQuoteStartRe.FindString(line)
		if m == "" {
			return 0, 0, false // first substantive line isn't a triple-quoted string
		}
		q := m
		if strings.Count(line, q) >= 2 {
			return i + 1, i + 1, true
		}
		for j := i + 1; j < len(lines); j++ {
			if strings.Contains(lines[j], q) {
				return i + 1, j + 1, true
			}
		}
		return 0, 0, false
	}
	return 0, 0, false
}

var blankLineRe = regexp.MustCompile(`\n\s*\n`)
var sentenceEndRe = regexp.MustCompile(`[.!?](\s+|$)`)

// splitSummaryBody separates the summary from the body: an explicit
// blank line wins; otherwise the first sentence boundary does, so
// continuous multi-sentence prose still gets the summary/blank/body
// shape instead of rendering as one undivided paragraph.
func splitSummaryBody(doc string) (summary, body string) {
	s := strings.TrimSpace(doc)
	if loc := blankLineRe.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[:loc[0]]), strings.TrimSpace(s[loc[1]:])
	}
	if loc := sentenceEndRe.FindStringIndex(s); loc != nil && loc[1] < len(s) {
		return strings.TrimSpace(s[:loc[1]]), strings.TrimSpace(s[loc[1]:])
	}
	return s, ""
}

// Render produces the full triple-quoted docstring literal at indent:
// summary, exactly one blank line, then body paragraphs, wrapping each
// to wrapWidth while preserving bullet and blank lines verbatim.
func Render(doc string, indent string) string {
	summary, bodyText := splitSummaryBody(doc)
	lines := wrapParagraph(summary)
	if bodyText != "" {
		lines = append(lines, "")
		for pi, p := range blankLineRe.Split(bodyText, -1) {
			if pi > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, wrapParagraph(p)...)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\"\"\"\n", indent)
	for _, line := range lines {
		if line == "" {
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "%s%s\n", indent, line)
	}
	fmt.Fprintf(&b, "%s\"\"\"\n", indent)
	return strings.TrimRight(b.String(), "\n")
}

func wrapParagraph(p string) []string {
	var out []string
	for _, line := range strings.Split(p, "\n") {
		if isBulletLine(line) {
			out = append(out, strings.TrimRight(line, " \t"))
			continue
		}
		out = append(out, wrapLine(line, wrapWidth)...)
	}
	return out
}

var bulletRe = regexp.MustCompile(`^\s*[-*]\s`)

func isBulletLine(line string) bool {
	return bulletRe.MatchString(line)
}

func wrapLine(line string, width int) []string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{""}
	}
	var out []string
	cur := words[0]
	for _, w := range words[1:] {
		if len(cur)+1+len(w) > width {
			out = append(out, cur)
			cur = w
			continue
		}
		cur += " " + w
	}
	out = append(out, cur)
	return out
}
