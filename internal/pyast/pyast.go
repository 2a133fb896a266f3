// Package pyast resolves a (source, hint_lineno) pair to the enclosing
// module/class/function target, the way a real AST walk would, without
// depending on a full Python grammar: it tracks indentation and
// triple-quoted string state line by line, which is enough to find
// def/class spans, existing docstrings, and body indentation reliably for
// well-formed source. There is no Go library in the example pack (or the
// wider ecosystem, to the author's knowledge) that parses Python syntax,
// so this is a deliberately narrow, hand-written scanner rather than a
// general parser: see DESIGN.md.
package pyast

import (
	"regexp"
	"strings"

	"docmaint/internal/model"
)

type tripleKind int

const (
	tripleNone tripleKind = iota
	tripleDouble
	tripleSingle
)

var defRe = regexp.MustCompile(`^(\s*)(async\s+def|def|class)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// node is one def/class span discovered while walking the source.
type node struct {
	kind          model.SymbolKind
	name          string
	headerLine    int // 1-based, the def/class keyword line
	headerEndLine int // line the ':' closing the header is found on
	indent        int // indentation of the header line itself
	bodyStart     int // first line of the block's body, 1-based
	blockEnd      int // last line belonging to this block, 1-based
	children      []*node
}

// contains reports whether line ln falls within this node's own span,
// including its header.
func (n *node) contains(ln int) bool {
	return ln >= n.headerLine && ln <= n.blockEnd
}

// scanLine advances the triple-quote state machine over one physical line
// and reports whether any "real" (non-string, non-comment) code appears.
func scanLine(line string, state tripleKind) (newState tripleKind, hasCode bool) {
	i := 0
	n := len(line)
	if state != tripleNone {
		delim := `"""`
		if state == tripleSingle {
			delim = `'''`
		}
		idx := strings.Index(line, delim)
		if idx == -1 {
			return state, false
		}
		i = idx + 3
		state = tripleNone
	}
	for i < n {
		c := line[i]
		switch {
		case c == '#':
			return state, hasCode
		case strings.HasPrefix(line[i:], `"""`):
			end := strings.Index(line[i+3:], `"""`)
			if end == -1 {
				return tripleDouble, hasCode
			}
			i += 3 + end + 3
			hasCode = true
		case strings.HasPrefix(line[i:], `'''`):
			end := strings.Index(line[i+3:], `'''`)
			if end == -1 {
				return tripleSingle, hasCode
			}
			i += 3 + end + 3
			hasCode = true
		case c == '"' || c == '\'':
			quote := c
			j := i + 1
			for j < n {
				if line[j] == '\\' {
					j += 2
					continue
				}
				if line[j] == quote {
					break
				}
				j++
			}
			i = j + 1
			hasCode = true
		case c == ' ' || c == '\t':
			i++
		default:
			hasCode = true
			i++
		}
	}
	return state, hasCode
}

func isBlankOrComment(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || strings.HasPrefix(t, "#")
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 8 - n%8
		default:
			return n
		}
	}
	return n
}

// Module is the parsed structural outline of one source file.
type Module struct {
	lines        []string
	stateAtStart []tripleKind // stateAtStart[i] is the state entering line i+1 (1-based)
	top          []*node
}

// Parse builds a Module's structural outline by a single indentation-aware
// pass over source.
func Parse(source string) *Module {
	lines := splitLines(source)
	stateAtStart := make([]tripleKind, len(lines)+2)
	state := tripleNone
	for i, line := range lines {
		stateAtStart[i+1] = state
		state, _ = scanLine(line, state)
	}

	m := &Module{lines: lines, stateAtStart: stateAtStart}
	m.top = m.parseBlock(1, len(lines), -1)
	return m
}

func splitLines(source string) []string {
	normalized := strings.ReplaceAll(source, "\r\n", "\n")
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, "\n")
}

// parseBlock finds every def/class header within [startLine, endLine]
// that is not inside a def/class already found at this level, recursing
// into each one's body. Header indentation is not compared between
// siblings.
func (m *Module) parseBlock(startLine, endLine, _ int) []*node {
	var result []*node
	ln := startLine
	for ln <= endLine {
		if m.stateAtStart[ln] != tripleNone || isBlankOrComment(m.lines[ln-1]) {
			ln++
			continue
		}
		match := defRe.FindStringSubmatch(m.lines[ln-1])
		if match == nil {
			ln++
			continue
		}
		indent := len(match[1])
		kind := model.SymbolFunction
		if match[2] == "class" {
			kind = model.SymbolClass
		}
		headerEnd := m.findHeaderEnd(ln, endLine)
		bodyStart := m.firstRealLineAfter(headerEnd, endLine)
		blockEnd := m.findBlockEnd(bodyStart, endLine, indent)

		n := &node{
			kind:          kind,
			name:          match[3],
			headerLine:    ln,
			headerEndLine: headerEnd,
			indent:        indent,
			bodyStart:     bodyStart,
			blockEnd:      blockEnd,
		}
		n.children = m.parseBlock(bodyStart, blockEnd, indent)
		result = append(result, n)
		ln = blockEnd + 1
	}
	return result
}

// findHeaderEnd scans forward from a def/class line for the ':' that
// closes its header, respecting bracket nesting and string literals (so a
// default argument like `sep: str = ":"` doesn't confuse detection).
func (m *Module) findHeaderEnd(startLine, endLine int) int {
	depth := 0
	state := tripleNone
	for ln := startLine; ln <= endLine; ln++ {
		line := m.lines[ln-1]
		i, n := 0, len(line)
		if state != tripleNone {
			delim := `"""`
			if state == tripleSingle {
				delim = `'''`
			}
			idx := strings.Index(line, delim)
			if idx == -1 {
				continue
			}
			i = idx + 3
			state = tripleNone
		}
		for i < n {
			c := line[i]
			switch {
			case c == '#':
				i = n
			case strings.HasPrefix(line[i:], `"""`):
				end := strings.Index(line[i+3:], `"""`)
				if end == -1 {
					state = tripleDouble
					i = n
				} else {
					i += 3 + end + 3
				}
			case strings.HasPrefix(line[i:], `'''`):
				end := strings.Index(line[i+3:], `'''`)
				if end == -1 {
					state = tripleSingle
					i = n
				} else {
					i += 3 + end + 3
				}
			case c == '"' || c == '\'':
				quote := c
				j := i + 1
				for j < n {
					if line[j] == '\\' {
						j += 2
						continue
					}
					if line[j] == quote {
						break
					}
					j++
				}
				i = j + 1
			case c == '(' || c == '[' || c == '{':
				depth++
				i++
			case c == ')' || c == ']' || c == '}':
				depth--
				i++
			case c == ':' && depth == 0:
				return ln
			default:
				i++
			}
		}
	}
	return endLine
}

func (m *Module) firstRealLineAfter(after, endLine int) int {
	for ln := after + 1; ln <= endLine; ln++ {
		if m.stateAtStart[ln] != tripleNone {
			return ln // first line of a string continuation still starts the body
		}
		if !isBlankOrComment(m.lines[ln-1]) {
			return ln
		}
	}
	return endLine + 1
}

func (m *Module) findBlockEnd(bodyStart, endLine, headerIndent int) int {
	last := bodyStart - 1
	for ln := bodyStart; ln <= endLine; ln++ {
		if m.stateAtStart[ln] != tripleNone {
			last = ln
			continue
		}
		if isBlankOrComment(m.lines[ln-1]) {
			continue
		}
		if indentOf(m.lines[ln-1]) <= headerIndent {
			return last
		}
		last = ln
	}
	return endLine
}

// Resolve implements AstTargeting's contract: exact lineno match first,
// then module for hint<=1, else the innermost def/class span containing
// hint, else module.
func (m *Module) Resolve(hintLineno int) model.TargetInfo {
	if n := m.exactMatch(m.top, hintLineno); n != nil {
		return m.targetFromNode(n)
	}
	if hintLineno <= 1 {
		return m.moduleTarget()
	}
	if n := m.innermostContaining(m.top, hintLineno); n != nil {
		return m.targetFromNode(n)
	}
	return m.moduleTarget()
}

func (m *Module) exactMatch(nodes []*node, ln int) *node {
	for _, n := range nodes {
		if n.headerLine == ln {
			return n
		}
		if found := m.exactMatch(n.children, ln); found != nil {
			return found
		}
	}
	return nil
}

func (m *Module) innermostContaining(nodes []*node, ln int) *node {
	for _, n := range nodes {
		if n.contains(ln) {
			if child := m.innermostContaining(n.children, ln); child != nil {
				return child
			}
			return n
		}
	}
	return nil
}

func (m *Module) moduleTarget() model.TargetInfo {
	bodyStart := m.firstRealLineAfter(0, len(m.lines))
	has, start, end, text := m.docstringAt(bodyStart)
	return model.TargetInfo{
		Kind:            model.SymbolModule,
		LineNo:          1,
		HasDocstring:    has,
		ExistingDoc:     text,
		Signature:       "module",
		BodyIndent:      "",
		HeaderEndLineNo: 0,
		DocStartLine:    start,
		DocEndLine:      end,
	}
}

func (m *Module) targetFromNode(n *node) model.TargetInfo {
	has, start, end, text := m.docstringAt(n.bodyStart)
	return model.TargetInfo{
		Kind:            n.kind,
		LineNo:          n.headerLine,
		HasDocstring:    has,
		ExistingDoc:     text,
		Signature:       m.signature(n),
		BodyIndent:      m.bodyIndent(n),
		HeaderEndLineNo: n.headerEndLine,
		DocStartLine:    start,
		DocEndLine:      end,
	}
}

func (m *Module) bodyIndent(n *node) string {
	if n.bodyStart <= len(m.lines) && n.bodyStart <= n.blockEnd {
		return strings.Repeat(" ", indentOf(m.lines[n.bodyStart-1]))
	}
	return strings.Repeat(" ", n.indent+4)
}

// signature reconstructs the header text from headerLine to
// headerEndLine, collapsing internal whitespace the way a one-line
// unparse of the arguments would read.
func (m *Module) signature(n *node) string {
	var parts []string
	for ln := n.headerLine; ln <= n.headerEndLine && ln <= len(m.lines); ln++ {
		parts = append(parts, strings.TrimSpace(m.lines[ln-1]))
	}
	joined := strings.Join(parts, " ")
	fields := strings.Fields(joined)
	return strings.Join(fields, " ")
}

// docstringAt checks whether the statement starting at line ln is a bare
// string literal (the docstring predicate), returning its span and raw
// text (quotes stripped) if so.
func (m *Module) docstringAt(ln int) (has bool, start, end int, text string) {
	if ln < 1 || ln > len(m.lines) {
		return false, 0, 0, ""
	}
	line := m.lines[ln-1]
	trimmed := strings.TrimLeft(line, " \t")
	for _, q := range []string{`"""`, `'''`} {
		if strings.HasPrefix(trimmed, q) {
			rest := trimmed[3:]
			if closeIdx := strings.Index(rest, q); closeIdx != -1 {
				return true, ln, ln, rest[:closeIdx]
			}
			// multi-line: scan forward for the closing delimiter
			var body []string
			body = append(body, rest)
			for next := ln + 1; next <= len(m.lines); next++ {
				nl := m.lines[next-1]
				if idx := strings.Index(nl, q); idx != -1 {
					body = append(body, nl[:idx])
					return true, ln, next, strings.Join(body, "\n")
				}
				body = append(body, nl)
			}
			return true, ln, len(m.lines), strings.Join(body, "\n")
		}
	}
	for _, q := range []string{`"`, `'`} {
		if strings.HasPrefix(trimmed, q) {
			rest := trimmed[1:]
			if idx := strings.Index(rest, q); idx != -1 {
				return true, ln, ln, rest[:idx]
			}
		}
	}
	return false, 0, 0, ""
}

// Resolve is the package-level entry point: (source, hint_lineno) ->
// TargetInfo. It takes no file path; the result depends only on source. On
// malformed source this still returns a best-effort result rather than
// erroring, since the scanner has no concept of a syntax error: it
// degrades to whatever structure it can still find.
func Resolve(source string, hintLineno int) model.TargetInfo {
	return Parse(source).Resolve(hintLineno)
}
