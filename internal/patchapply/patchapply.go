// Package patchapply parses the unified diffs diffcompile produces and
// applies them to a workspace, byte-exact and all-or-nothing, grounded
// on the hunk-walking approach in adk-code's tools.ApplyPatch but with
// every context/deletion line checked (not just the ones before a hunk)
// and with create/delete markers per spec.md 4.8.
package patchapply

import (
	"fmt"
	"strconv"
	"strings"

	"docmaint/internal/fileops"
)

// Hunk is one @@ ... @@ block.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []HunkLine
}

// HunkLine is one body line, Op one of ' ', '+', '-'. '\' (no-newline
// marker) lines are dropped during parsing.
type HunkLine struct {
	Op   byte
	Text string
}

// FileDiff is one parsed file section of a unified diff.
type FileDiff struct {
	OldPath string // "" for create (source was /dev/null)
	NewPath string // "" for delete (target was /dev/null)
	Hunks   []Hunk
}

// RelPath is the path this diff applies to in the workspace.
func (d FileDiff) RelPath() string {
	if d.NewPath != "" {
		return d.NewPath
	}
	return d.OldPath
}

func (d FileDiff) IsCreate() bool { return d.OldPath == "" }
func (d FileDiff) IsDelete() bool { return d.NewPath == "" }

// Reject describes why one file failed dry-run validation.
type Reject struct {
	RelPath string
	Reason  string
}

// ParseError wraps a malformed unified diff.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("patchapply: %s: %q", e.Reason, e.Line)
}

var hunkHeaderPrefix = "@@ -"

// Parse splits text (possibly several concatenated file diffs) into
// FileDiffs.
func Parse(text string) ([]FileDiff, error) {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	var out []FileDiff
	var cur *FileDiff
	var curHunk *Hunk

	flushHunk := func() {
		if cur != nil && curHunk != nil {
			cur.Hunks = append(cur.Hunks, *curHunk)
			curHunk = nil
		}
	}
	flushFile := func() {
		flushHunk()
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "--- "):
			flushFile()
			cur = &FileDiff{OldPath: stripDiffPrefix(strings.TrimPrefix(line, "--- "))}
		case strings.HasPrefix(line, "+++ "):
			if cur == nil {
				return nil, &ParseError{line, "+++ without preceding ---"}
			}
			cur.NewPath = stripDiffPrefix(strings.TrimPrefix(line, "+++ "))
		case strings.HasPrefix(line, hunkHeaderPrefix):
			if cur == nil {
				return nil, &ParseError{line, "hunk header without file header"}
			}
			flushHunk()
			h, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}
			curHunk = h
		case strings.HasPrefix(line, "\\"):
			// "No newline at end of file" marker, ignored on apply.
		case line == "":
			if curHunk != nil {
				curHunk.Lines = append(curHunk.Lines, HunkLine{Op: ' ', Text: ""})
			}
		default:
			if curHunk == nil {
				continue // stray banner/comment line between file sections
			}
			op := line[0]
			if op != ' ' && op != '+' && op != '-' {
				return nil, &ParseError{line, "hunk body line has unrecognized prefix"}
			}
			// Diffs generated from CRLF files carry the \r inside each
			// content line; comparison happens against CRLF-normalized
			// buffers, and the original terminator is restored on render.
			curHunk.Lines = append(curHunk.Lines, HunkLine{Op: op, Text: strings.TrimSuffix(line[1:], "\r")})
		}
	}
	flushFile()
	return out, nil
}

func stripDiffPrefix(path string) string {
	path = strings.TrimSuffix(path, "\n")
	if idx := strings.Index(path, "\t"); idx >= 0 {
		path = path[:idx] // strip a trailing timestamp, if present
	}
	if path == "/dev/null" {
		return ""
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

func parseHunkHeader(line string) (*Hunk, error) {
	rest := strings.TrimPrefix(line, "@@ -")
	end := strings.Index(rest, " @@")
	if end < 0 {
		return nil, &ParseError{line, "malformed hunk header"}
	}
	body := rest[:end]
	parts := strings.SplitN(body, " +", 2)
	if len(parts) != 2 {
		return nil, &ParseError{line, "malformed hunk header"}
	}
	oldStart, oldCount, err := parseRange(parts[0])
	if err != nil {
		return nil, &ParseError{line, err.Error()}
	}
	newStart, newCount, err := parseRange(parts[1])
	if err != nil {
		return nil, &ParseError{line, err.Error()}
	}
	return &Hunk{OldStart: oldStart, OldCount: oldCount, NewStart: newStart, NewCount: newCount}, nil
}

func parseRange(s string) (start, count int, err error) {
	parts := strings.SplitN(s, ",", 2)
	start, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad range %q", s)
	}
	count = 1
	if len(parts) == 2 {
		count, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("bad range %q", s)
		}
	}
	return start, count, nil
}

// DryRun validates and renders the patched content for one file,
// requiring byte-exact matches for every context and deletion line.
func DryRun(original string, d FileDiff) (patched string, err error) {
	var lines []string
	if !d.IsCreate() {
		buf := fileops.ParseBuffer(d.RelPath(), original)
		lines = buf.Lines
	}

	var out []string
	cursor := 0 // 0-based index into lines already consumed
	for _, h := range d.Hunks {
		start := h.OldStart - 1
		if start < 0 {
			start = 0
		}
		if start < cursor {
			return "", fmt.Errorf("hunk at line %d overlaps previous hunk", h.OldStart)
		}
		out = append(out, lines[cursor:start]...)
		cursor = start

		for _, hl := range h.Lines {
			switch hl.Op {
			case ' ', '-':
				if cursor >= len(lines) || lines[cursor] != hl.Text {
					got := "<eof>"
					if cursor < len(lines) {
						got = lines[cursor]
					}
					return "", fmt.Errorf("context mismatch at line %d: want %q, got %q", cursor+1, hl.Text, got)
				}
				if hl.Op == ' ' {
					out = append(out, hl.Text)
				}
				cursor++
			case '+':
				out = append(out, hl.Text)
			}
		}
	}
	out = append(out, lines[cursor:]...)

	buf := &fileops.Buffer{Path: d.RelPath(), Lines: out}
	if !d.IsCreate() {
		orig := fileops.ParseBuffer(d.RelPath(), original)
		buf.CRLF = orig.CRLF
	}
	return buf.String(false), nil
}

// ValidateAll dry-runs every diff against its current content (read via
// readFile) and returns the rendered per-file patched content plus the
// relpaths of files the diff deletes, or the full set of rejects if any
// file failed. A delete diff's removal lines are still matched exactly
// against the current content before the file is marked deleted. Per
// spec.md 4.8's state machine, a non-empty rejects slice means the whole
// apply is rejected and no writes happen.
func ValidateAll(diffs []FileDiff, readFile func(relPath string) (string, error)) (map[string]string, []string, []Reject) {
	patched := make(map[string]string, len(diffs))
	var deleted []string
	var rejects []Reject
	for _, d := range diffs {
		var original string
		if !d.IsCreate() {
			content, err := readFile(d.RelPath())
			if err != nil {
				rejects = append(rejects, Reject{RelPath: d.RelPath(), Reason: err.Error()})
				continue
			}
			original = content
		}
		result, err := DryRun(original, d)
		if err != nil {
			rejects = append(rejects, Reject{RelPath: d.RelPath(), Reason: err.Error()})
			continue
		}
		if d.IsDelete() {
			deleted = append(deleted, d.RelPath())
			continue
		}
		patched[d.RelPath()] = result
	}
	return patched, deleted, rejects
}
