// Package diffcompile groups PatchOps by file, applies them to an
// in-memory line buffer in descending start-line order, and renders the
// result as a unified diff against the original file, grounded on the
// teacher's claudetool/patch.go generateUnifiedDiff helper.
package diffcompile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/diff"

	"docmaint/internal/fileops"
	"docmaint/internal/model"
)

// FileDiff is one compiled unit of work: the new buffer contents for a
// file and the unified diff text against the original.
type FileDiff struct {
	RelPath     string
	Original    string
	Patched     string
	UnifiedDiff string
}

// Compile groups ops by RelPath and applies each file's ops to buf
// (already parsed from the workspace). buf must be keyed by the same
// RelPath the ops use.
func Compile(ops []model.PatchOp, buffers map[string]*fileops.Buffer) ([]FileDiff, error) {
	byFile := make(map[string][]model.PatchOp)
	for _, op := range ops {
		byFile[op.RelPath] = append(byFile[op.RelPath], op)
	}

	var out []FileDiff
	for relPath, fileOps := range byFile {
		buf, ok := buffers[relPath]
		if !ok {
			return nil, fmt.Errorf("diffcompile: no buffer loaded for %s", relPath)
		}
		sort.Slice(fileOps, func(i, j int) bool {
			return fileOps[i].SortKey() > fileOps[j].SortKey()
		})

		lines := append([]string(nil), buf.Lines...)
		for _, op := range fileOps {
			var err error
			lines, err = applyOne(lines, op)
			if err != nil {
				return nil, fmt.Errorf("diffcompile: %s: %w", relPath, err)
			}
		}

		original := buf.String(false)
		patchedBuf := fileops.Buffer{Path: buf.Path, Lines: lines, CRLF: buf.CRLF}
		patched := patchedBuf.String(false)

		out = append(out, FileDiff{
			RelPath:     relPath,
			Original:    original,
			Patched:     patched,
			UnifiedDiff: unifiedDiff(relPath, original, patched),
		})
	}
	return out, nil
}

func applyOne(lines []string, op model.PatchOp) ([]string, error) {
	switch op.Kind {
	case model.OpReplaceRange:
		if op.StartLine < 1 || op.EndLine > len(lines) || op.StartLine > op.EndLine {
			return nil, fmt.Errorf("invalid replace range [%d,%d] in %d lines", op.StartLine, op.EndLine, len(lines))
		}
		newLines := strings.Split(strings.TrimSuffix(op.NewText, "\n"), "\n")
		out := append([]string(nil), lines[:op.StartLine-1]...)
		out = append(out, newLines...)
		out = append(out, lines[op.EndLine:]...)
		return out, nil

	case model.OpInsertAt:
		// Only the final line terminator is trimmed: a NewText ending in
		// "\n\n" deliberately inserts a trailing blank line.
		newLines := strings.Split(strings.TrimSuffix(op.NewText, "\n"), "\n")
		idx := insertIndex(lines, op)
		out := append([]string(nil), lines[:idx]...)
		out = append(out, newLines...)
		out = append(out, lines[idx:]...)
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported op kind %v for in-place apply", op.Kind)
	}
}

// insertIndex returns the 0-based index in lines to insert before.
func insertIndex(lines []string, op model.PatchOp) int {
	switch op.AnchorKind {
	case model.AnchorFileStart:
		return 0
	case model.AnchorFileEnd:
		return len(lines)
	case model.AnchorAfterShebangAndEncoding:
		idx := 0
		if idx < len(lines) && strings.HasPrefix(lines[idx], "#!") {
			idx++
		}
		if idx < len(lines) && strings.HasPrefix(lines[idx], "#") &&
			(strings.Contains(lines[idx], "coding:") || strings.Contains(lines[idx], "coding=")) {
			idx++
		}
		return idx
	case model.AnchorAfterImportBlock:
		idx := 0
		for idx < len(lines) && (strings.HasPrefix(strings.TrimSpace(lines[idx]), "import ") ||
			strings.HasPrefix(strings.TrimSpace(lines[idx]), "from ") ||
			strings.TrimSpace(lines[idx]) == "") {
			idx++
		}
		return idx
	case model.AnchorAfterLine:
		if op.Line < 0 {
			return 0
		}
		if op.Line > len(lines) {
			return len(lines)
		}
		return op.Line
	case model.AnchorBeforeLine:
		if op.Line-1 < 0 {
			return 0
		}
		return op.Line - 1
	default:
		return len(lines)
	}
}

func unifiedDiff(relPath, original, patched string) string {
	buf := new(strings.Builder)
	if err := diff.Text(relPath, relPath, original, patched, buf); err != nil {
		return fmt.Sprintf("(diff generation failed: %v)\n", err)
	}
	return buf.String()
}
