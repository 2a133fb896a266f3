// Package contextbuild assembles the per-item prompt inputs: signature,
// existing docstring, a local code window, and the mode (create/rewrite)
// that PromptBuilder will render into the two prompt strings.
package contextbuild

import (
	"strings"

	"docmaint/internal/model"
)

const (
	linesBefore = 15
	linesAfter  = 50
)

// Build turns a resolved target plus its file's full content into a
// Suspect, cutting the ±15/+50 line context window around the target.
func Build(row model.IndexRow, relPath, absPath, fileContent string, target model.TargetInfo) model.Suspect {
	lines := strings.Split(strings.ReplaceAll(fileContent, "\r\n", "\n"), "\n")
	anchor := target.LineNo
	if anchor < 1 {
		anchor = 1
	}
	start := anchor - linesBefore
	if start < 1 {
		start = 1
	}
	end := anchor + linesAfter
	if end > len(lines) {
		end = len(lines)
	}
	var window []string
	if start-1 < len(lines) && start <= end {
		window = lines[start-1 : end]
	}

	return model.Suspect{
		ID:           row.ID,
		AbsPath:      absPath,
		RelPath:      relPath,
		LineNo:       target.LineNo,
		SymbolType:   target.Kind,
		Name:         row.Name,
		Description:  row.Description,
		Signature:    target.Signature,
		HasDocstring: target.HasDocstring,
		ExistingDoc:  target.ExistingDoc,
		ContextCode:  strings.Join(window, "\n"),
		Target:       target,
	}
}

// Item attaches the dispatch mode to a Suspect: rewrite when the target
// already carries a docstring, create otherwise.
func Item(s model.Suspect) model.Item {
	mode := model.ModeCreate
	if s.HasDocstring {
		mode = model.ModeRewrite
	}
	return model.Item{
		Suspect:      s,
		Mode:         mode,
		TargetLineNo: s.Target.LineNo,
	}
}
