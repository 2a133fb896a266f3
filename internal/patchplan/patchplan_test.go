package patchplan

import (
	"strings"
	"testing"

	"docmaint/internal/model"
)

func TestRenderWrapsLongSummary(t *testing.T) {
	doc := "This is a summary line that is going to be long enough that it must wrap across more than one output line for sure.\n"
	got := Render(doc, "    ")
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 4+wrapWidth {
			t.Errorf("line too long (%d): %q", len(line), line)
		}
	}
	if !strings.HasPrefix(got, `    """`) {
		t.Errorf("got %q, want indented opening quote", got)
	}
	if !strings.HasSuffix(got, `    """`) {
		t.Errorf("got %q, want indented closing quote", got)
	}
}

func TestRenderSplitsContinuousProseAtSentenceBoundary(t *testing.T) {
	// Models often return multi-sentence prose with no blank line; the
	// first sentence still becomes the summary, separated by one blank.
	doc := "Return the sum of a and b. Operands are coerced to float before adding.\n"
	got := Render(doc, "")
	want := "\"\"\"\nReturn the sum of a and b.\n\nOperands are coerced to float before adding.\n\"\"\""
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderSingleSentenceHasNoBody(t *testing.T) {
	got := Render("Return the sum of a and b.\n", "")
	if strings.Contains(got, "\n\n") {
		t.Errorf("got %q, want no blank line for a summary-only docstring", got)
	}
}

func TestRenderPreservesBullets(t *testing.T) {
	doc := "Summary.\n\n- first item\n- second item\n"
	got := Render(doc, "")
	if !strings.Contains(got, "- first item\n- second item") {
		t.Errorf("got %q, want bullets preserved on their own lines", got)
	}
}

func TestPlanModuleWithDocstringReplacesRange(t *testing.T) {
	item := model.Item{
		Suspect: model.Suspect{
			ID:      "x",
			RelPath: "pkg/mod.py",
			Target: model.TargetInfo{
				Kind:         model.SymbolModule,
				HasDocstring: true,
				DocStartLine: 1,
				DocEndLine:   3,
			},
		},
	}
	ops := Plan(item, nil, "New module summary.\n")
	if len(ops) != 1 || ops[0].Kind != model.OpReplaceRange {
		t.Fatalf("ops = %+v", ops)
	}
	if ops[0].StartLine != 1 || ops[0].EndLine != 3 {
		t.Fatalf("ops[0] = %+v", ops[0])
	}
}

func TestPlanModuleWithoutDocstringInsertsAfterShebang(t *testing.T) {
	lines := []string{"#!/usr/bin/env python", "import os", "", "x = 1"}
	item := model.Item{
		Suspect: model.Suspect{
			ID:      "x",
			RelPath: "pkg/mod.py",
			Target:  model.TargetInfo{Kind: model.SymbolModule, HasDocstring: false},
		},
	}
	ops := Plan(item, lines, "Module summary.\n")
	if len(ops) != 1 || ops[0].Kind != model.OpInsertAt || ops[0].AnchorKind != model.AnchorAfterShebangAndEncoding {
		t.Fatalf("ops = %+v", ops)
	}
}

func TestPlanModuleFindsOrphanTripleQuotedString(t *testing.T) {
	lines := []string{`"""Leftover text."""`, "", "import os"}
	item := model.Item{
		Suspect: model.Suspect{
			ID:      "x",
			RelPath: "pkg/mod.py",
			Target:  model.TargetInfo{Kind: model.SymbolModule, HasDocstring: false},
		},
	}
	ops := Plan(item, lines, "New summary.\n")
	if len(ops) != 1 || ops[0].Kind != model.OpReplaceRange || ops[0].StartLine != 1 || ops[0].EndLine != 1 {
		t.Fatalf("ops = %+v", ops)
	}
}

func TestPlanFunctionWithoutDocstringInsertsAfterHeader(t *testing.T) {
	item := model.Item{
		Suspect: model.Suspect{
			ID:      "x",
			RelPath: "pkg/mod.py",
			Target: model.TargetInfo{
				Kind:            model.SymbolFunction,
				HasDocstring:    false,
				HeaderEndLineNo: 5,
				BodyIndent:      "    ",
			},
		},
	}
	ops := Plan(item, nil, "Does a thing.\n")
	if len(ops) != 1 || ops[0].Kind != model.OpInsertAt || ops[0].AnchorKind != model.AnchorAfterLine || ops[0].Line != 5 {
		t.Fatalf("ops = %+v", ops)
	}
}
