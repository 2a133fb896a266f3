package contextbuild

import (
	"strings"
	"testing"

	"docmaint/internal/model"
)

func TestBuildWindowClampsToFileBounds(t *testing.T) {
	var lines []string
	for i := 1; i <= 100; i++ {
		lines = append(lines, "line")
	}
	content := strings.Join(lines, "\n")

	s := Build(model.IndexRow{ID: "1", Name: "f"}, "a.py", "/abs/a.py", content, model.TargetInfo{LineNo: 5, Kind: model.SymbolFunction})
	window := strings.Split(s.ContextCode, "\n")
	// anchor 5, -15 clamps to line 1, +50 -> line 55: total 55 lines
	if len(window) != 55 {
		t.Errorf("window length = %d, want 55", len(window))
	}
}

func TestBuildWindowNearEndOfFile(t *testing.T) {
	var lines []string
	for i := 1; i <= 20; i++ {
		lines = append(lines, "line")
	}
	content := strings.Join(lines, "\n")

	s := Build(model.IndexRow{ID: "1"}, "a.py", "/abs/a.py", content, model.TargetInfo{LineNo: 18, Kind: model.SymbolFunction})
	window := strings.Split(s.ContextCode, "\n")
	// start = 18-15=3, end=min(68,20)=20 -> 18 lines
	if len(window) != 18 {
		t.Errorf("window length = %d, want 18", len(window))
	}
}

func TestItemModeFromDocstringPresence(t *testing.T) {
	create := Item(model.Suspect{HasDocstring: false})
	if create.Mode != model.ModeCreate {
		t.Errorf("Mode = %v, want ModeCreate", create.Mode)
	}
	rewrite := Item(model.Suspect{HasDocstring: true})
	if rewrite.Mode != model.ModeRewrite {
		t.Errorf("Mode = %v, want ModeRewrite", rewrite.Mode)
	}
}
