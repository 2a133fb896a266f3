package model

import "testing"

func TestIndexRowDedupeKey(t *testing.T) {
	tests := []struct {
		name string
		row  IndexRow
		want string
	}{
		{
			name: "hash_wins",
			row:  IndexRow{UniqueKeyHash: "abc123", FilePath: "x.py", Name: "f", LineNo: 3},
			want: "hash:abc123",
		},
		{
			name: "natural_key_fallback",
			row:  IndexRow{FilePath: "x.py", SymbolType: SymbolFunction, Name: "f", LineNo: 3},
			want: "nat:x.py\x003\x00f\x003",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.DedupeKey(); got != tt.want {
				t.Errorf("DedupeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("create"); err != nil || m != ModeCreate {
		t.Errorf("ParseMode(create) = %v, %v", m, err)
	}
	if m, err := ParseMode("rewrite"); err != nil || m != ModeRewrite {
		t.Errorf("ParseMode(rewrite) = %v, %v", m, err)
	}
	if _, err := ParseMode("bogus"); err == nil {
		t.Error("ParseMode(bogus) should error")
	}
}

func TestPatchOpSortKey(t *testing.T) {
	ops := []PatchOp{
		{Kind: OpReplaceRange, StartLine: 10},
		{Kind: OpInsertAt, AnchorKind: AnchorAfterLine, Line: 5},
		{Kind: OpInsertAt, AnchorKind: AnchorFileEnd},
		{Kind: OpInsertAt, AnchorKind: AnchorFileStart},
	}
	want := []int{10, 5, 1 << 30, 0}
	for i, op := range ops {
		if got := op.SortKey(); got != want[i] {
			t.Errorf("ops[%d].SortKey() = %d, want %d", i, got, want[i])
		}
	}
}

func TestSymbolKindString(t *testing.T) {
	if SymbolFunction.String() != "SymbolFunction" {
		t.Errorf("String() = %q", SymbolFunction.String())
	}
}
