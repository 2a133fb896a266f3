// Package model defines the tagged records that flow through the docstring
// pipeline: index rows in, patch plans out. Every stage consumes and
// produces these types instead of passing loosely-typed maps around.
package model

import "fmt"

// SymbolKind identifies what kind of source construct a row or target refers to.
type SymbolKind int

const (
	SymbolUnknown SymbolKind = iota
	SymbolModule
	SymbolClass
	SymbolFunction
)

//go:generate go tool golang.org/x/tools/cmd/stringer -type=SymbolKind,Mode,PatchOpKind,Anchor -output=model_string.go

// Mode indicates whether an item is getting a brand new docstring or
// having an existing one rewritten.
type Mode int

const (
	ModeCreate Mode = iota
	ModeRewrite
)

// ParseMode parses the wire string form of Mode ("create"/"rewrite").
func ParseMode(s string) (Mode, error) {
	switch s {
	case "create":
		return ModeCreate, nil
	case "rewrite":
		return ModeRewrite, nil
	default:
		return 0, fmt.Errorf("model: unknown mode %q", s)
	}
}

// IndexRow is a single row streamed from the external symbol index. It is
// immutable for the lifetime of a run.
type IndexRow struct {
	ID            string
	FilePath      string // repo-relative or absolute, as stored by the scanner
	LineNo        int
	SymbolType    SymbolKind
	Name          string
	Description   string
	UniqueKeyHash string
	Status        string
}

// DedupeKey returns the authoritative de-duplication key for a row.
// UniqueKeyHash wins when present; otherwise the natural key
// (filepath, symbol_type, name, lineno) is used. See SPEC_FULL.md's
// resolution of the unique_key_hash Open Question.
func (r IndexRow) DedupeKey() string {
	if r.UniqueKeyHash != "" {
		return "hash:" + r.UniqueKeyHash
	}
	return fmt.Sprintf("nat:%s\x00%d\x00%s\x00%d", r.FilePath, r.SymbolType, r.Name, r.LineNo)
}

// TargetInfo is what AstTargeting resolves from a (source, hint_lineno) pair.
// Its Kind and LineNo are authoritative over the index row's hints.
type TargetInfo struct {
	Kind            SymbolKind
	LineNo          int // 1-based header/module line, AST-derived
	HasDocstring    bool
	ExistingDoc     string
	Signature       string
	BodyIndent      string // indentation string to render a new docstring at
	HeaderEndLineNo int    // line the header (def/class line, possibly multi-line) ends on
	DocStartLine    int    // 1-based, if HasDocstring: first line of the existing docstring literal
	DocEndLine      int    // 1-based, if HasDocstring: last line of the existing docstring literal
}

// Suspect is a symbol that has been enriched with source context and is a
// candidate for the LLM to document.
type Suspect struct {
	ID           string
	AbsPath      string
	RelPath      string // POSIX-separated, relative to scan_root
	LineNo       int
	SymbolType   SymbolKind
	Name         string
	Description  string
	Signature    string
	HasDocstring bool
	ExistingDoc  string
	ContextCode  string // ±15 lines before / +50 after window
	Target       TargetInfo
}

// Item is a Suspect augmented with the mode and authoritative target line
// that will be sent to the LLM.
type Item struct {
	Suspect
	Mode         Mode
	TargetLineNo int
}

// Batch is an ordered group of items that fit within one LLM request's
// token budget. Ids is the enum constraint used for the response schema.
type Batch struct {
	Index int
	Items []Item
	Ids   []string
}

// IdSet returns the set of ids belonging to this batch, for id-closure checks.
func (b Batch) IdSet() map[string]bool {
	set := make(map[string]bool, len(b.Ids))
	for _, id := range b.Ids {
		set[id] = true
	}
	return set
}

// LlmResult is one parsed, validated entry from a batch's LLM response.
type LlmResult struct {
	ID        string
	Mode      Mode
	Docstring string
	Extras    map[string]any
}

// PatchOpKind tags the variant held by a PatchOp.
type PatchOpKind int

const (
	OpReplaceRange PatchOpKind = iota
	OpInsertAt
	OpAddFile
	OpDeleteFile
)

// Anchor names an insertion point used by InsertAt ops.
type Anchor int

const (
	AnchorFileStart Anchor = iota
	AnchorFileEnd
	AnchorAfterShebangAndEncoding
	AnchorAfterImportBlock
	AnchorAfterLine
	AnchorBeforeLine
)

// PatchOp is a single file-level edit operation. Exactly one of the
// variant-specific field groups is meaningful, selected by Kind.
type PatchOp struct {
	Kind    PatchOpKind
	RelPath string

	// OpReplaceRange (1-based, inclusive)
	StartLine int
	EndLine   int
	NewText   string

	// OpInsertAt
	AnchorKind Anchor
	Line       int // meaningful for AnchorAfterLine / AnchorBeforeLine

	// OpAddFile
	Content string

	// SourceItemID names the Item (by id) that produced this op, for
	// per-item patch output and diagnostics. Empty for synthetic ops.
	SourceItemID string
}

// SortKey orders ops within a file in descending target-line order so
// that applying them top-to-bottom against the same original buffer
// keeps earlier line numbers stable. AddFile/DeleteFile sort last.
func (op PatchOp) SortKey() int {
	switch op.Kind {
	case OpReplaceRange:
		return op.StartLine
	case OpInsertAt:
		switch op.AnchorKind {
		case AnchorAfterLine:
			return op.Line
		case AnchorBeforeLine:
			return op.Line - 1
		case AnchorFileEnd:
			return 1 << 30
		default: // FileStart, AfterShebangAndEncoding, AfterImportBlock
			return 0
		}
	default:
		return -1
	}
}
