// Package promptbuild renders a Batch into the two strings the LLM
// dispatcher sends: a fixed system prompt describing the task and
// contract, and a per-batch user prompt listing each item's compact
// YAML-like block.
package promptbuild

import (
	"encoding/json"
	"fmt"
	"strings"

	"docmaint/internal/model"
)

const systemPrompt = `You write and rewrite Python docstrings.

For every item below, produce a docstring in Google style: a one-line
summary ending with a period, a blank line, then an optional body.

Rules:
- Do not begin a summary with "This function", "This method", "This
  class", or "This module" — state what it does directly.
- mode "create" means the symbol has no docstring yet; mode "rewrite"
  means an existing docstring should be replaced with a better one.
- Echo each item's id exactly as given.
- Respond with JSON only, of exactly this shape:
  {"items":[{"id":"...","mode":"...","docstring":"..."}]}
- Do not include any item whose id was not given to you.
- Do not wrap the JSON in markdown code fences.
`

// Render produces (system, user) for one batch.
func Render(batch model.Batch) (system, user string) {
	var b strings.Builder
	for _, item := range batch.Items {
		writeItemBlock(&b, item)
		b.WriteString("---\n")
	}
	fmt.Fprintf(&b, "allowed_ids: %s\n", strings.Join(batch.Ids, ", "))
	return systemPrompt, b.String()
}

func writeItemBlock(b *strings.Builder, item model.Item) {
	fmt.Fprintf(b, "id: %s\n", item.ID)
	fmt.Fprintf(b, "mode: %s\n", wireString(item.Mode))
	fmt.Fprintf(b, "name: %s\n", blankToken(item.Name))
	fmt.Fprintf(b, "symbol_type: %s\n", item.SymbolType.String())
	fmt.Fprintf(b, "signature: %s\n", blankToken(item.Signature))
	fmt.Fprintf(b, "has_existing: %v\n", item.HasDocstring)
	if item.ExistingDoc != "" {
		fmt.Fprintf(b, "existing_docstring: |\n%s\n", indentBlock(item.ExistingDoc))
	}
	if item.Description != "" {
		fmt.Fprintf(b, "description: %s\n", item.Description)
	}
	fmt.Fprintf(b, "context: |\n%s\n", indentBlock(item.ContextCode))
}

func blankToken(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func indentBlock(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

// wireString renders Mode as the lowercase token the wire contract and
// the mock provider expect ("create"/"rewrite"), distinct from the
// stringer-generated String() used in logs ("ModeCreate"/"ModeRewrite").
func wireString(m model.Mode) string {
	if m == model.ModeCreate {
		return "create"
	}
	return "rewrite"
}

// ResponseSchema builds the JSON-Schema document constraining the
// response to this batch's allowed ids, per spec.md 4.3's "Response
// format" note.
func ResponseSchema(batch model.Batch) json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":        map[string]any{"type": "string", "enum": batch.Ids},
						"mode":      map[string]any{"type": "string", "enum": []string{"create", "rewrite"}},
						"docstring": map[string]any{"type": "string"},
					},
					"required": []string{"id", "mode", "docstring"},
				},
			},
		},
		"required": []string{"items"},
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		panic("promptbuild: building response schema: " + err.Error())
	}
	return raw
}
