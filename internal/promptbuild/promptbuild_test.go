package promptbuild

import (
	"encoding/json"
	"strings"
	"testing"

	"docmaint/internal/model"
)

func sampleBatch() model.Batch {
	item := model.Item{
		Suspect: model.Suspect{
			ID:          "01ABC",
			Name:        "foo",
			SymbolType:  model.SymbolFunction,
			Signature:   "def foo(x):",
			ContextCode: "def foo(x):\n    return x\n",
		},
		Mode: model.ModeCreate,
	}
	return model.Batch{Items: []model.Item{item}, Ids: []string{"01ABC"}}
}

func TestRenderIncludesAllowedIds(t *testing.T) {
	system, user := Render(sampleBatch())
	if !strings.Contains(system, "JSON only") {
		t.Errorf("system prompt missing JSON contract: %s", system)
	}
	if !strings.Contains(user, "id: 01ABC") {
		t.Errorf("user prompt missing id block: %s", user)
	}
	if !strings.Contains(user, "mode: create") {
		t.Errorf("user prompt missing mode: %s", user)
	}
	if !strings.Contains(user, "allowed_ids: 01ABC") {
		t.Errorf("user prompt missing allowed_ids: %s", user)
	}
}

func TestRenderRewriteMode(t *testing.T) {
	batch := sampleBatch()
	batch.Items[0].Mode = model.ModeRewrite
	_, user := Render(batch)
	if !strings.Contains(user, "mode: rewrite") {
		t.Errorf("user prompt missing mode rewrite: %s", user)
	}
}

func TestResponseSchemaConstrainsIds(t *testing.T) {
	schema := ResponseSchema(sampleBatch())
	var obj map[string]any
	if err := json.Unmarshal(schema, &obj); err != nil {
		t.Fatal(err)
	}
	props := obj["properties"].(map[string]any)
	items := props["items"].(map[string]any)
	itemSchema := items["items"].(map[string]any)
	idProp := itemSchema["properties"].(map[string]any)["id"].(map[string]any)
	enum := idProp["enum"].([]any)
	if len(enum) != 1 || enum[0] != "01ABC" {
		t.Errorf("enum = %v, want [01ABC]", enum)
	}
}
