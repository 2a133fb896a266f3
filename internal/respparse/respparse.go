// Package respparse turns a batch's raw assistant content into validated
// LlmResults, tolerating the ways models mangle JSON: markdown fences,
// smart quotes, unescaped newlines inside strings, trailing commas, and
// outright garbage around a valid object.
package respparse

import (
	"encoding/json"
	"strings"

	"docmaint/internal/model"
)

type wireItem struct {
	ID        string `json:"id"`
	Mode      string `json:"mode"`
	Docstring string `json:"docstring"`
}

type wireEnvelope struct {
	Items   []wireItem `json:"items"`
	Results []wireItem `json:"results"`
}

// Parse extracts LlmResults from raw, constrained to allowedIDs. It never
// errors: on total garbage it returns an empty slice. Unknown ids are
// silently dropped; duplicate ids keep the first occurrence.
func Parse(raw string, allowedIDs map[string]bool) []model.LlmResult {
	if items, ok := strictParse(raw); ok {
		return toResults(items, allowedIDs)
	}
	return toResults(salvageParse(raw), allowedIDs)
}

func strictParse(raw string) ([]wireItem, bool) {
	var env wireEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, false
	}
	if len(env.Items) > 0 {
		return env.Items, true
	}
	if len(env.Results) > 0 {
		return env.Results, true
	}
	return nil, false
}

func toResults(items []wireItem, allowedIDs map[string]bool) []model.LlmResult {
	seen := make(map[string]bool, len(items))
	var out []model.LlmResult
	for _, it := range items {
		if it.ID == "" || it.Docstring == "" {
			continue
		}
		if allowedIDs != nil && !allowedIDs[it.ID] {
			continue
		}
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		mode, err := model.ParseMode(it.Mode)
		if err != nil {
			mode = model.ModeRewrite
		}
		out = append(out, model.LlmResult{ID: it.ID, Mode: mode, Docstring: it.Docstring})
	}
	return out
}

// salvageParse runs the five-step recovery pipeline from spec.md 4.5 when
// strict parsing fails.
func salvageParse(raw string) []wireItem {
	cleaned := stripCodeFences(raw)
	cleaned = normalizeQuotes(cleaned)
	cleaned = escapeRawNewlinesInStrings(cleaned)
	cleaned = stripTrailingCommas(cleaned)

	if items, ok := strictParse(cleaned); ok {
		return items
	}

	var salvaged []wireItem
	for _, candidate := range balancedObjects(cleaned) {
		var it wireItem
		if err := json.Unmarshal([]byte(candidate), &it); err != nil {
			continue
		}
		if it.ID != "" && it.Docstring != "" {
			salvaged = append(salvaged, it)
		}
	}
	return salvaged
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return s
}

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
)

func normalizeQuotes(s string) string {
	return quoteReplacer.Replace(s)
}

// escapeRawNewlinesInStrings walks the text tracking whether it is inside
// a JSON string literal, replacing any literal newline found there with
// the two-character escape \n, since a model will sometimes emit a raw
// newline inside a string value.
func escapeRawNewlinesInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\' && inString:
			b.WriteRune(r)
			escaped = true
		case r == '"':
			inString = !inString
			b.WriteRune(r)
		case inString && r == '\n':
			b.WriteString(`\n`)
		case inString && r == '\r':
			// drop; the paired \n (if any) carries the break
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripTrailingCommas removes a comma that appears right before a closing
// '}' or ']', ignoring commas inside string literals.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\' && inString:
			b.WriteRune(r)
			escaped = true
		case r == '"':
			inString = !inString
			b.WriteRune(r)
		case !inString && r == ',':
			if j := nextNonSpace(runes, i+1); j < len(runes) && (runes[j] == '}' || runes[j] == ']') {
				continue // drop the comma
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func nextNonSpace(runes []rune, from int) int {
	i := from
	for i < len(runes) && (runes[i] == ' ' || runes[i] == '\t' || runes[i] == '\n' || runes[i] == '\r') {
		i++
	}
	return i
}

// balancedObjects scans s for top-level balanced {...} substrings,
// ignoring braces that occur inside string literals.
func balancedObjects(s string) []string {
	var out []string
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
			// inside a string, ignore structural characters
		case r == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case r == '}':
			depth--
			if depth == 0 && start != -1 {
				out = append(out, s[start:i+1])
				start = -1
			}
		}
	}
	return out
}
