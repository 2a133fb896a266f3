package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MockService synthesizes deterministic PEP-257-ish docstrings without any
// network call, for tests and offline dry runs. It parses the user prompt
// built by promptbuild well enough to recover each item's id, mode, and
// name.
type MockService struct {
	ctxWindow int
}

func NewMockService(ctxWindow int) *MockService {
	if ctxWindow <= 0 {
		ctxWindow = 128_000
	}
	return &MockService{ctxWindow: ctxWindow}
}

func (s *MockService) TokenContextWindow() int { return s.ctxWindow }

var mockItemRe = regexp.MustCompile(`(?m)^id:\s*(\S+)\s*$[\s\S]*?^mode:\s*(\S+)\s*$(?:[\s\S]*?^name:\s*(\S*)\s*$)?`)

type mockItem struct {
	ID      string `json:"id"`
	Mode    string `json:"mode"`
	Doctext string `json:"docstring"`
}

func (s *MockService) Complete(ctx context.Context, req Request) (*Response, error) {
	matches := mockItemRe.FindAllStringSubmatch(req.User, -1)
	items := make([]mockItem, 0, len(matches))
	for _, m := range matches {
		id := m[1]
		mode := m[2]
		name := strings.TrimSpace(m[3])
		if name == "" {
			name = "this symbol"
		}
		items = append(items, mockItem{
			ID:      id,
			Mode:    mode,
			Doctext: fmt.Sprintf("Summarize %s.\n\nReturns a deterministic placeholder used only in tests.\n", name),
		})
	}
	payload := struct {
		Items []mockItem `json:"items"`
	}{Items: items}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &LlmClientError{Retryable: false, Err: err}
	}
	return &Response{Content: string(raw), UsedSchema: true}, nil
}
