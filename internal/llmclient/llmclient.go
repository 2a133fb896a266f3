// Package llmclient dispatches batches to a provider and returns raw JSON
// assistant content, without knowing anything about docstrings: the
// provider boundary only deals with (system, user, schema) in and a JSON
// string out.
package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Request is one batch's dispatch unit.
type Request struct {
	BatchIndex      int
	System          string
	User            string
	Schema          json.RawMessage // JSON-Schema constraining the response shape
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// Response is the raw assistant content returned by a provider, plus
// bookkeeping useful for persisting raw_responses/batch_NNN.json verbatim.
type Response struct {
	Content    string
	UsedSchema bool // true if the provider honored structured output
}

// Service is implemented by every provider, including the mock.
type Service interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	TokenContextWindow() int
}

// LlmClientError wraps a transport or protocol failure, flagging whether
// the caller should retry.
type LlmClientError struct {
	Retryable bool
	Err       error
}

func (e *LlmClientError) Error() string {
	return fmt.Sprintf("llmclient: %v (retryable=%v)", e.Err, e.Retryable)
}

func (e *LlmClientError) Unwrap() error { return e.Err }

// MustSchema validates that schema has at least type=object and a
// properties key, panicking otherwise — the same guardrail the teacher's
// llm.MustSchema applies before a schema is ever sent on the wire.
func MustSchema(schema string) json.RawMessage {
	schema = strings.TrimSpace(schema)
	var obj map[string]any
	if err := json.Unmarshal([]byte(schema), &obj); err != nil {
		panic("llmclient: invalid JSON schema: " + err.Error())
	}
	if typ, ok := obj["type"]; !ok || typ != "object" {
		panic("llmclient: JSON schema must have type=\"object\": " + schema)
	}
	if _, ok := obj["properties"]; !ok {
		panic("llmclient: JSON schema must have a \"properties\" key: " + schema)
	}
	return json.RawMessage(schema)
}

// isUnsupportedParamError reports whether err's message indicates the
// provider rejected the structured-output parameter, per spec.md 4.4's
// fallback trigger list.
func isUnsupportedParamError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, needle := range []string{"Unsupported parameter", "Unknown parameter", "response_format", "text.format"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
