package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
)

// AnthropicService dispatches batches to Claude. The Messages API has no
// response_format/json_schema knob, so structured output is obtained by
// forcing a single tool call whose input_schema mirrors the batch's
// response schema and reading back the tool call's input as the JSON
// result — spec.md 4.4's "structured output endpoint" adapted to the
// shape Anthropic actually exposes (see DESIGN.md).
type AnthropicService struct {
	sdk       anthropic.Client
	model     string
	ctxWindow int
	maxTokens int64
}

func NewAnthropicService(apiKey, baseURL, model string, ctxWindow int, httpc *http.Client) *AnthropicService {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpc),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(baseURL, "/")))
	}
	return &AnthropicService{
		sdk:       anthropic.NewClient(opts...),
		model:     model,
		ctxWindow: ctxWindow,
		maxTokens: 4096,
	}
}

func (s *AnthropicService) TokenContextWindow() int { return s.ctxWindow }

const structuredToolName = "emit_batch_result"

func (s *AnthropicService) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := s.maxTokens
	if req.MaxOutputTokens > 0 {
		maxTokens = int64(req.MaxOutputTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}

	usedSchema := false
	if len(req.Schema) > 0 {
		props, required := schemaPropertiesAndRequired(req.Schema)
		params.Tools = []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        structuredToolName,
					Description: anthropic.String("Emit the batch's validated result object."),
					InputSchema: anthropic.ToolInputSchemaParam{
						Type:       constant.ValueOf[constant.Object](),
						Properties: props,
						Required:   required,
					},
				},
			},
		}
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: structuredToolName},
		}
		usedSchema = true
	}

	resp, err := s.sdk.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		retryable := errors.As(err, &apiErr) && apiErr.StatusCode >= 500
		return nil, &LlmClientError{Retryable: retryable, Err: err}
	}

	if usedSchema {
		for _, block := range resp.Content {
			switch v := block.AsAny().(type) {
			case anthropic.ToolUseBlock:
				if v.Name != structuredToolName {
					continue
				}
				raw, err := json.Marshal(v.Input)
				if err != nil {
					return nil, &LlmClientError{Retryable: false, Err: fmt.Errorf("anthropic: marshaling tool input: %w", err)}
				}
				return &Response{Content: string(raw), UsedSchema: true}, nil
			}
		}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	return &Response{Content: text.String(), UsedSchema: false}, nil
}

// schemaPropertiesAndRequired extracts the "properties"/"required" members
// of a JSON-Schema document for embedding into an Anthropic tool's
// input_schema, which wants only the object body rather than the
// wrapping {"type":"object",...}.
func schemaPropertiesAndRequired(schema json.RawMessage) (map[string]any, []string) {
	var obj map[string]any
	if err := json.Unmarshal(schema, &obj); err != nil {
		return map[string]any{}, nil
	}
	props, _ := obj["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	var required []string
	if raw, ok := obj["required"].([]any); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				required = append(required, s)
			}
		}
	}
	return props, required
}
