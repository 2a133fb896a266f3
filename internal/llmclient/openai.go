package llmclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIService dispatches batches through an OpenAI-compatible chat
// completions endpoint (OpenAI itself, or any provider exposing the same
// wire format the way the teacher's oai.go routes many vendors through
// one client).
type OpenAIService struct {
	client    *openai.Client
	model     string
	ctxWindow int

	// jsonSchemaRejected flips once the provider rejects the json_schema
	// response format; later batches skip straight to json_object mode.
	// Atomic because batches dispatch concurrently.
	jsonSchemaRejected atomic.Bool
}

// NewOpenAIService builds a provider against baseURL (empty means the
// public OpenAI API).
func NewOpenAIService(apiKey, baseURL, model string, ctxWindow int, httpc *http.Client) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpc != nil {
		cfg.HTTPClient = httpc
	}
	return &OpenAIService{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		ctxWindow: ctxWindow,
	}
}

func (s *OpenAIService) TokenContextWindow() int { return s.ctxWindow }

var backoffSchedule = []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second, 15 * time.Second}

func (s *OpenAIService) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.System},
		{Role: openai.ChatMessageRoleUser, Content: req.User},
	}

	ccReq := openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxOutputTokens,
	}
	usedSchema := false
	if !s.jsonSchemaRejected.Load() && len(req.Schema) > 0 {
		ccReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   fmt.Sprintf("batch_%03d", req.BatchIndex),
				Schema: req.Schema,
				Strict: true,
			},
		}
		usedSchema = true
	} else if len(req.Schema) > 0 {
		ccReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var errs error
	for attempt := 0; ; attempt++ {
		if attempt > 10 {
			return nil, &LlmClientError{Retryable: false, Err: fmt.Errorf("openai request failed after %d attempts: %w", attempt, errs)}
		}
		if attempt > 0 {
			sleep := backoffSchedule[min(attempt, len(backoffSchedule)-1)] + time.Duration(rand.Int64N(int64(time.Second)))
			slog.WarnContext(ctx, "llmclient openai sleep before retry", "sleep", sleep, "attempt", attempt)
			time.Sleep(sleep)
		}

		resp, err := s.client.CreateChatCompletion(ctx, ccReq)
		if err == nil {
			content := ""
			if len(resp.Choices) > 0 {
				content = resp.Choices[0].Message.Content
			}
			return &Response{Content: content, UsedSchema: usedSchema}, nil
		}

		if usedSchema && isUnsupportedParamError(err) {
			slog.WarnContext(ctx, "llmclient openai falling back to json_object response format", "batch", req.BatchIndex)
			s.jsonSchemaRejected.Store(true)
			ccReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
			usedSchema = false
			errs = errors.Join(errs, err)
			continue
		}

		var apiErr *openai.APIError
		if !errors.As(err, &apiErr) {
			return nil, &LlmClientError{Retryable: false, Err: errors.Join(errs, err)}
		}
		switch {
		case apiErr.HTTPStatusCode >= 500, apiErr.HTTPStatusCode == 429:
			errs = errors.Join(errs, fmt.Errorf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Error()))
			continue
		case apiErr.HTTPStatusCode >= 400:
			return nil, &LlmClientError{Retryable: false, Err: errors.Join(errs, fmt.Errorf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Error()))}
		default:
			errs = errors.Join(errs, fmt.Errorf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Error()))
			continue
		}
	}
}
