package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

// OpenAIClient is the production model gateway backed by the OpenAI chat
// completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds the gateway from an explicit credential and model
// name. It fails fast with ErrNotConfigured when the key is absent or does
// not look like an API key, so the caller can switch to fallback-only mode
// without ever attempting a network call.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" || !strings.HasPrefix(apiKey, "sk-") || len(apiKey) < 20 {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("model name not set, defaulting to gpt-4o-mini")
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Chat implements the LLMClient interface.
func (o *OpenAIClient) Chat(ctx context.Context, messages []datatypes.Message,
	params GenerationParams, tools []ToolSpec) (*Completion, error) {

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	choice := resp.Choices[0]
	completion := &Completion{Text: choice.Message.Content}

	// At most one tool call is acted on per turn; extras are ignored.
	if len(choice.Message.ToolCalls) > 0 {
		tc := choice.Message.ToolCalls[0]
		args := map[string]string{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			slog.Warn("Discarding malformed tool call arguments",
				"tool", tc.Function.Name, "error", err)
		} else {
			completion.ToolCall = &datatypes.ToolInvocation{
				Name:      tc.Function.Name,
				Arguments: args,
			}
		}
	}

	slog.Debug("Received response from OpenAI", "finish_reason", choice.FinishReason)
	return completion, nil
}
