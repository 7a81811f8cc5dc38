package llm

import (
	"context"
	"errors"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

// ErrNotConfigured is returned when no usable model credential is present.
// The pipeline treats it as "model unavailable" and answers from the
// fallback responder instead. It is checked locally, before any network call.
var ErrNotConfigured = errors.New("llm backend is not configured")

// GenerationParams controls a single completion request.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

// ToolSpec describes one structured tool offered to the model. The assistant
// offers at most one (the life-skill recommendation).
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Completion is the model's reply: text, and optionally one tool invocation
// the model chose to make instead of or alongside the text.
type Completion struct {
	Text     string
	ToolCall *datatypes.ToolInvocation
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	// Chat sends the assembled message list and returns the completion.
	// tools may be nil for a plain text-only request.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams, tools []ToolSpec) (*Completion, error)
}

// Float32Ptr and IntPtr are small helpers for building GenerationParams.
func Float32Ptr(v float32) *float32 { return &v }
func IntPtr(v int) *int             { return &v }
