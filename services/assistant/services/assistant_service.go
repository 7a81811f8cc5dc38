// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services holds the assistant's business logic, separated from the
// HTTP handlers.
//
// AssistantService is the pipeline orchestrator: it owns the turn order
// (rate limit, classify, retrieve, assemble, generate, validate, tools,
// persist) and guarantees that every path out of it produces a complete,
// safe ChatResponse. Dependencies are injected via the constructor so each
// stage can be replaced in tests.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
	"github.com/kazipath/kazipath/services/assistant/fallback"
	"github.com/kazipath/kazipath/services/assistant/intent"
	"github.com/kazipath/kazipath/services/assistant/llm"
	"github.com/kazipath/kazipath/services/assistant/observability"
	"github.com/kazipath/kazipath/services/assistant/prompt"
	"github.com/kazipath/kazipath/services/assistant/ratelimit"
	"github.com/kazipath/kazipath/services/assistant/retrieval"
	"github.com/kazipath/kazipath/services/assistant/tools"
	"github.com/kazipath/kazipath/services/assistant/validation"
)

var pipelineTracer = otel.Tracer("kazipath.assistant.pipeline")

// DefaultTurnDeadline bounds one whole chat turn, covering retrieval, both
// model calls, and validation. Chosen so the slowest legitimate turn
// (generation plus one regeneration) fits with room to spare.
const DefaultTurnDeadline = 30 * time.Second

// Generation parameters. The regeneration pass runs colder so the explicit
// English-only instruction dominates.
const (
	initialTemperature  = 0.7
	regenTemperature    = 0.2
	maxCompletionTokens = 512
)

// modelCallTimeout bounds each individual model call; the turn deadline
// bounds the pair.
const modelCallTimeout = 20 * time.Second

// =============================================================================
// Dependency contracts
// =============================================================================

// Retriever fetches library context for a query. Never fails; degraded
// branches return empty.
type Retriever interface {
	Retrieve(ctx context.Context, query string) datatypes.RetrievalBundle
}

// HistoryStore is the subset of the history package the pipeline needs.
type HistoryStore interface {
	AppendTurn(turn datatypes.ChatTurn)
	LogIntent(identity string, intent datatypes.IntentType)
	RecentTurns(ctx context.Context, ownerID string, n int, asc bool) ([]datatypes.ChatTurn, error)
}

// Compile-time check that the real engine satisfies the contract.
var _ Retriever = (*retrieval.Engine)(nil)

// =============================================================================
// Service
// =============================================================================

// AssistantService runs the guarded chat pipeline.
type AssistantService struct {
	limiter   *ratelimit.Limiter
	retriever Retriever
	assembler *prompt.Assembler
	model     llm.LLMClient // nil when the model gateway is not configured
	executor  *tools.Executor
	store     HistoryStore // nil when history is disabled
	metrics   *observability.AssistantMetrics

	turnDeadline time.Duration
	historyLimit int
	toolsEnabled bool
}

// AssistantOption customizes an AssistantService.
type AssistantOption func(*AssistantService)

// WithTurnDeadline overrides the whole-turn deadline.
func WithTurnDeadline(d time.Duration) AssistantOption {
	return func(s *AssistantService) { s.turnDeadline = d }
}

// WithHistoryLimit sets how many persisted turns are loaded for assembly.
func WithHistoryLimit(n int) AssistantOption {
	return func(s *AssistantService) { s.historyLimit = n }
}

// WithLifeSkillTool enables offering the recommend_life_skill tool to the
// model.
func WithLifeSkillTool(enabled bool) AssistantOption {
	return func(s *AssistantService) { s.toolsEnabled = enabled }
}

// NewAssistantService wires the pipeline. model and store may be nil: a nil
// model puts the service in fallback-only mode, a nil store disables
// persistence. Everything else is required.
func NewAssistantService(
	limiter *ratelimit.Limiter,
	retriever Retriever,
	assembler *prompt.Assembler,
	model llm.LLMClient,
	executor *tools.Executor,
	store HistoryStore,
	metrics *observability.AssistantMetrics,
	opts ...AssistantOption,
) *AssistantService {
	s := &AssistantService{
		limiter:      limiter,
		retriever:    retriever,
		assembler:    assembler,
		model:        model,
		executor:     executor,
		store:        store,
		metrics:      metrics,
		turnDeadline: DefaultTurnDeadline,
		historyLimit: 20,
		toolsEnabled: false,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// emptySources is the sources block for paths that never retrieved. The
// arrays are present-but-empty so the response shape never changes.
func emptySources() datatypes.SourceRefs {
	return datatypes.SourceRefs{
		Careers:  []datatypes.SourceRef{},
		HelpDocs: []datatypes.SourceRef{},
		QA:       []datatypes.SourceRef{},
	}
}

// Process runs one chat turn end to end and always returns a complete
// response. It has no error return on purpose: every internal failure maps
// to a user-facing outcome (fallback text, rate-limit notice, sign-in
// prompt), never a 5xx.
func (s *AssistantService) Process(ctx context.Context, identity string, req datatypes.ChatRequest) *datatypes.ChatResponse {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.turnDeadline)
	defer cancel()

	ctx, span := pipelineTracer.Start(ctx, "AssistantService.Process")
	defer span.End()

	resp := s.process(ctx, identity, req)

	outcome := observability.OutcomeDelivered
	switch {
	case resp.RequiresAuth:
		outcome = observability.OutcomeRequiresAuth
	case resp.RateLimited:
		outcome = observability.OutcomeRateLimited
	case resp.fellBack:
		outcome = observability.OutcomeFallback
	}
	span.SetAttributes(
		attribute.String("assistant.intent", resp.Intent),
		attribute.String("assistant.outcome", outcome),
	)
	if s.metrics != nil {
		s.metrics.RequestsTotal.WithLabelValues(orUnknown(resp.Intent), outcome).Inc()
		s.metrics.TurnDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
	return &resp.ChatResponse
}

// processResult carries the wire response plus pipeline-internal flags the
// caller must never see.
type processResult struct {
	datatypes.ChatResponse
	fellBack bool
}

func (s *AssistantService) process(ctx context.Context, identity string, req datatypes.ChatRequest) *processResult {
	// Stage 0: identity. Absence is a designed conversational outcome, not
	// an HTTP error.
	if strings.TrimSpace(identity) == "" {
		return &processResult{ChatResponse: datatypes.ChatResponse{
			Message:      fallback.SignInRequired(),
			Sources:      emptySources(),
			RequiresAuth: true,
		}}
	}

	// Stage 1: rate limit, before any other work.
	decision := s.limiter.Allow("chat:" + identity)
	if !decision.Allowed {
		slog.Info("Chat request rate limited",
			"identity_hash_prefix", shortHash(identity), "retry_after", decision.RetryAfter)
		s.countFallback("rate_limited")
		return &processResult{ChatResponse: datatypes.ChatResponse{
			Message:     fallback.RateLimited(),
			Sources:     emptySources(),
			RateLimited: true,
		}}
	}

	// Stage 2: intent classification. Every classified turn feeds the
	// anonymous intent telemetry stream, whatever path it takes afterwards.
	msgIntent := intent.Classify(req.Message)
	if s.store != nil {
		s.store.LogIntent(identity, msgIntent)
	}

	// Terminal intents: no retrieval, no model, no conversational history.
	if msgIntent.IsTerminal() {
		reason := "off_topic"
		if msgIntent == datatypes.IntentUnsafe {
			reason = "unsafe_intent"
		}
		s.countFallback(reason)
		return &processResult{
			ChatResponse: datatypes.ChatResponse{
				Message: fallback.Respond(msgIntent, req.Message),
				Intent:  msgIntent.String(),
				Sources: emptySources(),
			},
			fellBack: true,
		}
	}

	// Stage 3: concurrent retrieval across the three corpora. Degradation
	// inside the engine is invisible here; worst case is an empty bundle.
	bundle := s.retriever.Retrieve(ctx, req.Message)

	// Stage 4: prompt assembly over the request history, or the persisted
	// history when the request carries none.
	history := req.ConversationHistory
	if len(history) == 0 && s.store != nil {
		turns, err := s.store.RecentTurns(ctx, identity, s.historyLimit, true)
		if err != nil {
			slog.Warn("Failed to load conversation history, assembling without it", "error", err)
		} else {
			history = turnsToMessages(turns)
		}
	}
	contextBlock := retrieval.FormatContext(bundle)
	messages := s.assembler.Assemble(msgIntent, contextBlock, history, req.UserGoal, req.Message)

	// Stage 5: generation. An unconfigured or failing model degrades to the
	// fallback template, with intent and sources intact.
	resp := s.generate(ctx, identity, msgIntent, req, messages, bundle)

	// Stage 7 (async): persist both halves of the exchange. Fire-and-forget.
	if s.store != nil {
		s.store.AppendTurn(datatypes.NewChatTurn(identity, datatypes.RoleUser, req.Message, ""))
		s.store.AppendTurn(datatypes.NewChatTurn(identity, datatypes.RoleAssistant, resp.Message, msgIntent))
	}
	return resp
}

// generate runs the model call, validation, the bounded regeneration, and
// tool execution. It owns stages 5 and 6.
func (s *AssistantService) generate(ctx context.Context, identity string, msgIntent datatypes.IntentType,
	req datatypes.ChatRequest, messages []datatypes.Message, bundle datatypes.RetrievalBundle) *processResult {

	fellBack := func(reason string) *processResult {
		s.countFallback(reason)
		return &processResult{
			ChatResponse: datatypes.ChatResponse{
				Message: fallback.Respond(msgIntent, req.Message),
				Intent:  msgIntent.String(),
				Sources: bundle.Sources(),
			},
			fellBack: true,
		}
	}

	if s.model == nil {
		return fellBack("model_unconfigured")
	}

	var toolSpecs []llm.ToolSpec
	if s.toolsEnabled {
		toolSpecs = []llm.ToolSpec{lifeSkillToolSpec()}
	}

	genCtx, cancelGen := context.WithTimeout(ctx, modelCallTimeout)
	completion, err := s.model.Chat(genCtx, messages, llm.GenerationParams{
		Temperature: llm.Float32Ptr(initialTemperature),
		MaxTokens:   llm.IntPtr(maxCompletionTokens),
	}, toolSpecs)
	cancelGen()
	if err != nil {
		slog.Error("Model generation failed", "intent", msgIntent, "error", err)
		return fellBack("model_error")
	}
	if strings.TrimSpace(completion.Text) == "" && completion.ToolCall == nil {
		return fellBack("empty_completion")
	}

	// Stage 5b: validation with the single regeneration closure. The
	// regeneration replays the same conversation with an explicit
	// English-only instruction, colder and without tools.
	regen := func(ctx context.Context) (string, error) {
		if s.metrics != nil {
			s.metrics.RegenerationsTotal.Inc()
		}
		redo := append(append([]datatypes.Message{}, messages...),
			datatypes.Message{Role: datatypes.RoleUser, Content: prompt.EnglishOnlyInstruction})
		ctx, cancel := context.WithTimeout(ctx, modelCallTimeout)
		defer cancel()
		c, err := s.model.Chat(ctx, redo, llm.GenerationParams{
			Temperature: llm.Float32Ptr(regenTemperature),
			MaxTokens:   llm.IntPtr(maxCompletionTokens),
		}, nil)
		if err != nil {
			return "", err
		}
		return c.Text, nil
	}

	outcome, verr := validation.NewValidator().Validate(ctx, completion.Text, regen)
	if verr != nil {
		slog.Error("Validation state machine error", "error", verr)
		return fellBack("validation")
	}
	if !outcome.Delivered() {
		slog.Info("Draft rejected by validation", "reason", outcome.FallbackReason)
		return fellBack("validation")
	}

	// A tool-only completion can reach this point with no text at all.
	// An empty message is never deliverable, so the turn falls back before
	// any tool side effect.
	if strings.TrimSpace(outcome.Text) == "" {
		slog.Info("Validated draft was empty, falling back", "intent", msgIntent)
		return fellBack("empty_completion")
	}

	resp := &processResult{ChatResponse: datatypes.ChatResponse{
		Message: outcome.Text,
		Intent:  msgIntent.String(),
		Sources: bundle.Sources(),
	}}

	// Stage 6: tool execution, strictly after validation so a rejected
	// draft can never trigger a side effect.
	if s.toolsEnabled && completion.ToolCall != nil && s.executor != nil {
		rec := s.executor.Execute(ctx, identity, *completion.ToolCall)
		result := "rejected"
		if rec != nil {
			result = "applied"
			resp.LifeSkillRecommended = rec
		}
		if s.metrics != nil {
			s.metrics.ToolExecutionsTotal.WithLabelValues(completion.ToolCall.Name, result).Inc()
		}
	}
	return resp
}

// lifeSkillToolSpec is the schema the model sees for the single allow-listed
// tool.
func lifeSkillToolSpec() llm.ToolSpec {
	return llm.ToolSpec{
		Name: tools.ToolRecommendLifeSkill,
		Description: "Recommend exactly one life skill for the user to develop, " +
			"when the conversation makes one clearly relevant.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"skill_key": map[string]any{
					"type": "string",
					"enum": tools.AllowedSkillKeys(),
				},
				"reason": map[string]any{
					"type":        "string",
					"description": "One sentence, addressed to the user, on why this skill helps them.",
				},
			},
			"required": []string{"skill_key", "reason"},
		},
	}
}

// orUnknown substitutes a placeholder label when no intent was classified
// (auth and rate-limit short circuits), keeping metric cardinality fixed.
func orUnknown(intentLabel string) string {
	if intentLabel == "" {
		return "none"
	}
	return intentLabel
}

func (s *AssistantService) countFallback(reason string) {
	if s.metrics != nil {
		s.metrics.FallbacksTotal.WithLabelValues(reason).Inc()
	}
}

// turnsToMessages projects persisted turns into model messages.
func turnsToMessages(turns []datatypes.ChatTurn) []datatypes.Message {
	out := make([]datatypes.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, datatypes.Message{Role: t.Role, Content: t.Content})
	}
	return out
}

// shortHash gives logs a stable, non-identifying handle for an identity.
func shortHash(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:4])
}
