// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tools executes the structured side effects the model may propose.
// One tool exists today: recommend_life_skill. Everything else the model
// asks for is dropped.
package tools

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

var toolsTracer = otel.Tracer("kazipath.assistant.tools")

// ToolRecommendLifeSkill is the only allow-listed tool name.
const ToolRecommendLifeSkill = "recommend_life_skill"

// allowedSkills is the closed set of skill keys the recommendation tool
// accepts. The model is told this list in the tool schema; anything outside
// it is a hallucination and is dropped.
var allowedSkills = map[string]struct{}{
	"communication":      {},
	"teamwork":           {},
	"time_management":    {},
	"problem_solving":    {},
	"financial_literacy": {},
	"digital_literacy":   {},
	"leadership":         {},
	"entrepreneurship":   {},
}

// AllowedSkillKeys returns the allow-listed skill keys in a stable order,
// for the tool schema sent to the model.
func AllowedSkillKeys() []string {
	return []string{
		"communication", "teamwork", "time_management", "problem_solving",
		"financial_literacy", "digital_literacy", "leadership", "entrepreneurship",
	}
}

// RecommendationRecorder persists one (owner, skill) recommendation.
// Implementations must be idempotent: recording the same pair twice is a
// success, not an error.
type RecommendationRecorder interface {
	RecordRecommendation(ctx context.Context, ownerID, skillKey, reason string) error
}

// Executor validates and applies model-proposed tool invocations.
//
// Tool execution is strictly best-effort: whatever happens here, the user
// still gets their answer. Failures are logged and swallowed.
type Executor struct {
	recorder RecommendationRecorder
}

// NewExecutor returns an executor backed by the given recorder. A nil
// recorder is legal and turns execution into a validated no-op (the
// recommendation still surfaces in the response).
func NewExecutor(recorder RecommendationRecorder) *Executor {
	return &Executor{recorder: recorder}
}

// Execute applies a single tool invocation for ownerID. It returns the
// applied recommendation, or nil when the invocation was invalid. It never
// returns an error: a tool problem must not degrade the turn.
func (e *Executor) Execute(ctx context.Context, ownerID string, inv datatypes.ToolInvocation) *datatypes.LifeSkillRecommendation {
	ctx, span := toolsTracer.Start(ctx, "Executor.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", inv.Name))

	if inv.Name != ToolRecommendLifeSkill {
		slog.Warn("Model proposed a tool outside the allow-list, dropping",
			"tool", inv.Name)
		span.AddEvent("tool_not_allowed")
		return nil
	}

	skill := strings.TrimSpace(strings.ToLower(inv.Arguments["skill_key"]))
	if _, ok := allowedSkills[skill]; !ok {
		slog.Warn("Model proposed an unknown life-skill key, dropping",
			"skill_key", skill)
		span.AddEvent("skill_not_allowed")
		return nil
	}
	reason := strings.TrimSpace(inv.Arguments["reason"])

	if e.recorder != nil {
		if err := e.recorder.RecordRecommendation(ctx, ownerID, skill, reason); err != nil {
			// Best-effort: the recommendation still reaches the user even
			// when persisting it failed.
			slog.Warn("Failed to record life-skill recommendation",
				"skill_key", skill, "error", err)
			span.AddEvent("record_failed")
		}
	}

	return &datatypes.LifeSkillRecommendation{Key: skill, Reason: reason}
}
