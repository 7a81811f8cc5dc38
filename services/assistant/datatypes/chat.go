// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the wire and storage types shared across the
// assistant pipeline: requests, responses, conversation turns, intents, and
// the retrieval source union.
package datatypes

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Intents
// =============================================================================

// IntentType is the closed set of message categories the classifier can
// produce. The intent selects the system prompt variant and the fallback
// template, and annotates the assistant's side of a persisted exchange.
type IntentType string

const (
	// IntentUnsafe marks content that must never reach the model or the
	// conversational history. Terminal: the fallback responder answers.
	IntentUnsafe IntentType = "unsafe"

	// IntentOffTopic marks messages unrelated to careers, education, or the
	// platform. Terminal: the fallback responder redirects.
	IntentOffTopic IntentType = "off_topic"

	// IntentGreeting covers salutations and small openings.
	IntentGreeting IntentType = "greeting"

	// IntentCareerExplain asks what a specific career is or requires.
	IntentCareerExplain IntentType = "career_explain"

	// IntentCareerExplore asks which careers might suit the user.
	IntentCareerExplore IntentType = "career_explore"

	// IntentEducationPath asks about study routes, courses, or qualifications.
	IntentEducationPath IntentType = "education_path"

	// IntentJobSearch asks about finding, applying for, or interviewing for jobs.
	IntentJobSearch IntentType = "job_search"

	// IntentPlatformHelp asks how to use KaziPath itself.
	IntentPlatformHelp IntentType = "platform_help"

	// IntentLifeSkills asks about soft skills and personal development.
	IntentLifeSkills IntentType = "life_skills"
)

// String returns the intent as a plain string.
func (i IntentType) String() string { return string(i) }

// IsTerminal reports whether the pipeline must short-circuit to the fallback
// responder without retrieval or generation.
func (i IntentType) IsTerminal() bool {
	return i == IntentUnsafe || i == IntentOffTopic
}

// AllIntents lists every valid intent value. Used by the fallback responder
// to guarantee a template exists for each one.
func AllIntents() []IntentType {
	return []IntentType{
		IntentUnsafe, IntentOffTopic, IntentGreeting,
		IntentCareerExplain, IntentCareerExplore, IntentEducationPath,
		IntentJobSearch, IntentPlatformHelp, IntentLifeSkills,
	}
}

// =============================================================================
// Conversation
// =============================================================================

// Role values for conversation turns and model messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry in a model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatTurn is one persisted half of an exchange. Turns are append-only and
// immutable once written; ordering is by CreatedAt.
type ChatTurn struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Intent    IntentType `json:"intent,omitempty"` // assistant turns only
	CreatedAt time.Time  `json:"created_at"`
}

// NewChatTurn builds a turn with a fresh id and the current time.
func NewChatTurn(ownerID, role, content string, intent IntentType) ChatTurn {
	return ChatTurn{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Role:      role,
		Content:   content,
		Intent:    intent,
		CreatedAt: time.Now().UTC(),
	}
}

// =============================================================================
// HTTP request / response shapes
// =============================================================================

// ChatRequest is the inbound payload from the (out of scope) UI layer.
type ChatRequest struct {
	Message             string    `json:"message" binding:"required"`
	ConversationHistory []Message `json:"conversation_history,omitempty"`
	UserGoal            string    `json:"user_goal,omitempty"`
}

// LifeSkillRecommendation is returned when the model asked for (and the
// executor applied) a life-skill recommendation.
type LifeSkillRecommendation struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// ChatResponse is the stable response shape returned to the UI. Callers
// cannot and should not distinguish which internal path produced Message.
type ChatResponse struct {
	Message              string                   `json:"message"`
	Intent               string                   `json:"intent"`
	Sources              SourceRefs               `json:"sources"`
	RateLimited          bool                     `json:"rate_limited,omitempty"`
	RequiresAuth         bool                     `json:"requires_auth,omitempty"`
	LifeSkillRecommended *LifeSkillRecommendation `json:"life_skill_recommended,omitempty"`
}

// =============================================================================
// Tool invocations
// =============================================================================

// ToolInvocation is a structured side-effect request proposed by the model.
// It is validated against the executor's allow-list before anything happens.
type ToolInvocation struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}
