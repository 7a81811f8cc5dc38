// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package prompt assembles the model request: system instruction selected by
// intent, retrieved context, a bounded window of recent turns, a compressed
// topic summary of older history, and the new message.
//
// The assembler is deterministic: identical inputs always produce an
// identical message list. All variability belongs to the model call.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

// HistoryWindow is how many of the most recent prior turns are included
// verbatim. Older turns are compressed into a topic list.
const HistoryWindow = 4

// EnglishOnlyInstruction is appended as a user message for the single
// regeneration attempt after a language-check failure.
const EnglishOnlyInstruction = "Respond only in English. Do not use any other language, even partially."

// basePersona is shared by all on-topic system prompts.
const basePersona = "You are the KaziPath mentor, a friendly career guide for young people " +
	"and first-time job seekers. Always respond in English. Keep answers encouraging, " +
	"practical, and appropriate for an audience that includes minors. Never give medical, " +
	"legal, or financial advice beyond general guidance. When the provided context " +
	"contains relevant entries, base your answer on them and mention which career " +
	"profiles or articles you used."

// systemPrompts maps each intent to its instruction variant. Terminal
// intents never reach the assembler, but templates exist so the selection is
// total.
var systemPrompts = map[datatypes.IntentType]string{
	datatypes.IntentGreeting:      basePersona + " The user is opening the conversation; greet them back briefly and invite a career question.",
	datatypes.IntentCareerExplain: basePersona + " Explain what the career involves day to day, what it requires, and one realistic first step.",
	datatypes.IntentCareerExplore: basePersona + " Help the user discover careers that could suit them; ask at most one clarifying question and suggest two or three directions.",
	datatypes.IntentEducationPath: basePersona + " Lay out the study or training route step by step, including low-cost alternatives where they exist.",
	datatypes.IntentJobSearch:     basePersona + " Give concrete job-search help: where to look, how to apply, and how to prepare.",
	datatypes.IntentPlatformHelp:  basePersona + " Answer using the platform help articles in the context; if the context does not cover it, say what you do know and point the user to the help centre.",
	datatypes.IntentLifeSkills:    basePersona + " Coach the user on the life skill they asked about with one small exercise they can try this week.",
	datatypes.IntentUnsafe:        basePersona,
	datatypes.IntentOffTopic:      basePersona,
}

// Assembler builds model message lists.
type Assembler struct {
	window int
}

// NewAssembler returns an assembler with the standard history window.
func NewAssembler() *Assembler {
	return &Assembler{window: HistoryWindow}
}

// Assemble builds the full message list for the model.
//
// Layout: one system message (intent variant + optional user goal + optional
// topic summary of older history + retrieved context), then the last
// HistoryWindow prior turns verbatim, then the new user message.
func (a *Assembler) Assemble(intent datatypes.IntentType, contextBlock string,
	history []datatypes.Message, userGoal, message string) []datatypes.Message {

	var sys strings.Builder
	sys.WriteString(systemPrompts[intent])

	if goal := strings.TrimSpace(userGoal); goal != "" {
		fmt.Fprintf(&sys, "\n\nThe user's stated goal: %s. Relate your answer to it where natural.", goal)
	}

	recent, older := splitHistory(history, a.window)
	if topics := summarizeTopics(older); topics != "" {
		fmt.Fprintf(&sys, "\n\nEarlier in this conversation the user asked about: %s.", topics)
	}

	if contextBlock != "" {
		sys.WriteString("\n\nContext from the KaziPath library:\n")
		sys.WriteString(contextBlock)
	} else {
		sys.WriteString("\n\nNo library context was found for this question; answer from general knowledge and say so if you are unsure.")
	}

	messages := make([]datatypes.Message, 0, len(recent)+2)
	messages = append(messages, datatypes.Message{Role: datatypes.RoleSystem, Content: sys.String()})
	messages = append(messages, recent...)
	messages = append(messages, datatypes.Message{Role: datatypes.RoleUser, Content: message})
	return messages
}

// splitHistory returns the last `window` turns and everything before them.
func splitHistory(history []datatypes.Message, window int) (recent, older []datatypes.Message) {
	if len(history) <= window {
		return history, nil
	}
	return history[len(history)-window:], history[:len(history)-window]
}

var wordPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z'-]{4,}`)

// topicStopwords are common words excluded from topic summaries.
var topicStopwords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "because": {}, "being": {},
	"could": {}, "every": {}, "really": {}, "should": {}, "their": {},
	"there": {}, "these": {}, "thing": {}, "things": {}, "think": {},
	"want": {}, "wanted": {}, "where": {}, "which": {}, "while": {},
	"would": {}, "please": {}, "thanks": {}, "thank": {}, "hello": {},
}

// maxTopics caps the summary so long conversations cannot grow the prompt.
const maxTopics = 12

// summarizeTopics compresses older user turns into a short, deterministic
// topic list: distinct significant words in order of first appearance.
func summarizeTopics(older []datatypes.Message) string {
	if len(older) == 0 {
		return ""
	}

	seen := make(map[string]struct{})
	topics := make([]string, 0, maxTopics)
	for _, m := range older {
		if m.Role != datatypes.RoleUser {
			continue
		}
		for _, w := range wordPattern.FindAllString(strings.ToLower(m.Content), -1) {
			if _, stop := topicStopwords[w]; stop {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			topics = append(topics, w)
			if len(topics) == maxTopics {
				return strings.Join(topics, ", ")
			}
		}
	}
	return strings.Join(topics, ", ")
}
