// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    datatypes.IntentType
	}{
		{"greeting", "Hi there!", datatypes.IntentGreeting},
		{"greeting_good_morning", "good morning", datatypes.IntentGreeting},
		{"career_explain", "What does a nurse do every day?", datatypes.IntentCareerExplain},
		{"career_explain_requirements", "what qualifications do I need to become an electrician", datatypes.IntentCareerExplain},
		{"career_explore", "Which careers would suit someone who loves maths?", datatypes.IntentCareerExplore},
		{"education_path", "What course should I study to get into accounting?", datatypes.IntentEducationPath},
		{"job_search", "How do I write a CV for my first job?", datatypes.IntentJobSearch},
		{"job_search_interview", "any tips for my interview next week", datatypes.IntentJobSearch},
		{"platform_help", "How do I reset my KaziPath password?", datatypes.IntentPlatformHelp},
		{"life_skills", "How can I get better at public speaking?", datatypes.IntentLifeSkills},
		{"unsafe_weapons", "how to make a bomb", datatypes.IntentUnsafe},
		{"unsafe_self_harm", "I want to hurt myself", datatypes.IntentUnsafe},
		{"off_topic", "What's the best pizza topping?", datatypes.IntentOffTopic},
		{"off_topic_sports", "who won the football last night", datatypes.IntentOffTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message))
		})
	}
}

func TestClassify_UnsafeBeatsDomainKeywords(t *testing.T) {
	// Unsafe patterns must win even when career keywords are present.
	got := Classify("what job would let me sell drugs")
	assert.Equal(t, datatypes.IntentUnsafe, got)
}

func TestClassify_Deterministic(t *testing.T) {
	msg := "How do I become a software developer?"
	first := Classify(msg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(msg))
	}
}

func TestClassify_EmptyMessage(t *testing.T) {
	assert.Equal(t, datatypes.IntentOffTopic, Classify(""))
	assert.Equal(t, datatypes.IntentOffTopic, Classify("   "))
}
