// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
	"github.com/kazipath/kazipath/services/assistant/validation"
)

func TestRespond_CoversAllIntents(t *testing.T) {
	for _, intent := range datatypes.AllIntents() {
		t.Run(intent.String(), func(t *testing.T) {
			got := Respond(intent, "some message")
			require.NotEmpty(t, got)

			// Every canned response must pass the same checks model output
			// is held to.
			assert.True(t, validation.CheckSafety(got).Safe)
			assert.True(t, validation.CheckLanguage(got).IsTargetLanguage)
		})
	}
}

func TestRespond_SubTopicRefinement(t *testing.T) {
	generic := Respond(datatypes.IntentCareerExplain, "what does an architect do")
	nursing := Respond(datatypes.IntentCareerExplain, "what does a nurse do")
	assert.NotEqual(t, generic, nursing)
	assert.Contains(t, nursing, "nursing")

	cv := Respond(datatypes.IntentJobSearch, "help me write a cv")
	assert.Contains(t, cv, "CV")
}

func TestRespond_SubTopicRequiresMatchingIntent(t *testing.T) {
	// A nursing mention under a different intent must not pull the
	// career_explain sub-topic template.
	got := Respond(datatypes.IntentPlatformHelp, "the nurse page is broken")
	assert.Equal(t, templates[datatypes.IntentPlatformHelp], got)
}

func TestRespond_UnknownIntentStillAnswers(t *testing.T) {
	got := Respond(datatypes.IntentType("nonsense"), "hello")
	assert.Equal(t, templates[datatypes.IntentOffTopic], got)
}

func TestRespond_Deterministic(t *testing.T) {
	first := Respond(datatypes.IntentJobSearch, "how do I prepare for an interview")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Respond(datatypes.IntentJobSearch, "how do I prepare for an interview"))
	}
}

func TestRateLimitedAndSignInCopy(t *testing.T) {
	assert.NotEmpty(t, RateLimited())
	assert.NotEmpty(t, SignInRequired())
	assert.True(t, validation.CheckSafety(RateLimited()).Safe)
	assert.True(t, validation.CheckLanguage(SignInRequired()).IsTargetLanguage)
}
