// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frenchDraft = "Bonjour! Je suis ravi de vous aider. C'est une bonne question."

func countingRegen(text string, err error, calls *int) Regenerator {
	return func(ctx context.Context) (string, error) {
		*calls++
		return text, err
	}
}

func TestValidate_CleanDraftDelivered(t *testing.T) {
	calls := 0
	out, err := NewValidator().Validate(context.Background(),
		"Nursing is a great career path with steady demand.",
		countingRegen("unused", nil, &calls))

	require.NoError(t, err)
	assert.True(t, out.Delivered())
	assert.Equal(t, "Nursing is a great career path with steady demand.", out.Text)
	assert.False(t, out.Regenerated)
	assert.Equal(t, 0, calls)
}

func TestValidate_SafetyFailureIsTerminal(t *testing.T) {
	calls := 0
	out, err := NewValidator().Validate(context.Background(),
		"You should consider suicide prevention training... suicide is",
		countingRegen("unused", nil, &calls))

	require.NoError(t, err)
	assert.Equal(t, StateFallback, out.State)
	assert.Empty(t, out.Text)
	assert.False(t, out.Regenerated)
	// No regeneration for safety failures, ever.
	assert.Equal(t, 0, calls)
	assert.Contains(t, out.FallbackReason, "safety")
}

func TestValidate_LanguageFailureRegeneratesExactlyOnce(t *testing.T) {
	calls := 0
	out, err := NewValidator().Validate(context.Background(), frenchDraft,
		countingRegen("Here is the answer in English about careers.", nil, &calls))

	require.NoError(t, err)
	assert.True(t, out.Delivered())
	assert.True(t, out.Regenerated)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "Here is the answer in English about careers.", out.Text)
}

func TestValidate_RegeneratedDraftStillForeignFallsBack(t *testing.T) {
	calls := 0
	out, err := NewValidator().Validate(context.Background(), frenchDraft,
		countingRegen(frenchDraft, nil, &calls))

	require.NoError(t, err)
	assert.Equal(t, StateFallback, out.State)
	assert.True(t, out.Regenerated)
	// Exactly one attempt: the machine has no edge back into regeneration.
	assert.Equal(t, 1, calls)
	assert.Contains(t, out.FallbackReason, "language:")
}

func TestValidate_RegenerationErrorFallsBack(t *testing.T) {
	calls := 0
	out, err := NewValidator().Validate(context.Background(), frenchDraft,
		countingRegen("", errors.New("model unavailable"), &calls))

	require.NoError(t, err)
	assert.Equal(t, StateFallback, out.State)
	assert.Equal(t, 1, calls)
}

func TestValidate_NilRegeneratorFallsBack(t *testing.T) {
	out, err := NewValidator().Validate(context.Background(), frenchDraft, nil)
	require.NoError(t, err)
	assert.Equal(t, StateFallback, out.State)
	assert.True(t, out.Regenerated)
}

func TestValidate_RegeneratedDraftRecheckedForSafety(t *testing.T) {
	calls := 0
	out, err := NewValidator().Validate(context.Background(), frenchDraft,
		countingRegen("In English now, but about self-harm methods", nil, &calls))

	require.NoError(t, err)
	assert.Equal(t, StateFallback, out.State)
	assert.Empty(t, out.Text)
	// The reason names the check that actually failed.
	assert.Contains(t, out.FallbackReason, "safety:")
}

func TestTransitions_NoEdgeReentersRegeneration(t *testing.T) {
	for from, tos := range transitions {
		for _, to := range tos {
			if to == StateRegenerating {
				assert.Equal(t, StateSafetyChecked, from,
					"only the post-safety state may enter regeneration")
			}
		}
	}
	assert.Empty(t, transitions[StateDelivered])
	assert.Empty(t, transitions[StateFallback])
}

func TestAdvance_IllegalTransitionRejected(t *testing.T) {
	v := NewValidator()
	err := v.advance(StateDelivered) // Draft -> Delivered is not an edge
	require.Error(t, err)
	assert.Equal(t, StateDraft, v.state)
}

func TestCheckSafety(t *testing.T) {
	assert.True(t, CheckSafety("Electricians earn a good wage.").Safe)
	assert.False(t, CheckSafety("how to make a bomb at home").Safe)
	assert.False(t, CheckSafety("just send me your password and I'll fix it").Safe)
}

func TestCheckLanguage(t *testing.T) {
	assert.True(t, CheckLanguage("A perfectly normal English sentence.").IsTargetLanguage)
	assert.True(t, CheckLanguage("").IsTargetLanguage)

	// Two distinct foreign markers fail.
	v := CheckLanguage("Hola! Gracias for asking, je suis happy to help.")
	assert.False(t, v.IsTargetLanguage)
	assert.NotEmpty(t, v.DetectedPatterns)

	// A single marker occurrence is tolerated (names, quotations).
	assert.True(t, CheckLanguage(`The phrase "c'est la vie" means such is life.`).IsTargetLanguage)

	// Majority non-Latin script fails.
	nl := CheckLanguage("Это ответ на русском языке, а не на английском")
	assert.False(t, nl.IsTargetLanguage)
	assert.Contains(t, nl.DetectedPatterns, "non_latin_script")
}
