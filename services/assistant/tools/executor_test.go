// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

// mockRecorder records calls and can be scripted to fail.
type mockRecorder struct {
	calls []recordedCall
	err   error
}

type recordedCall struct {
	ownerID  string
	skillKey string
	reason   string
}

func (m *mockRecorder) RecordRecommendation(ctx context.Context, ownerID, skillKey, reason string) error {
	m.calls = append(m.calls, recordedCall{ownerID, skillKey, reason})
	return m.err
}

func invocation(skill, reason string) datatypes.ToolInvocation {
	return datatypes.ToolInvocation{
		Name: ToolRecommendLifeSkill,
		Arguments: map[string]string{
			"skill_key": skill,
			"reason":    reason,
		},
	}
}

func TestExecute_ValidRecommendation(t *testing.T) {
	rec := &mockRecorder{}
	e := NewExecutor(rec)

	got := e.Execute(context.Background(), "user-1", invocation("communication", "helps with interviews"))

	require.NotNil(t, got)
	assert.Equal(t, "communication", got.Key)
	assert.Equal(t, "helps with interviews", got.Reason)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, recordedCall{"user-1", "communication", "helps with interviews"}, rec.calls[0])
}

func TestExecute_UnknownToolDropped(t *testing.T) {
	rec := &mockRecorder{}
	e := NewExecutor(rec)

	got := e.Execute(context.Background(), "user-1", datatypes.ToolInvocation{
		Name:      "delete_account",
		Arguments: map[string]string{"confirm": "yes"},
	})

	assert.Nil(t, got)
	assert.Empty(t, rec.calls)
}

func TestExecute_UnknownSkillKeyDropped(t *testing.T) {
	rec := &mockRecorder{}
	e := NewExecutor(rec)

	got := e.Execute(context.Background(), "user-1", invocation("juggling", "because"))

	assert.Nil(t, got)
	assert.Empty(t, rec.calls)
}

func TestExecute_SkillKeyNormalized(t *testing.T) {
	rec := &mockRecorder{}
	e := NewExecutor(rec)

	got := e.Execute(context.Background(), "user-1", invocation("  Teamwork ", "r"))

	require.NotNil(t, got)
	assert.Equal(t, "teamwork", got.Key)
}

func TestExecute_RecorderFailureSwallowed(t *testing.T) {
	rec := &mockRecorder{err: errors.New("db down")}
	e := NewExecutor(rec)

	// The recommendation still surfaces even though persisting failed.
	got := e.Execute(context.Background(), "user-1", invocation("leadership", "r"))
	require.NotNil(t, got)
	assert.Equal(t, "leadership", got.Key)
}

func TestExecute_NilRecorder(t *testing.T) {
	e := NewExecutor(nil)
	got := e.Execute(context.Background(), "user-1", invocation("problem_solving", "r"))
	require.NotNil(t, got)
	assert.Equal(t, "problem_solving", got.Key)
}

func TestAllowedSkillKeysMatchAllowList(t *testing.T) {
	keys := AllowedSkillKeys()
	assert.Len(t, keys, len(allowedSkills))
	for _, k := range keys {
		_, ok := allowedSkills[k]
		assert.True(t, ok, "key %q missing from allow-list", k)
	}
}
