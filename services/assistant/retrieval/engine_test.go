// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

// mockSearcher implements Searcher with scripted results and call counters.
type mockSearcher struct {
	semanticItems []datatypes.RetrievedItem
	semanticErr   error
	keywordItems  []datatypes.RetrievedItem
	keywordErr    error

	semanticCalls atomic.Int32
	keywordCalls  atomic.Int32
}

func (m *mockSearcher) Semantic(ctx context.Context, query string, k int) ([]datatypes.RetrievedItem, error) {
	m.semanticCalls.Add(1)
	return m.semanticItems, m.semanticErr
}

func (m *mockSearcher) Keyword(ctx context.Context, query string, k int) ([]datatypes.RetrievedItem, error) {
	m.keywordCalls.Add(1)
	return m.keywordItems, m.keywordErr
}

func items(kind datatypes.SourceKind, ids ...string) []datatypes.RetrievedItem {
	out := make([]datatypes.RetrievedItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, datatypes.RetrievedItem{
			Kind:    kind,
			ID:      id,
			Label:   "label-" + id,
			Snippet: "snippet-" + id,
		})
	}
	return out
}

func TestRetrieve_AllCorporaHealthy(t *testing.T) {
	careers := &mockSearcher{semanticItems: items(datatypes.SourceCareerProfile, "c1", "c2")}
	docs := &mockSearcher{semanticItems: items(datatypes.SourceHelpArticle, "h1")}
	qa := &mockSearcher{semanticItems: items(datatypes.SourceCommunityQA, "q1")}

	e := NewEngine(careers, docs, qa)
	bundle := e.Retrieve(context.Background(), "how do I become a nurse")

	assert.Len(t, bundle.Careers, 2)
	assert.Len(t, bundle.HelpDocs, 1)
	assert.Len(t, bundle.QA, 1)

	// Keyword mode never runs when semantic succeeds.
	assert.Equal(t, int32(0), careers.keywordCalls.Load())
}

func TestRetrieve_SemanticFailureDegradesToKeyword(t *testing.T) {
	careers := &mockSearcher{
		semanticErr:  errors.New("vectorizer down"),
		keywordItems: items(datatypes.SourceCareerProfile, "c1"),
	}
	e := NewEngine(careers, nil, nil)

	bundle := e.Retrieve(context.Background(), "electrician")

	require.Len(t, bundle.Careers, 1)
	assert.Equal(t, "c1", bundle.Careers[0].ID)
	assert.Equal(t, int32(1), careers.semanticCalls.Load())
	assert.Equal(t, int32(1), careers.keywordCalls.Load())
}

func TestRetrieve_DoubleFailureYieldsEmptyNotError(t *testing.T) {
	broken := &mockSearcher{
		semanticErr: errors.New("down"),
		keywordErr:  errors.New("also down"),
	}
	healthy := &mockSearcher{semanticItems: items(datatypes.SourceHelpArticle, "h1")}

	e := NewEngine(broken, healthy, nil)
	bundle := e.Retrieve(context.Background(), "query")

	// The broken corpus contributes nothing; the healthy one is unaffected.
	assert.Empty(t, bundle.Careers)
	assert.Len(t, bundle.HelpDocs, 1)
}

func TestRetrieve_DegradationHookReportsKeywordFallback(t *testing.T) {
	careers := &mockSearcher{
		semanticErr:  errors.New("vectorizer down"),
		keywordItems: items(datatypes.SourceCareerProfile, "c1"),
	}
	var mu sync.Mutex
	got := map[string]int{}
	e := NewEngine(careers, nil, nil, WithDegradationHook(func(corpus, mode string) {
		mu.Lock()
		got[corpus+"/"+mode]++
		mu.Unlock()
	}))

	e.Retrieve(context.Background(), "electrician")

	assert.Equal(t, map[string]int{"careers/" + DegradedKeywordFallback: 1}, got)
}

func TestRetrieve_DegradationHookReportsEmptyOnDoubleFailure(t *testing.T) {
	broken := &mockSearcher{
		semanticErr: errors.New("down"),
		keywordErr:  errors.New("also down"),
	}
	var mu sync.Mutex
	got := map[string]int{}
	e := NewEngine(nil, broken, nil, WithDegradationHook(func(corpus, mode string) {
		mu.Lock()
		got[corpus+"/"+mode]++
		mu.Unlock()
	}))

	e.Retrieve(context.Background(), "query")

	// Both degradation steps are reported: the downgrade attempt, then the
	// empty outcome. Healthy and nil corpora report nothing.
	assert.Equal(t, map[string]int{
		"help_docs/" + DegradedKeywordFallback: 1,
		"help_docs/" + DegradedEmpty:           1,
	}, got)
}

func TestRetrieve_NilSearchers(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	bundle := e.Retrieve(context.Background(), "anything")
	assert.True(t, bundle.IsEmpty())
}

func TestRetrieve_TruncatesToLimits(t *testing.T) {
	careers := &mockSearcher{
		semanticItems: items(datatypes.SourceCareerProfile, "c1", "c2", "c3", "c4", "c5", "c6", "c7"),
	}
	e := NewEngine(careers, nil, nil, WithLimits(Limits{Careers: 5, HelpDocs: 3, QA: 2}))

	bundle := e.Retrieve(context.Background(), "careers")
	assert.Len(t, bundle.Careers, 5)
	assert.Equal(t, "c1", bundle.Careers[0].ID)
}

func TestRetrieve_DedupesById(t *testing.T) {
	careers := &mockSearcher{
		semanticItems: items(datatypes.SourceCareerProfile, "c1", "c1", "c2", "c2", "c3"),
	}
	e := NewEngine(careers, nil, nil)

	bundle := e.Retrieve(context.Background(), "dup")
	require.Len(t, bundle.Careers, 3)
	assert.Equal(t, []string{"c1", "c2", "c3"},
		[]string{bundle.Careers[0].ID, bundle.Careers[1].ID, bundle.Careers[2].ID})
}

func TestFormatContext(t *testing.T) {
	bundle := datatypes.RetrievalBundle{
		Careers:  items(datatypes.SourceCareerProfile, "c1"),
		HelpDocs: items(datatypes.SourceHelpArticle, "h1"),
	}

	got := FormatContext(bundle)
	assert.Contains(t, got, "Career profiles:")
	assert.Contains(t, got, "Help articles:")
	assert.NotContains(t, got, "Community Q&A:")
	assert.Contains(t, got, fmt.Sprintf("- [%s c1] label-c1: snippet-c1", datatypes.SourceCareerProfile))
}

func TestFormatContext_EmptyBundle(t *testing.T) {
	assert.Equal(t, "", FormatContext(datatypes.RetrievalBundle{}))
}

func TestFormatContext_Deterministic(t *testing.T) {
	bundle := datatypes.RetrievalBundle{
		Careers: items(datatypes.SourceCareerProfile, "c1", "c2"),
		QA:      items(datatypes.SourceCommunityQA, "q1"),
	}
	first := FormatContext(bundle)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, FormatContext(bundle))
	}
}
