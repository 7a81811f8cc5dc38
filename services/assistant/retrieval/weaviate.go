// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

// snippetMaxChars caps how much corpus text one item may contribute to the
// prompt context.
const snippetMaxChars = 400

// weaviateCorpus implements Searcher for one Weaviate class. The itemOf
// function maps a raw GraphQL object onto the RetrievedItem contract.
type weaviateCorpus struct {
	client *weaviate.Client
	class  string
	fields []graphql.Field
	itemOf func(obj map[string]interface{}) datatypes.RetrievedItem
}

// NewCareerSearcher searches the CareerProfile class.
func NewCareerSearcher(client *weaviate.Client) Searcher {
	return &weaviateCorpus{
		client: client,
		class:  datatypes.CareerProfileClassName,
		fields: []graphql.Field{
			{Name: "career_id"}, {Name: "title"}, {Name: "summary"}, {Name: "education_path"},
		},
		itemOf: func(obj map[string]interface{}) datatypes.RetrievedItem {
			return datatypes.RetrievedItem{
				Kind:    datatypes.SourceCareerProfile,
				ID:      getString(obj, "career_id"),
				Label:   getString(obj, "title"),
				Snippet: clipSnippet(joinNonEmpty(getString(obj, "summary"), getString(obj, "education_path"))),
			}
		},
	}
}

// NewHelpDocSearcher searches the HelpArticle class.
func NewHelpDocSearcher(client *weaviate.Client) Searcher {
	return &weaviateCorpus{
		client: client,
		class:  datatypes.HelpArticleClassName,
		fields: []graphql.Field{
			{Name: "article_id"}, {Name: "title"}, {Name: "body"},
		},
		itemOf: func(obj map[string]interface{}) datatypes.RetrievedItem {
			return datatypes.RetrievedItem{
				Kind:    datatypes.SourceHelpArticle,
				ID:      getString(obj, "article_id"),
				Label:   getString(obj, "title"),
				Snippet: clipSnippet(getString(obj, "body")),
			}
		},
	}
}

// NewQASearcher searches the CommunityQA class.
func NewQASearcher(client *weaviate.Client) Searcher {
	return &weaviateCorpus{
		client: client,
		class:  datatypes.CommunityQAClassName,
		fields: []graphql.Field{
			{Name: "qa_id"}, {Name: "question"}, {Name: "answer"},
		},
		itemOf: func(obj map[string]interface{}) datatypes.RetrievedItem {
			return datatypes.RetrievedItem{
				Kind:    datatypes.SourceCommunityQA,
				ID:      getString(obj, "qa_id"),
				Label:   getString(obj, "question"),
				Snippet: clipSnippet(getString(obj, "answer")),
			}
		},
	}
}

// Semantic implements Searcher using nearText vector search.
func (c *weaviateCorpus) Semantic(ctx context.Context, query string, k int) ([]datatypes.RetrievedItem, error) {
	nearText := c.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	result, err := c.client.GraphQL().Get().
		WithClassName(c.class).
		WithFields(c.fields...).
		WithNearText(nearText).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return c.parseResults(result.Data, result.Errors)
}

// Keyword implements Searcher using BM25 keyword search.
func (c *weaviateCorpus) Keyword(ctx context.Context, query string, k int) ([]datatypes.RetrievedItem, error) {
	result, err := c.client.GraphQL().Get().
		WithClassName(c.class).
		WithFields(c.fields...).
		WithBM25(c.client.GraphQL().Bm25ArgBuilder().WithQuery(query)).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return c.parseResults(result.Data, result.Errors)
}

// parseResults walks Weaviate's dynamic Get response for this class.
func (c *weaviateCorpus) parseResults(data map[string]models.JSONObject, gqlErrs []*models.GraphQLError) ([]datatypes.RetrievedItem, error) {
	if len(gqlErrs) > 0 {
		return nil, fmt.Errorf("search error: %s", gqlErrs[0].Message)
	}

	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return []datatypes.RetrievedItem{}, nil
	}
	objects, ok := get[c.class].([]interface{})
	if !ok {
		return []datatypes.RetrievedItem{}, nil
	}

	items := make([]datatypes.RetrievedItem, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue // skip malformed objects
		}
		item := c.itemOf(m)
		if item.ID == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

func clipSnippet(s string) string {
	if utf8.RuneCountInString(s) <= snippetMaxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:snippetMaxChars]) + "…"
}
