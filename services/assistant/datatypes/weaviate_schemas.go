// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// Weaviate class names for the three retrieval corpora.
const (
	CareerProfileClassName = "CareerProfile"
	HelpArticleClassName   = "HelpArticle"
	CommunityQAClassName   = "CommunityQA"
)

// CareerProfileSchema returns the class definition for career profiles.
func CareerProfileSchema() *models.Class {
	return &models.Class{
		Class:       CareerProfileClassName,
		Description: "A career profile: what the job is, sectors, and how to get there",
		Vectorizer:  "text2vec-transformers",
		Properties: []*models.Property{
			{Name: "career_id", DataType: []string{"text"}, Description: "Stable career identifier", Tokenization: "field"},
			{Name: "title", DataType: []string{"text"}, Description: "Career title (e.g., Registered Nurse)", Tokenization: "word"},
			{Name: "summary", DataType: []string{"text"}, Description: "Plain-language description of the career", Tokenization: "word"},
			{Name: "sectors", DataType: []string{"text"}, Description: "Comma-separated industry sectors", Tokenization: "word"},
			{Name: "education_path", DataType: []string{"text"}, Description: "Typical study or training route", Tokenization: "word"},
		},
	}
}

// HelpArticleSchema returns the class definition for platform help articles.
func HelpArticleSchema() *models.Class {
	return &models.Class{
		Class:       HelpArticleClassName,
		Description: "Platform help documentation shown to users",
		Vectorizer:  "text2vec-transformers",
		Properties: []*models.Property{
			{Name: "article_id", DataType: []string{"text"}, Description: "Stable article identifier", Tokenization: "field"},
			{Name: "title", DataType: []string{"text"}, Description: "Article title", Tokenization: "word"},
			{Name: "body", DataType: []string{"text"}, Description: "Article body text", Tokenization: "word"},
			{Name: "category", DataType: []string{"text"}, Description: "Help category (profile, applications, safety, ...)", Tokenization: "field"},
		},
	}
}

// CommunityQASchema returns the class definition for moderated community Q&A.
func CommunityQASchema() *models.Class {
	return &models.Class{
		Class:       CommunityQAClassName,
		Description: "Moderated community question/answer pairs",
		Vectorizer:  "text2vec-transformers",
		Properties: []*models.Property{
			{Name: "qa_id", DataType: []string{"text"}, Description: "Stable Q&A identifier", Tokenization: "field"},
			{Name: "question", DataType: []string{"text"}, Description: "The community question", Tokenization: "word"},
			{Name: "answer", DataType: []string{"text"}, Description: "The approved answer", Tokenization: "word"},
		},
	}
}

// EnsureSchema creates the three corpus classes if they do not exist.
// Idempotent: existing classes are left untouched. A failure on one class is
// logged and does not stop the others; the service can still run in keyword
// or fallback-only mode.
func EnsureSchema(ctx context.Context, client *weaviate.Client) error {
	if client == nil {
		return fmt.Errorf("nil weaviate client")
	}

	var firstErr error
	for _, class := range []*models.Class{
		CareerProfileSchema(), HelpArticleSchema(), CommunityQASchema(),
	} {
		_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx)
		if err == nil {
			slog.Debug("Weaviate class already present", "class", class.Class)
			continue
		}

		if err := client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			slog.Warn("Failed to create Weaviate class", "class", class.Class, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("create class %s: %w", class.Class, err)
			}
			continue
		}
		slog.Info("Created Weaviate class", "class", class.Class)
	}
	return firstErr
}
