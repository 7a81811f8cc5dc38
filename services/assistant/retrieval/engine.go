// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retrieval fetches supporting context from the three content
// corpora (career profiles, help articles, community Q&A).
//
// The three lookups run concurrently. Each branch independently degrades
// from semantic to keyword search, and from keyword search to an empty
// result — retrieval can reduce answer quality but can never fail the
// request.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

var retrievalTracer = otel.Tracer("kazipath.assistant.retrieval")

// Searcher is one corpus with a semantic mode and a keyword-only degraded
// mode.
//
// Thread Safety: implementations must be safe for concurrent use.
type Searcher interface {
	// Semantic runs embedding-based search and returns up to k items.
	Semantic(ctx context.Context, query string, k int) ([]datatypes.RetrievedItem, error)

	// Keyword runs keyword (BM25) search and returns up to k items.
	Keyword(ctx context.Context, query string, k int) ([]datatypes.RetrievedItem, error)
}

// Limits caps how many items each corpus contributes to the context block.
type Limits struct {
	Careers  int
	HelpDocs int
	QA       int
}

// DefaultLimits returns the per-corpus caps: 5 careers, 3 docs, 2 Q&A.
func DefaultLimits() Limits {
	return Limits{Careers: 5, HelpDocs: 3, QA: 2}
}

// Engine fans a query out to the three corpora and fans the results back in.
// A nil Searcher means that corpus is unavailable and contributes nothing.
type Engine struct {
	careers  Searcher
	helpDocs Searcher
	qa       Searcher

	limits        Limits
	branchTimeout time.Duration
	onDegraded    func(corpus, mode string)
}

// Degradation modes reported to the hook.
const (
	DegradedKeywordFallback = "keyword_fallback"
	DegradedEmpty           = "empty"
)

// Option customizes an Engine.
type Option func(*Engine)

// WithLimits overrides the per-corpus result caps.
func WithLimits(l Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// WithBranchTimeout overrides the per-branch deadline applied to each
// semantic and each keyword attempt.
func WithBranchTimeout(d time.Duration) Option {
	return func(e *Engine) { e.branchTimeout = d }
}

// WithDegradationHook registers a callback invoked once per branch
// degradation, with the corpus name and the mode it degraded to. Callers
// typically feed this into a counter.
func WithDegradationHook(fn func(corpus, mode string)) Option {
	return func(e *Engine) { e.onDegraded = fn }
}

// NewEngine builds the retrieval engine. Any searcher may be nil.
func NewEngine(careers, helpDocs, qa Searcher, opts ...Option) *Engine {
	e := &Engine{
		careers:       careers,
		helpDocs:      helpDocs,
		qa:            qa,
		limits:        DefaultLimits(),
		branchTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve queries all three corpora concurrently and returns the merged
// bundle. It never returns an error: branch failures degrade to empty
// slices. The context governs the whole fan-out; each branch additionally
// bounds its own attempts.
func (e *Engine) Retrieve(ctx context.Context, query string) datatypes.RetrievalBundle {
	ctx, span := retrievalTracer.Start(ctx, "Engine.Retrieve")
	defer span.End()

	var bundle datatypes.RetrievalBundle

	// Branches own distinct bundle fields, so no mutex is needed. They
	// return nil errors unconditionally: one corpus failing must not cancel
	// the others.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bundle.Careers = e.searchCorpus(gctx, "careers", e.careers, query, e.limits.Careers)
		return nil
	})
	g.Go(func() error {
		bundle.HelpDocs = e.searchCorpus(gctx, "help_docs", e.helpDocs, query, e.limits.HelpDocs)
		return nil
	})
	g.Go(func() error {
		bundle.QA = e.searchCorpus(gctx, "qa", e.qa, query, e.limits.QA)
		return nil
	})
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("retrieval.careers", len(bundle.Careers)),
		attribute.Int("retrieval.help_docs", len(bundle.HelpDocs)),
		attribute.Int("retrieval.qa", len(bundle.QA)),
	)
	return bundle
}

// searchCorpus runs one branch: semantic first, keyword on any error or
// timeout, empty result when both modes fail.
func (e *Engine) searchCorpus(ctx context.Context, name string, s Searcher,
	query string, k int) []datatypes.RetrievedItem {

	ctx, span := retrievalTracer.Start(ctx, "Engine.searchCorpus")
	defer span.End()
	span.SetAttributes(attribute.String("corpus", name), attribute.Int("k", k))

	if s == nil || k <= 0 {
		return nil
	}

	semCtx, cancel := context.WithTimeout(ctx, e.branchTimeout)
	items, err := s.Semantic(semCtx, query, k)
	cancel()
	if err == nil {
		return dedupeAndTruncate(items, k)
	}

	span.AddEvent("semantic_search_degraded")
	slog.Warn("Semantic search failed, degrading to keyword search",
		"corpus", name, "error", err)
	e.degraded(name, DegradedKeywordFallback)

	kwCtx, cancel := context.WithTimeout(ctx, e.branchTimeout)
	items, err = s.Keyword(kwCtx, query, k)
	cancel()
	if err != nil {
		slog.Warn("Keyword search failed, corpus contributes no context",
			"corpus", name, "error", err)
		e.degraded(name, DegradedEmpty)
		return nil
	}
	return dedupeAndTruncate(items, k)
}

func (e *Engine) degraded(corpus, mode string) {
	if e.onDegraded != nil {
		e.onDegraded(corpus, mode)
	}
}

// dedupeAndTruncate removes duplicate ids (keeping first occurrence, which
// preserves rank order) and caps the slice at k.
func dedupeAndTruncate(items []datatypes.RetrievedItem, k int) []datatypes.RetrievedItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
		if len(out) == k {
			break
		}
	}
	return out
}

// FormatContext renders the bundle into the single attributed context block
// the prompt assembler embeds. Output is deterministic for a given bundle.
// An empty bundle renders as an empty string.
func FormatContext(b datatypes.RetrievalBundle) string {
	if b.IsEmpty() {
		return ""
	}

	var sb strings.Builder
	writeSection := func(heading string, items []datatypes.RetrievedItem) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(heading)
		sb.WriteString(":\n")
		for _, it := range items {
			fmt.Fprintf(&sb, "- [%s %s] %s: %s\n", it.Kind, it.ID, it.Label, it.Snippet)
		}
	}
	writeSection("Career profiles", b.Careers)
	writeSection("Help articles", b.HelpDocs)
	writeSection("Community Q&A", b.QA)
	return strings.TrimRight(sb.String(), "\n")
}
