// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the assistant.
//
// # Description
//
// One metrics struct initialized at startup and exposed via /metrics.
// Everything the pipeline decides gets counted: intent distribution,
// request outcomes, fallback reasons, regenerations, retrieval
// degradations, and tool executions.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "kazipath"

const assistantSubsystem = "assistant"

// Request outcome label values.
const (
	OutcomeDelivered    = "delivered"
	OutcomeFallback     = "fallback"
	OutcomeRateLimited  = "rate_limited"
	OutcomeRequiresAuth = "requires_auth"
)

// AssistantMetrics holds every Prometheus metric for the assistant pipeline.
// Initialize once at startup via InitMetrics().
type AssistantMetrics struct {
	// RequestsTotal counts chat requests by classified intent and outcome.
	// Labels: intent, outcome (delivered, fallback, rate_limited, requires_auth)
	RequestsTotal *prometheus.CounterVec

	// FallbacksTotal counts fallback responses by reason.
	// Labels: reason (unsafe_intent, off_topic, model_unconfigured,
	// model_error, empty_completion, validation, rate_limited)
	FallbacksTotal *prometheus.CounterVec

	// RegenerationsTotal counts language-check regeneration attempts.
	RegenerationsTotal prometheus.Counter

	// RetrievalDegradationsTotal counts semantic-to-keyword downgrades and
	// empty-result outcomes per corpus.
	// Labels: corpus (careers, help_docs, qa), mode (keyword_fallback, empty)
	RetrievalDegradationsTotal *prometheus.CounterVec

	// ToolExecutionsTotal counts tool invocations by tool name and result.
	// Labels: tool, result (applied, rejected)
	ToolExecutionsTotal *prometheus.CounterVec

	// TurnDurationSeconds measures whole-turn latency by outcome.
	// Labels: outcome
	TurnDurationSeconds *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics().
var DefaultMetrics *AssistantMetrics

// InitMetrics creates and registers the assistant metrics. Call once at
// startup; a second call panics on duplicate registration.
func InitMetrics() *AssistantMetrics {
	DefaultMetrics = &AssistantMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "requests_total",
				Help:      "Total chat requests by intent and outcome",
			},
			[]string{"intent", "outcome"},
		),

		FallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "fallbacks_total",
				Help:      "Total fallback responses by reason",
			},
			[]string{"reason"},
		),

		RegenerationsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "regenerations_total",
				Help:      "Total single-shot regeneration attempts after a language failure",
			},
		),

		RetrievalDegradationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "retrieval_degradations_total",
				Help:      "Retrieval branches that fell back to keyword search or returned empty",
			},
			[]string{"corpus", "mode"},
		),

		ToolExecutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "tool_executions_total",
				Help:      "Tool invocations proposed by the model, by tool and result",
			},
			[]string{"tool", "result"},
		),

		TurnDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: assistantSubsystem,
				Name:      "turn_duration_seconds",
				Help:      "Whole-turn latency from request receipt to response",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"outcome"},
		),
	}
	return DefaultMetrics
}
