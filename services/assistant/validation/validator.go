// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var validationTracer = otel.Tracer("kazipath.assistant.validation")

// State is a node in the per-turn validation state machine.
type State string

const (
	// StateDraft holds the model's raw output before any check.
	StateDraft State = "draft"
	// StateSafetyChecked means the safety scan passed.
	StateSafetyChecked State = "safety_checked"
	// StateLanguageChecked means the language check passed on the first draft.
	StateLanguageChecked State = "language_checked"
	// StateRegenerating means the single regeneration attempt is in flight.
	StateRegenerating State = "regenerating"
	// StateDelivered is terminal: the draft may reach the user.
	StateDelivered State = "delivered"
	// StateFallback is terminal: the draft is discarded and the fallback
	// responder answers instead.
	StateFallback State = "fallback"
)

// transitions is the machine's full edge set. The "exactly one retry"
// invariant is structural: no edge re-enters StateRegenerating, and both
// terminal states have no outgoing edges.
var transitions = map[State][]State{
	StateDraft:           {StateSafetyChecked, StateFallback},
	StateSafetyChecked:   {StateLanguageChecked, StateRegenerating},
	StateLanguageChecked: {StateDelivered},
	StateRegenerating:    {StateDelivered, StateFallback},
	StateDelivered:       {},
	StateFallback:        {},
}

// Outcome is the machine's terminal result for one turn.
type Outcome struct {
	// State is StateDelivered or StateFallback.
	State State
	// Text is the approved draft. Empty when State is StateFallback.
	Text string
	// FallbackReason explains a StateFallback outcome for logs and metrics.
	FallbackReason string
	// Regenerated reports whether the single regeneration attempt ran.
	Regenerated bool
	// Safety and Language are the verdicts of the last checks performed.
	Safety   SafetyVerdict
	Language LanguageVerdict
}

// Delivered reports whether the draft may be shown to the user.
func (o Outcome) Delivered() bool { return o.State == StateDelivered }

// Regenerator produces the single replacement draft after a language
// failure. Implementations replay the conversation with an explicit
// target-language instruction at a lower temperature.
type Regenerator func(ctx context.Context) (string, error)

// Validator runs the two checks and drives the state machine.
type Validator struct {
	state State
}

// NewValidator returns a validator positioned at StateDraft.
func NewValidator() *Validator {
	return &Validator{state: StateDraft}
}

// advance moves the machine along a declared edge. An undeclared edge is a
// programming error and is reported rather than silently taken.
func (v *Validator) advance(to State) error {
	for _, allowed := range transitions[v.state] {
		if allowed == to {
			v.state = to
			return nil
		}
	}
	return fmt.Errorf("illegal validation transition %s -> %s", v.state, to)
}

// Validate checks the draft and, on a language failure, runs the single
// regeneration attempt via regen. It always returns a terminal Outcome;
// the error is non-nil only for internal transition bugs.
//
// Safety failures are terminal for the turn — no regeneration. Language
// failures get exactly one regeneration; the regenerated text is re-checked
// for language (and safety, which costs nothing and keeps the invariant
// that delivered text always passed both checks).
func (v *Validator) Validate(ctx context.Context, draft string, regen Regenerator) (Outcome, error) {
	ctx, span := validationTracer.Start(ctx, "Validator.Validate")
	defer span.End()

	out := Outcome{}

	out.Safety = CheckSafety(draft)
	if !out.Safety.Safe {
		span.SetAttributes(attribute.String("validation.result", "unsafe"))
		if err := v.advance(StateFallback); err != nil {
			return out, err
		}
		out.State = StateFallback
		out.FallbackReason = "safety: " + out.Safety.Reason
		return out, nil
	}
	if err := v.advance(StateSafetyChecked); err != nil {
		return out, err
	}

	out.Language = CheckLanguage(draft)
	if out.Language.IsTargetLanguage {
		if err := v.advance(StateLanguageChecked); err != nil {
			return out, err
		}
		if err := v.advance(StateDelivered); err != nil {
			return out, err
		}
		out.State = StateDelivered
		out.Text = draft
		span.SetAttributes(attribute.String("validation.result", "delivered"))
		return out, nil
	}

	// Language failed: the one bounded retry.
	if err := v.advance(StateRegenerating); err != nil {
		return out, err
	}
	out.Regenerated = true
	span.AddEvent("regenerating")
	slog.Info("Draft failed language check, regenerating once",
		"patterns", out.Language.DetectedPatterns)

	if regen == nil {
		if err := v.advance(StateFallback); err != nil {
			return out, err
		}
		out.State = StateFallback
		out.FallbackReason = "language: no regenerator available"
		return out, nil
	}

	redraft, err := regen(ctx)
	if err != nil {
		if terr := v.advance(StateFallback); terr != nil {
			return out, terr
		}
		out.State = StateFallback
		out.FallbackReason = "language: regeneration failed"
		slog.Warn("Regeneration attempt failed", "error", err)
		return out, nil
	}

	out.Safety = CheckSafety(redraft)
	out.Language = CheckLanguage(redraft)
	if out.Safety.Safe && out.Language.IsTargetLanguage {
		if err := v.advance(StateDelivered); err != nil {
			return out, err
		}
		out.State = StateDelivered
		out.Text = redraft
		span.SetAttributes(attribute.String("validation.result", "delivered_after_regen"))
		return out, nil
	}

	if err := v.advance(StateFallback); err != nil {
		return out, err
	}
	out.State = StateFallback
	if !out.Safety.Safe {
		out.FallbackReason = "safety: regenerated draft failed the safety check"
	} else {
		out.FallbackReason = "language: regenerated draft still not in the target language"
	}
	span.SetAttributes(attribute.String("validation.result", "fallback"))
	return out, nil
}
