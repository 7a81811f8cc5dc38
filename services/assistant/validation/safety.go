// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation re-checks the model's draft output before it can reach
// the user: a content-safety scan and a target-language check, tied together
// by an explicit bounded state machine (one regeneration attempt, ever).
package validation

import (
	"fmt"
	"regexp"
)

// SafetyVerdict is the result of one content-safety scan.
type SafetyVerdict struct {
	Safe   bool
	Reason string
}

// safetyCategory is one disallowed content category with its patterns.
type safetyCategory struct {
	name     string
	patterns []*regexp.Regexp
}

// Draft output is held to the same bar as input: the audience includes
// minors, so any match discards the draft outright.
var safetyCategories = []safetyCategory{
	{
		name: "self_harm",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(kill|harm|hurt)\s+(yourself|himself|herself|themselves)\b`),
			regexp.MustCompile(`(?i)\b(suicide|self[\s-]?harm)\b`),
		},
	},
	{
		name: "violence",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bhow to (make|build)\s+(a\s+)?(bomb|gun|weapon|explosive)\b`),
			regexp.MustCompile(`(?i)\b(attack|assault|stab|shoot)\s+(someone|people|a person)\b`),
		},
	},
	{
		name: "sexual_content",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(porn|sexually explicit|nudes?)\b`),
		},
	},
	{
		name: "drugs_weapons",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(buy|sell|obtain)\s+(illegal drugs|cocaine|heroin|meth|firearms?)\b`),
		},
	},
	{
		name: "pii_solicitation",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(send|share|give)\s+(me\s+)?your\s+(home address|id number|password|bank details)\b`),
		},
	},
}

// CheckSafety scans draft text against the disallowed content categories.
// The first matching category decides the verdict.
func CheckSafety(text string) SafetyVerdict {
	for _, cat := range safetyCategories {
		for _, p := range cat.patterns {
			if p.MatchString(text) {
				return SafetyVerdict{
					Safe:   false,
					Reason: fmt.Sprintf("matched disallowed category %q", cat.name),
				}
			}
		}
	}
	return SafetyVerdict{Safe: true}
}
