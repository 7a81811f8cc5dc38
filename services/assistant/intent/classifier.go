// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package intent classifies user messages into the closed IntentType set.
//
// Classification is pure and deterministic: pattern rules evaluated in a
// fixed priority order, no I/O, no model call. It runs before any expensive
// work so unsafe and off-topic traffic never reaches retrieval or the model.
package intent

import (
	"regexp"
	"strings"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

// rule binds a compiled pattern to the intent it selects.
type rule struct {
	intent   datatypes.IntentType
	patterns []*regexp.Regexp
}

// Unsafe patterns are checked first and independently of everything else.
// They cover content disallowed for a minor-inclusive audience.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(kill|hurt|harm|cut)\s+(myself|me)\b`),
	regexp.MustCompile(`(?i)\b(suicide|suicidal|self[\s-]?harm|end my life|want to die)\b`),
	regexp.MustCompile(`(?i)\b(make|build|buy|get)\s+(a\s+)?(bomb|gun|weapon|explosive)\b`),
	regexp.MustCompile(`(?i)\b(buy|sell|score|deal)\s+(drugs|weed|cocaine|heroin|meth)\b`),
	regexp.MustCompile(`(?i)\b(porn|sext|nudes|naked pictures?)\b`),
	regexp.MustCompile(`(?i)\bhow to (steal|rob|hack someone)\b`),
}

// Domain rules in priority order. First match wins; later rules never see a
// message an earlier rule claimed.
var domainRules = []rule{
	{
		intent: datatypes.IntentGreeting,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*(hi|hello|hey|howdy|good (morning|afternoon|evening))[\s!.,]*$`),
			regexp.MustCompile(`(?i)^\s*(hi|hello|hey)\s+(there|kazipath|mentor)[\s!.,]*$`),
		},
	},
	{
		intent: datatypes.IntentPlatformHelp,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(kazipath|my account|password|log\s?in|sign\s?up|my profile|the app|this site|this platform)\b`),
			regexp.MustCompile(`(?i)\bhow (do|can) i (apply|upload|edit|delete|report)\b`),
		},
	},
	{
		intent: datatypes.IntentLifeSkills,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(life skills?|soft skills?|communication skills?|teamwork|time management|self[\s-]?confidence|public speaking|manage (my )?money|budget(ing)?)\b`),
		},
	},
	{
		intent: datatypes.IntentEducationPath,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(study|studies|course|university|college|degree|diploma|certificate|qualification|subjects?|school|scholarship|training)\b`),
		},
	},
	{
		intent: datatypes.IntentJobSearch,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(job|jobs|vacanc(y|ies)|internship|apprenticeship|cv|resume|cover letter|interview|hiring|employer|apply(ing)?)\b`),
		},
	},
	{
		intent: datatypes.IntentCareerExplore,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(what|which) (career|careers|path|work)\b.*\b(me|for me|suit|fit|choose)\b`),
			regexp.MustCompile(`(?i)\b(don'?t know what|not sure what|help me (choose|decide|find))\b`),
			regexp.MustCompile(`(?i)\b(explore|discover|options?) .*\bcareers?\b`),
		},
	},
	{
		intent: datatypes.IntentCareerExplain,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(what (does|do) .+ do\b|what is it like (to be|being))`),
			regexp.MustCompile(`(?i)\b(become|becoming) an? \w+`),
			regexp.MustCompile(`(?i)\b(career|profession|occupation|salary|earn|work as)\b`),
		},
	},
}

// onTopicSignal is the loose net under the specific rules: messages that
// mention the working world at all are treated as career questions rather
// than redirected.
var onTopicSignal = regexp.MustCompile(`(?i)\b(work|working|career|job|skill|employ|profession|trade|industry)\b`)

// Classify maps raw message text to an IntentType.
//
// Evaluation order: unsafe patterns, then the domain rules in priority
// order, then the loose on-topic net, then off_topic. Empty or whitespace
// input is off_topic. The function is safe for concurrent use.
func Classify(text string) datatypes.IntentType {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return datatypes.IntentOffTopic
	}

	for _, p := range unsafePatterns {
		if p.MatchString(trimmed) {
			return datatypes.IntentUnsafe
		}
	}

	for _, r := range domainRules {
		for _, p := range r.patterns {
			if p.MatchString(trimmed) {
				return r.intent
			}
		}
	}

	if onTopicSignal.MatchString(trimmed) {
		return datatypes.IntentCareerExplain
	}
	return datatypes.IntentOffTopic
}
