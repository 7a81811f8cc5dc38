// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package fallback generates the deterministic canned responses used when
// the model path is unavailable, rate limited, or fails validation.
//
// This is the pipeline's availability backstop: it has no dependencies,
// cannot fail, and every template is pre-approved, safe, and in English.
package fallback

import (
	"regexp"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
)

// templates holds the base response per intent. Every IntentType value has
// an entry; TestRespond_CoversAllIntents keeps that honest.
var templates = map[datatypes.IntentType]string{
	datatypes.IntentUnsafe: "I can't help with that topic. If you're going through something difficult, " +
		"please talk to someone you trust or a local support line — you deserve support. " +
		"I'm here whenever you want to talk about careers, studying, or finding work.",

	datatypes.IntentOffTopic: "I'm the KaziPath mentor, so I stick to careers, education, and job hunting. " +
		"Ask me something like \"What does an electrician do?\" or \"How do I write my first CV?\" and I'll dig in.",

	datatypes.IntentGreeting: "Hi! I'm the KaziPath mentor. I can explain careers, help you plan your studies, " +
		"or get you ready to apply for your first job. What would you like to explore?",

	datatypes.IntentCareerExplain: "I can't reach my career library right now, but here's the general approach: " +
		"look up what a typical day involves, what training it needs, and what entry-level roles exist. " +
		"The career profiles on KaziPath cover all three — try browsing them, or ask me again in a little while.",

	datatypes.IntentCareerExplore: "A good way to start exploring: list three things you enjoy doing, three " +
		"school subjects you're best at, and see which KaziPath career profiles mention them. " +
		"Ask me again shortly and I can help you match them to real careers.",

	datatypes.IntentEducationPath: "While I can't fetch course details right now, the usual route is: finish " +
		"your current studies, check the entry requirements on the career's profile page, and compare " +
		"certificate, diploma, and degree options — there's often a cheaper route than you'd expect.",

	datatypes.IntentJobSearch: "Quick job-search basics while I'm offline: keep your KaziPath profile complete, " +
		"tailor each application to the posting, and prepare two or three short stories that show your " +
		"strengths for interviews. Try me again soon for advice specific to your situation.",

	datatypes.IntentPlatformHelp: "For help with KaziPath itself, the Help Centre covers profiles, applications, " +
		"and safety settings. If something looks broken, the feedback button on any page reaches our team.",

	datatypes.IntentLifeSkills: "Life skills grow with small reps. Pick one — say, speaking up in a group — " +
		"and practise it once a day this week in a low-stakes setting. Ask me about a specific skill " +
		"and I'll suggest an exercise for it.",
}

// subTopic refines a template when the raw message clearly names a common
// sub-topic, so the canned answer doesn't feel generic.
type subTopic struct {
	intent  datatypes.IntentType
	pattern *regexp.Regexp
	text    string
}

var subTopics = []subTopic{
	{
		intent:  datatypes.IntentCareerExplain,
		pattern: regexp.MustCompile(`(?i)\b(nurse|nursing|doctor|medicine|health)\b`),
		text: "Health careers usually start with science subjects and a recognised training programme — " +
			"nursing, for example, needs biology plus an accredited nursing course. The health section of " +
			"the KaziPath career library has the exact requirements; ask me again soon for the details.",
	},
	{
		intent:  datatypes.IntentCareerExplain,
		pattern: regexp.MustCompile(`(?i)\b(software|programmer|coding|developer|computer|tech)\b`),
		text: "Tech careers reward portfolios over certificates: start with a free online course, build " +
			"two or three small projects you can show, and look for junior or apprentice roles. " +
			"The tech career profiles on KaziPath list good starting points.",
	},
	{
		intent:  datatypes.IntentCareerExplain,
		pattern: regexp.MustCompile(`(?i)\b(electrician|plumber|mechanic|welder|carpenter|trades?)\b`),
		text: "Skilled trades usually pair a technical college course with an apprenticeship — you earn " +
			"while you learn. Check the trades section of the career library for programmes near you.",
	},
	{
		intent:  datatypes.IntentJobSearch,
		pattern: regexp.MustCompile(`(?i)\b(cv|resume|cover letter)\b`),
		text: "For a first CV: one page, lead with education and any projects or volunteering, and mirror " +
			"the words the job posting uses. The Help Centre has a free template you can start from.",
	},
	{
		intent:  datatypes.IntentJobSearch,
		pattern: regexp.MustCompile(`(?i)\binterviews?\b`),
		text: "Interview prep that works: re-read the posting, prepare one short story per requirement, " +
			"and practise answering out loud. Arrive with one genuine question about the role.",
	},
	{
		intent:  datatypes.IntentLifeSkills,
		pattern: regexp.MustCompile(`(?i)\b(money|budget|saving|finance)\b`),
		text: "Money management starts small: track what you spend for one week, then set one saving " +
			"goal, even a tiny one. Doing that for a month builds the habit everything else rests on.",
	},
}

// Respond returns the canned answer for an intent, refined by any sub-topic
// the raw message matches. It is deterministic, never empty, and never
// fails.
func Respond(intent datatypes.IntentType, rawMessage string) string {
	for _, st := range subTopics {
		if st.intent == intent && st.pattern.MatchString(rawMessage) {
			return st.text
		}
	}
	if text, ok := templates[intent]; ok {
		return text
	}
	// Unknown intent values cannot occur through the classifier, but the
	// backstop must still answer.
	return templates[datatypes.IntentOffTopic]
}

// RateLimited is the soft-decline copy for quota rejections. Not an error:
// a designed conversational outcome.
func RateLimited() string {
	return "You've asked me quite a lot this hour — I need a short break! " +
		"Your questions are saved in your head, not lost: try me again in a little while."
}

// SignInRequired is the fixed response for unauthenticated callers.
func SignInRequired() string {
	return "Please sign in to chat with the KaziPath mentor — that's how I remember your " +
		"conversation and keep it private to you."
}
