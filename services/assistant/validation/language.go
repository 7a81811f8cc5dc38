// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// LanguageVerdict is the result of one target-language check.
type LanguageVerdict struct {
	IsTargetLanguage bool
	DetectedPatterns []string
}

// nonLatinThreshold is the fraction of letters outside the Latin script
// above which the draft is treated as non-English.
const nonLatinThreshold = 0.30

// foreignMarkers are high-frequency function words of languages the model
// has been observed slipping into. Two distinct hits fail the check; one
// alone is tolerated because names and quotations are legitimate.
var foreignMarkers = map[string]*regexp.Regexp{
	"french":     regexp.MustCompile(`(?i)\b(je suis|bonjour|merci beaucoup|vous êtes|c'est|n'est pas)\b`),
	"spanish":    regexp.MustCompile(`(?i)\b(hola|gracias|usted|también|por favor|está)\b`),
	"portuguese": regexp.MustCompile(`(?i)\b(obrigado|você|não é|está bem)\b`),
	"swahili":    regexp.MustCompile(`(?i)\b(habari|asante sana|karibu sana|unaweza|kwa sababu)\b`),
	"german":     regexp.MustCompile(`(?i)\b(ich bin|danke schön|nicht wahr|können sie)\b`),
}

// CheckLanguage applies the target-language heuristics to draft text.
//
// Two signals: the share of non-Latin letters (catches full script switches
// like Cyrillic or CJK output) and repeated foreign function words (catches
// Latin-script language slips). Empty text passes — emptiness is the
// pipeline's concern, not a language problem.
func CheckLanguage(text string) LanguageVerdict {
	verdict := LanguageVerdict{IsTargetLanguage: true}
	if strings.TrimSpace(text) == "" {
		return verdict
	}

	var letters, nonLatin int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if !unicode.Is(unicode.Latin, r) {
			nonLatin++
		}
	}
	if letters > 0 && float64(nonLatin)/float64(letters) > nonLatinThreshold {
		verdict.IsTargetLanguage = false
		verdict.DetectedPatterns = append(verdict.DetectedPatterns, "non_latin_script")
	}

	var markerHits []string
	for lang, p := range foreignMarkers {
		if p.MatchString(text) {
			markerHits = append(markerHits, lang)
		}
	}
	sort.Strings(markerHits)
	if len(markerHits) >= 2 || (len(markerHits) == 1 && countMatches(foreignMarkers[markerHits[0]], text) >= 2) {
		verdict.IsTargetLanguage = false
		for _, lang := range markerHits {
			verdict.DetectedPatterns = append(verdict.DetectedPatterns, "marker:"+lang)
		}
	}
	return verdict
}

func countMatches(p *regexp.Regexp, text string) int {
	return len(p.FindAllStringIndex(text, -1))
}
