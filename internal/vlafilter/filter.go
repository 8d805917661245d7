// Package vlafilter decides whether a paper is about Vision-Language-Action
// models for robotics. The rules are deliberately strict: a bare "VLA"
// acronym is ambiguous (value-at-risk, vertical line arrays), so it only
// counts alongside a robotics context phrase.
package vlafilter

import "strings"

var fullPatterns = []string{
	"vision-language-action",
	"vision language action",
	"visionlanguageaction",
}

var contextPhrases = []string{
	"vla model",
	"vla policy",
	"vla agent",
	"vla robot",
	"vla framework",
	"vla architecture",
}

// Related reports whether the title/abstract pair matches the VLA relevance
// rules. Matching is case-insensitive.
func Related(title, abstract string) bool {
	text := strings.ToLower(title + " " + abstract)
	for _, p := range fullPatterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	if !hasVLAToken(text) {
		return false
	}
	for _, p := range contextPhrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// hasVLAToken looks for "vla" as a space-delimited word. Hyphenated and
// bracketed forms do not count; the context phrases are space-delimited
// too, so anything they would match already carries a plain token.
func hasVLAToken(text string) bool {
	return strings.Contains(text, " vla ") ||
		strings.HasPrefix(text, "vla ") ||
		strings.HasSuffix(text, " vla")
}
