// Package strategy classifies a guest message into the answering strategy.
//
// Classification is a pure function: no I/O, deterministic and total over
// any input string. Emergency dominates, so a hazard report that happens to
// quote an appliance code is still treated as an emergency.
package strategy

import (
	"regexp"
	"strings"
)

// Strategy selects the retrieval shape and the prompt template.
type Strategy string

const (
	// Emergency: the message reports a safety hazard.
	Emergency Strategy = "emergency"
	// DiagnosticCode: the message quotes an appliance error code.
	DiagnosticCode Strategy = "diagnostic_code"
	// General: everything else.
	General Strategy = "general"
)

// hazardTerms is the fixed emergency lexicon (Spanish corpus plus English
// equivalents). Matching is case-insensitive substring over the lowered
// message. Inflected forms must be listed explicitly.
var hazardTerms = []string{
	// Spanish
	"fuego", "incendio", "humo", "quemado", "quemándose",
	"chispa", "olor a gas", "huele a gas", "huelo a gas", "escape de gas", "fuga de gas",
	"cortocircuito", "explosión", "explosion", "inundación", "fuga grande",
	// English
	"fire", "smoke", "sparks", "burning smell", "smells like burning",
	"gas leak", "smell gas", "short circuit", "short-circuit", "flooding",
	"large leak",
}

// Diagnostic code patterns, checked in order; the first match wins and its
// captured token, upper-cased, is the extracted code.
var codePatterns = []*regexp.Regexp{
	// E17, F5, Er3, AL09 — one or two letters then one or two digits.
	regexp.MustCompile(`\b([A-Za-z]{1,2}\d{1,2})\b`),
	// "código E17", "error: 43", "code F-22" — explicit code phrasing.
	regexp.MustCompile(`(?i)(?:c[oó]digo|code|error)\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9-]{0,5})`),
	// E:15 / e-15 — separator style used by dishwashers.
	regexp.MustCompile(`\b([A-Za-z][-:]\d{1,2})\b`),
}

// Classify returns the strategy for a message and, for DiagnosticCode, the
// extracted code.
func Classify(message string) (Strategy, string) {
	lowered := strings.ToLower(message)

	for _, term := range hazardTerms {
		if strings.Contains(lowered, term) {
			return Emergency, ""
		}
	}

	for _, re := range codePatterns {
		if m := re.FindStringSubmatch(message); m != nil {
			return DiagnosticCode, strings.ToUpper(m[1])
		}
	}

	return General, ""
}
