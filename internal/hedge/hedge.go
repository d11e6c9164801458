// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package hedge enforces conservative phrasing on model-produced prose.
// Evidence text must avoid absolute or causal claims and must carry at
// least one hedged or evidentiary marker before it is surfaced to users.
package hedge

import (
	"fmt"
	"strings"
)

// bannedPhrases are absolute or causal claims that disqualify a text
// outright. Matching is case-insensitive substring containment, so a
// phrase inside a longer word also disqualifies; over-rejection is the
// intended direction of error.
var bannedPhrases = []string{
	"proves",
	"definitely",
	"always",
	"never",
	"caused by",
	"confirms",
	"demonstrates conclusively",
	"all patients",
	"establishes",
	"the consensus",
}

// hedgeMarkers are the phrasings at least one of which must appear for a
// text to be accepted.
var hedgeMarkers = []string{
	"suggests",
	"may indicate",
	"appears to",
	"evidence supports",
	"study",
	"studies",
	"paper",
	"papers",
	"found",
	"research shows",
}

// Violation reports why a text failed the conservative-language check.
type Violation struct {
	// Text is the rejected candidate output.
	Text string

	// Phrase is the banned phrase that was found. It is empty when the
	// text was rejected for lacking a hedged marker instead.
	Phrase string
}

func (v *Violation) Error() string {
	if v.Phrase != "" {
		return fmt.Sprintf("conservative language violation: banned phrase %q", v.Phrase)
	}
	return "conservative language violation: no hedged or evidentiary marker"
}

// Check validates a candidate output against the conservative-language
// policy. It returns nil when the text is acceptable and a *Violation
// describing the first failure otherwise.
func Check(text string) error {
	lower := strings.ToLower(text)

	for _, phrase := range bannedPhrases {
		if strings.Contains(lower, phrase) {
			return &Violation{Text: text, Phrase: phrase}
		}
	}

	for _, marker := range hedgeMarkers {
		if strings.Contains(lower, marker) {
			return nil
		}
	}
	return &Violation{Text: text}
}

// Acceptable reports whether text passes Check.
func Acceptable(text string) bool {
	return Check(text) == nil
}
