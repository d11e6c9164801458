// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesis

import (
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// groupOverlapThreshold is the word-overlap ratio at which two findings are
// considered to describe the same phenomenon.
const groupOverlapThreshold = 0.6

// GroupFindings clusters findings greedily in a single pass. A finding
// joins the first group whose representative (first member) shares at
// least 60% of its content words; otherwise it opens a new group. Input
// order fixes group order and membership, so unchanged input reproduces
// the same grouping.
func GroupFindings(findings []*types.Finding) [][]*types.Finding {
	var groups [][]*types.Finding
	for _, f := range findings {
		placed := false
		for i, group := range groups {
			if wordOverlap(group[0].Description, f.Description) >= groupOverlapThreshold {
				groups[i] = append(groups[i], f)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []*types.Finding{f})
		}
	}
	return groups
}

// wordOverlap computes the share of content words (longer than four
// characters, case-insensitive) the two texts have in common, relative to
// the smaller word set.
func wordOverlap(a, b string) float64 {
	setA := contentWords(a)
	setB := contentWords(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	shared := 0
	for w := range setA {
		if setB[w] {
			shared++
		}
	}

	smaller := len(setA)
	if len(setB) < smaller {
		smaller = len(setB)
	}
	return float64(shared) / float64(smaller)
}

// contentWords collects the words of s longer than four characters,
// lower-cased.
func contentWords(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if len(w) > 4 {
			words[w] = true
		}
	}
	return words
}

// direction classifies which way a finding's description points.
type direction int

const (
	directionUnknown direction = iota
	directionPositive
	directionNegative
	directionNull
)

// increaseTerms and decreaseTerms are the lexical families used to detect
// findings pulling in opposite directions. nullTerms catch explicit
// no-effect phrasing.
var (
	increaseTerms = []string{
		"increase", "increased", "increases", "improve", "improved",
		"improves", "improvement", "higher", "elevated", "greater",
	}
	decreaseTerms = []string{
		"decrease", "decreased", "decreases", "reduce", "reduced",
		"reduces", "reduction", "lower", "worsened", "decline", "declined",
	}
	nullTerms = []string{
		"no effect", "no association", "no significant", "not associated",
		"no difference", "did not",
	}
)

// MarkContradictions cross-validates each group: when members point in
// conflicting directions (one reports an increase, another a decrease or
// an explicit null result), every member with a detectable direction is
// flagged. Findings whose phrasing carries no direction are left alone.
func MarkContradictions(groups [][]*types.Finding) {
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		directions := make([]direction, len(group))
		seen := make(map[direction]bool)
		for i, f := range group {
			directions[i] = findDirection(f.Description)
			if directions[i] != directionUnknown {
				seen[directions[i]] = true
			}
		}
		if len(seen) < 2 {
			continue
		}

		for i, f := range group {
			if directions[i] != directionUnknown {
				f.HasContradiction = true
			}
		}
	}
}

// findDirection detects the direction of a description. A text matching
// both an increase and a decrease term is ambiguous and reports unknown.
func findDirection(description string) direction {
	lower := strings.ToLower(description)

	for _, t := range nullTerms {
		if strings.Contains(lower, t) {
			return directionNull
		}
	}

	up := containsAnyWord(lower, increaseTerms)
	down := containsAnyWord(lower, decreaseTerms)
	switch {
	case up && down:
		return directionUnknown
	case up:
		return directionPositive
	case down:
		return directionNegative
	}
	return directionUnknown
}

// containsAnyWord reports whether any term occurs as a whole word of s.
func containsAnyWord(s string, terms []string) bool {
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		for _, t := range terms {
			if w == t {
				return true
			}
		}
	}
	return false
}

// AssessConsistency grades the agreement among findings in one group. A
// single finding is trivially consistent. Any flagged contradiction makes
// the group inconsistent. Otherwise the grade follows the share of
// peer-reviewed support among all supporting papers: above 0.8 high,
// above 0.5 medium, else low.
func AssessConsistency(findings []*types.Finding) types.Consistency {
	if len(findings) == 0 {
		return types.ConsistencyLow
	}
	if len(findings) == 1 {
		return types.ConsistencyHigh
	}

	peer := 0
	total := 0
	for _, f := range findings {
		if f.HasContradiction {
			return types.ConsistencyLow
		}
		peer += f.PeerReviewedCount
		total += len(f.SupportingPapers)
	}
	if total == 0 {
		return types.ConsistencyLow
	}

	ratio := float64(peer) / float64(total)
	switch {
	case ratio > 0.8:
		return types.ConsistencyHigh
	case ratio > 0.5:
		return types.ConsistencyMedium
	}
	return types.ConsistencyLow
}
