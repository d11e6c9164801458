// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesis turns per-paper findings into a grouped,
// confidence-scored evidence synthesis. All of it is deterministic and
// offline; the conservative-language check guards the generated prose.
package synthesis

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/hedge"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	// noEvidenceSummary answers a question with no findings at all.
	noEvidenceSummary = "No studies addressing this question have been reviewed yet."

	// pendingReviewSummary replaces generated prose that fails the
	// conservative-language check.
	pendingReviewSummary = "The collected studies are pending review; a validated summary is not yet available."

	gapFewStudies   = "limited number of studies"
	gapNoTrials     = "no randomized controlled trials"
	gapNoLargeScale = "no large-scale studies"

	limitPreprints      = "includes non-peer-reviewed preprints"
	limitLowConsistency = "low consistency across studies"
	limitSmallSamples   = "small sample sizes"

	maxGroupConfidence = 0.9
	largeSampleSize    = 100
	smallSampleMean    = 30
)

// Engine synthesizes evidence for questions.
type Engine struct {
	logger *zap.Logger
}

// NewEngine builds an Engine. A nil logger is replaced with a no-op logger.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Synthesize groups the findings, cross-validates them, and renders the
// answer. As a side effect it annotates the findings with their group
// consistency and contradiction flags so the caller can persist them.
// With no findings it returns the fixed no-evidence synthesis.
func (e *Engine) Synthesize(findings []*types.Finding, question *types.Question) types.EvidenceSynthesis {
	if len(findings) == 0 {
		return types.EvidenceSynthesis{
			QuestionID:  question.ID,
			Summary:     noEvidenceSummary,
			Confidence:  0,
			Gaps:        []string{gapFewStudies},
			GeneratedAt: time.Now().UTC(),
		}
	}

	groups := GroupFindings(findings)
	MarkContradictions(groups)

	summaries := make([]types.FindingSummary, 0, len(groups))
	var confidenceSum float64
	for _, group := range groups {
		s := summarizeGroup(group)
		confidenceSum += s.Confidence
		summaries = append(summaries, s)
	}

	summary := renderSummary(countDistinctPapers(findings), summaries)
	if err := hedge.Check(summary); err != nil {
		e.logger.Warn("synthesis summary failed conservative language check",
			zap.String("question_id", question.ID),
			zap.Error(err))
		summary = pendingReviewSummary
	}

	return types.EvidenceSynthesis{
		QuestionID:  question.ID,
		Summary:     summary,
		Findings:    summaries,
		Confidence:  confidenceSum / float64(len(groups)),
		Limitations: unionLimitations(summaries),
		Gaps:        assessGaps(findings),
		GeneratedAt: time.Now().UTC(),
	}
}

// summarizeGroup condenses one group into a FindingSummary and writes the
// assessed consistency back onto the members.
func summarizeGroup(group []*types.Finding) types.FindingSummary {
	consistency := AssessConsistency(group)
	for _, f := range group {
		f.Consistency = consistency
	}

	papers := distinctPapers(group)

	s := types.FindingSummary{
		Description:      group[0].Description,
		Evidence:         representativeEvidence(group),
		PaperCount:       len(papers),
		SupportingPapers: papers,
		Consistency:      consistency,
		Confidence:       groupConfidence(len(papers), consistency),
		Limitations:      groupLimitations(group, consistency),
	}
	return s
}

// groupConfidence scores a group from its breadth of support and
// consistency: baseline 0.5, up to +0.2 for paper count, up to +0.2 for
// consistency, capped at 0.9. The cap keeps even the best-supported group
// short of certainty.
func groupConfidence(paperCount int, consistency types.Consistency) float64 {
	confidence := 0.5
	switch {
	case paperCount >= 5:
		confidence += 0.2
	case paperCount >= 3:
		confidence += 0.1
	}
	switch consistency {
	case types.ConsistencyHigh:
		confidence += 0.2
	case types.ConsistencyMedium:
		confidence += 0.1
	}
	if confidence > maxGroupConfidence {
		confidence = maxGroupConfidence
	}
	return confidence
}

// groupLimitations derives the caveat flags for a group: preprint support,
// low consistency, and a small mean sample size across reported samples.
func groupLimitations(group []*types.Finding, consistency types.Consistency) []string {
	var limitations []string

	preprints := 0
	sampleSum, sampleCount := 0, 0
	for _, f := range group {
		preprints += f.PreprintCount
		for _, n := range f.SampleSizes {
			sampleSum += n
			sampleCount++
		}
	}

	if preprints > 0 {
		limitations = append(limitations, limitPreprints)
	}
	if consistency == types.ConsistencyLow {
		limitations = append(limitations, limitLowConsistency)
	}
	if sampleCount > 0 && float64(sampleSum)/float64(sampleCount) < smallSampleMean {
		limitations = append(limitations, limitSmallSamples)
	}
	return limitations
}

// representativeEvidence returns the first non-empty evidence text in the
// group, preferring quantitative results.
func representativeEvidence(group []*types.Finding) string {
	for _, f := range group {
		if f.QuantitativeResult != "" {
			return f.QuantitativeResult
		}
		if f.QualitativeResult != "" {
			return f.QualitativeResult
		}
	}
	return ""
}

// distinctPapers collects the unique supporting paper IDs of a group in
// first-seen order.
func distinctPapers(group []*types.Finding) []string {
	var papers []string
	seen := make(map[string]bool)
	for _, f := range group {
		for _, id := range f.SupportingPapers {
			if !seen[id] {
				seen[id] = true
				papers = append(papers, id)
			}
		}
	}
	return papers
}

func countDistinctPapers(findings []*types.Finding) int {
	return len(distinctPapers(findings))
}

// renderSummary produces the templated conservative prose enumerating each
// group's support and lower-cased description.
func renderSummary(totalPapers int, summaries []types.FindingSummary) string {
	parts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		noun, verb := "papers", "suggest"
		if s.PaperCount == 1 {
			noun, verb = "paper", "suggests"
		}
		desc := strings.TrimSuffix(strings.ToLower(s.Description), ".")
		parts = append(parts, fmt.Sprintf("%d %s %s %s", s.PaperCount, noun, verb, desc))
	}

	noun := "papers"
	if totalPapers == 1 {
		noun = "paper"
	}
	return fmt.Sprintf("Based on %d %s: %s.", totalPapers, noun, strings.Join(parts, "; "))
}

// unionLimitations merges per-group limitations, deduplicated in
// first-seen order.
func unionLimitations(summaries []types.FindingSummary) []string {
	var union []string
	seen := make(map[string]bool)
	for _, s := range summaries {
		for _, l := range s.Limitations {
			if !seen[l] {
				seen[l] = true
				union = append(union, l)
			}
		}
	}
	return union
}

// assessGaps names what the reviewed evidence is missing: breadth, trial
// designs, and scale.
func assessGaps(findings []*types.Finding) []string {
	var gaps []string

	if len(findings) < 3 {
		gaps = append(gaps, gapFewStudies)
	}

	hasTrial := false
	hasLargeSample := false
	for _, f := range findings {
		for _, st := range f.StudyTypes {
			if st.IsClinicalTrial() {
				hasTrial = true
			}
		}
		for _, n := range f.SampleSizes {
			if n > largeSampleSize {
				hasLargeSample = true
			}
		}
	}
	if !hasTrial {
		gaps = append(gaps, gapNoTrials)
	}
	if !hasLargeSample {
		gaps = append(gaps, gapNoLargeScale)
	}
	return gaps
}
