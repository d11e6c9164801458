// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FindingSummary condenses one group of similar findings for presentation.
type FindingSummary struct {
	// Description is the representative description of the group (the
	// first member's, in input order).
	Description string `json:"description" yaml:"description"`

	// Evidence is the representative supporting evidence text.
	Evidence string `json:"evidence,omitempty" yaml:"evidence,omitempty"`

	// PaperCount is the number of distinct supporting papers.
	PaperCount int `json:"paper_count" yaml:"paper_count"`

	// SupportingPapers lists the distinct supporting paper IDs.
	SupportingPapers []string `json:"supporting_papers" yaml:"supporting_papers"`

	// Consistency grades agreement among the group's findings.
	Consistency Consistency `json:"consistency" yaml:"consistency"`

	// Confidence is the group confidence score, capped at 0.9.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Limitations is the union of the group members' limitations plus
	// fixed flags (preprint evidence, low consistency, small samples).
	Limitations []string `json:"limitations" yaml:"limitations"`
}

// EvidenceSynthesis is the aggregated, confidence-scored answer to a
// question. It is derived from findings and recomputed on demand; the
// findings and papers remain the source of truth.
type EvidenceSynthesis struct {
	// QuestionID identifies the question this synthesis answers.
	QuestionID string `json:"question_id" yaml:"question_id"`

	// Summary is the conservative templated prose answer.
	Summary string `json:"summary" yaml:"summary"`

	// Findings summarizes each group of similar findings.
	Findings []FindingSummary `json:"findings" yaml:"findings"`

	// Confidence is the mean of the per-group confidences.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Limitations is the deduplicated union of group limitations.
	Limitations []string `json:"limitations" yaml:"limitations"`

	// Gaps names the evidence gaps identified by fixed heuristics.
	Gaps []string `json:"gaps" yaml:"gaps"`

	// GeneratedAt records when this synthesis was computed.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	// RunID correlates the synthesis with the evaluation run that
	// produced it, for audit logs.
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

// TagSource identifies which path produced an AutoTag.
type TagSource string

const (
	TagSourceModel     TagSource = "model"
	TagSourceHeuristic TagSource = "heuristic"
)

// AutoTag is a proposed topical tag for a paper.
type AutoTag struct {
	// Tag is the proposed label. When IsNew is false it carries the exact
	// casing of the matched vocabulary entry.
	Tag string `json:"tag" yaml:"tag"`

	// Confidence is the proposal certainty in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Source records whether the model or the frequency heuristic
	// proposed the tag.
	Source TagSource `json:"source" yaml:"source"`

	// IsNew reports whether the tag is absent from the existing vocabulary.
	IsNew bool `json:"is_new" yaml:"is_new"`
}
