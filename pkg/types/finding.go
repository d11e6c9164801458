// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// normalizeEnum lower-cases a label and collapses spaces and underscores
// to hyphens so model-phrased variants match the enum vocabulary.
func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), "-")
}

// StudyType classifies the study design reported by a paper.
type StudyType string

const (
	StudyRCT              StudyType = "randomized-controlled-trial"
	StudyCohort           StudyType = "cohort"
	StudyCaseControl      StudyType = "case-control"
	StudyCrossSectional   StudyType = "cross-sectional"
	StudyCaseReport       StudyType = "case-report"
	StudySystematicReview StudyType = "systematic-review"
	StudyMetaAnalysis     StudyType = "meta-analysis"
	StudyPreclinical      StudyType = "preclinical"
	StudyOther            StudyType = "other"
)

// IsClinicalTrial reports whether the study type is a randomized
// controlled trial. Evidence gaps cite the absence of any such study.
func (s StudyType) IsClinicalTrial() bool {
	return s == StudyRCT
}

// ParseStudyType maps loosely phrased study-design labels, as a model
// tends to return them, onto the StudyType vocabulary. Unrecognized or
// empty labels map to StudyOther.
func ParseStudyType(s string) StudyType {
	switch normalizeEnum(s) {
	case "randomized-controlled-trial", "rct", "randomized-trial", "clinical-trial":
		return StudyRCT
	case "cohort", "cohort-study", "prospective-cohort", "retrospective-cohort":
		return StudyCohort
	case "case-control", "case-control-study":
		return StudyCaseControl
	case "cross-sectional", "cross-sectional-study", "survey":
		return StudyCrossSectional
	case "case-report", "case-series":
		return StudyCaseReport
	case "systematic-review", "review":
		return StudySystematicReview
	case "meta-analysis":
		return StudyMetaAnalysis
	case "preclinical", "animal", "animal-study", "in-vitro":
		return StudyPreclinical
	default:
		return StudyOther
	}
}

// Consistency grades the agreement among findings describing the same
// phenomenon.
type Consistency string

const (
	ConsistencyLow    Consistency = "low"
	ConsistencyMedium Consistency = "medium"
	ConsistencyHigh   Consistency = "high"
)

// ExtractionResult is the structured outcome of asking the model whether
// and what a single paper contributes to a question.
type ExtractionResult struct {
	// Relevant reports whether the paper addresses the question at all.
	Relevant bool `json:"relevant" yaml:"relevant"`

	// Finding is the conservative one-to-two sentence statement of what the
	// paper found with respect to the question. Populated only when Relevant.
	Finding string `json:"finding,omitempty" yaml:"finding,omitempty"`

	// Evidence is the supporting passage or data point from the paper.
	// Populated only when Relevant.
	Evidence string `json:"evidence,omitempty" yaml:"evidence,omitempty"`

	// StudyType classifies the study design, when the paper states one.
	StudyType StudyType `json:"study_type,omitempty" yaml:"study_type,omitempty"`

	// SampleSize is the number of subjects, when the paper states one.
	// Zero means not reported.
	SampleSize int `json:"sample_size,omitempty" yaml:"sample_size,omitempty"`

	// Limitations lists caveats the model identified (or the fixed
	// fallback reason when the model was unreachable).
	Limitations []string `json:"limitations" yaml:"limitations"`

	// Confidence is the model's self-reported certainty in [0,1]. It is
	// not independently computed.
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Finding is a materialized, paper-linked unit of evidence owned by a
// question. A fresh evaluation run replaces a question's findings rather
// than mutating them.
type Finding struct {
	// ID is a stable identifier derived from the question and description,
	// consistent across re-runs over unchanged content.
	ID string `json:"id" yaml:"id"`

	// QuestionID identifies the owning question.
	QuestionID string `json:"question_id" yaml:"question_id"`

	// Description is the conservative statement of the evidence claim.
	Description string `json:"description" yaml:"description"`

	// QuantitativeResult holds numeric evidence (effect sizes, percentages),
	// when the supporting passage contains one.
	QuantitativeResult string `json:"quantitative_result,omitempty" yaml:"quantitative_result,omitempty"`

	// QualitativeResult holds non-numeric supporting evidence text.
	QualitativeResult string `json:"qualitative_result,omitempty" yaml:"qualitative_result,omitempty"`

	// SupportingPapers lists the IDs of papers supporting this finding.
	// Never empty for a materialized finding.
	SupportingPapers []string `json:"supporting_papers" yaml:"supporting_papers"`

	// PeerReviewedCount is the number of supporting papers with confirmed
	// peer-reviewed status.
	PeerReviewedCount int `json:"peer_reviewed_count" yaml:"peer_reviewed_count"`

	// PreprintCount is the number of supporting papers with confirmed
	// preprint status. Unknown-status papers count toward neither, so
	// PeerReviewedCount+PreprintCount may be less than the supporter count.
	PreprintCount int `json:"preprint_count" yaml:"preprint_count"`

	// StudyTypes lists the study designs of the supporting papers.
	StudyTypes []StudyType `json:"study_types" yaml:"study_types"`

	// SampleSizes lists reported sample sizes of the supporting papers.
	SampleSizes []int `json:"sample_sizes" yaml:"sample_sizes"`

	// Consistency grades agreement with the other findings in its group.
	Consistency Consistency `json:"consistency" yaml:"consistency"`

	// HasContradiction marks a finding that opposes another finding about
	// the same phenomenon.
	HasContradiction bool `json:"has_contradiction" yaml:"has_contradiction"`

	// QualityAssessment is an optional reviewer note on evidence quality.
	QualityAssessment string `json:"quality_assessment,omitempty" yaml:"quality_assessment,omitempty"`

	// UserNotes is free-form user annotation preserved across exports.
	UserNotes string `json:"user_notes,omitempty" yaml:"user_notes,omitempty"`
}
