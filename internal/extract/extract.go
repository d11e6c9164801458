// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract asks the model what a single paper contributes to a
// research question and materializes the answers into findings. Failures
// degrade per paper: an unavailable model yields a not-relevant result,
// malformed output skips the paper, and neither aborts a batch.
package extract

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/ai"
	"github.com/pdiddy/evidence-engine/internal/hedge"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	defaultMaxChunkChars = 4000

	extractMaxTokens = 2048
	extractTimeout   = 60 * time.Second
)

// Extractor extracts evidence from papers. It holds no per-paper state and
// is safe to use from multiple goroutines.
type Extractor struct {
	Caller ai.Caller
	Logger *zap.Logger

	// MaxChunkChars bounds the section excerpts embedded in the prompt
	// (default 4000).
	MaxChunkChars int
}

// NewExtractor builds an Extractor. A nil logger is replaced with a no-op
// logger.
func NewExtractor(caller ai.Caller, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{Caller: caller, Logger: logger, MaxChunkChars: defaultMaxChunkChars}
}

// validExtraction accepts a result whose confidence is in range and whose
// finding is present whenever the paper is marked relevant.
func validExtraction(r types.ExtractionResult) bool {
	if r.Confidence < 0 || r.Confidence > 1 {
		return false
	}
	if !r.Relevant {
		return true
	}
	return strings.TrimSpace(r.Finding) != ""
}

// Extract asks the model whether the paper addresses the question and what
// it found. An unavailable model yields a not-relevant result rather than
// an error. Output that fails validation even after the re-ask skips the
// paper (nil result, nil error). A finding that violates the
// conservative-language policy is logged and returned unmodified; the
// caller decides whether to discard it.
func (e *Extractor) Extract(ctx context.Context, paper *types.Paper, question *types.Question) (*types.ExtractionResult, error) {
	if e.Caller == nil || !e.Caller.Available() {
		return &types.ExtractionResult{
			Relevant:    false,
			Limitations: []string{"model unavailable"},
			Confidence:  0,
		}, nil
	}

	maxChunk := e.MaxChunkChars
	if maxChunk <= 0 {
		maxChunk = defaultMaxChunkChars
	}

	prompt, err := renderExtractionPrompt(paper, question, maxChunk)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	result, err := ai.Invoke(ctx, e.Caller, ai.Request{
		Prompt:    prompt,
		System:    extractionSystem,
		MaxTokens: extractMaxTokens,
		Timeout:   extractTimeout,
	}, validExtraction)
	if err != nil {
		var vErr *ai.ValidationError
		if errors.As(err, &vErr) {
			e.Logger.Warn("extraction output failed validation, skipping paper",
				zap.String("paper_id", paper.ID),
				zap.String("question_id", question.ID),
				zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("extracting from paper %s: %w", paper.ID, err)
	}

	if result.Relevant {
		result.StudyType = types.ParseStudyType(string(result.StudyType))
		if err := hedge.Check(result.Finding); err != nil {
			e.Logger.Warn("finding violates conservative language policy",
				zap.String("paper_id", paper.ID),
				zap.String("question_id", question.ID),
				zap.Error(err))
		}
	}

	return &result, nil
}

// Extracted pairs a paper with its extraction result for materialization.
type Extracted struct {
	Paper  *types.Paper
	Result *types.ExtractionResult
}

// Materialize converts relevant extraction results into findings owned by
// the question. Irrelevant, skipped, and empty results contribute nothing.
// Evidence with digits lands in the quantitative slot, prose in the
// qualitative slot.
func Materialize(items []Extracted, questionID string) []*types.Finding {
	var findings []*types.Finding
	for _, it := range items {
		if it.Result == nil || !it.Result.Relevant {
			continue
		}
		if strings.TrimSpace(it.Result.Finding) == "" {
			continue
		}

		f := &types.Finding{
			ID:               stableID(questionID, it.Paper.ID, it.Result.Finding),
			QuestionID:       questionID,
			Description:      it.Result.Finding,
			SupportingPapers: []string{it.Paper.ID},
		}

		if hasDigit(it.Result.Evidence) {
			f.QuantitativeResult = it.Result.Evidence
		} else {
			f.QualitativeResult = it.Result.Evidence
		}

		if it.Paper.PeerReviewed() {
			f.PeerReviewedCount = 1
		}
		if it.Paper.Preprint() {
			f.PreprintCount = 1
		}
		if it.Result.StudyType != "" {
			f.StudyTypes = []types.StudyType{it.Result.StudyType}
		}
		if it.Result.SampleSize > 0 {
			f.SampleSizes = []int{it.Result.SampleSize}
		}

		findings = append(findings, f)
	}
	return findings
}

// stableID generates a deterministic finding ID from question, paper, and
// description. The ID is the first 12 hex characters of the SHA-256 digest.
func stableID(questionID, paperID, description string) string {
	h := sha256.New()
	h.Write([]byte(questionID))
	h.Write([]byte(paperID))
	h.Write([]byte(description))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
