// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review drives the evidence pipeline end to end: it evaluates a
// research question by extracting findings from every stored paper and
// synthesizing them, and it re-reviews the paper collection to refresh
// section splits and topic tags. Both passes continue past individual
// paper failures and report per-paper progress on a writer.
package review

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/evidence-engine/internal/ai"
	"github.com/pdiddy/evidence-engine/internal/autotag"
	"github.com/pdiddy/evidence-engine/internal/extract"
	"github.com/pdiddy/evidence-engine/internal/store"
	"github.com/pdiddy/evidence-engine/internal/synthesis"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const defaultConcurrency = 4

// Evaluator runs question evaluation and collection review against the
// evidence store. Construct with NewEvaluator.
type Evaluator struct {
	store     *store.Store
	extractor *extract.Extractor
	tagger    *autotag.Generator
	engine    *synthesis.Engine
	logger    *zap.Logger
	cfg       types.ReviewConfig
}

// NewEvaluator wires the review pipeline. The caller is shared by the
// extraction and tagging stages, which keeps both under the same request
// pacing. A nil logger is replaced with a no-op logger.
func NewEvaluator(st *store.Store, caller ai.Caller, cfg types.ReviewConfig, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	extractor := extract.NewExtractor(caller, logger)
	if cfg.MaxChunkChars > 0 {
		extractor.MaxChunkChars = cfg.MaxChunkChars
	}
	return &Evaluator{
		store:     st,
		extractor: extractor,
		tagger:    autotag.NewGenerator(caller, logger),
		engine:    synthesis.NewEngine(logger),
		logger:    logger,
		cfg:       cfg,
	}
}

// AnswerQuestion evaluates a question against every stored paper and
// persists the outcome: stored findings for the question are replaced
// with the freshly extracted set, and the synthesis is saved and
// returned. Papers are extracted concurrently but findings keep the
// stored paper order. A paper that fails or yields nothing is counted
// and skipped, never fatal.
func (e *Evaluator) AnswerQuestion(ctx context.Context, questionID string, w io.Writer) (*types.EvidenceSynthesis, error) {
	question, err := e.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	papers, err := e.store.ListPapers(ctx)
	if err != nil {
		return nil, err
	}

	// Section splitting writes to the database, so it stays ahead of the
	// concurrent extraction phase.
	for _, p := range papers {
		if err := e.store.EnsureSections(ctx, p); err != nil {
			e.logger.Warn("section split failed",
				zap.String("paper_id", p.ID),
				zap.Error(err))
		}
	}

	conc := e.cfg.Concurrency
	if conc <= 0 {
		conc = defaultConcurrency
	}

	// Results are slotted by paper index so finding order matches the
	// stored paper order regardless of goroutine scheduling.
	results := make([]*types.ExtractionResult, len(papers))
	var (
		mu      sync.Mutex
		skipped int
		failed  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)
	for i, p := range papers {
		i, p := i, p
		g.Go(func() error {
			result, err := e.extractor.Extract(gctx, p, question)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed++
				fmt.Fprintf(w, "failed  %s: %v\n", p.ID, err)
			case result == nil || !result.Relevant:
				skipped++
				fmt.Fprintf(w, "skipped %s\n", p.ID)
			default:
				results[i] = result
				fmt.Fprintf(w, "extracted %s\n", p.ID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []extract.Extracted
	for i, result := range results {
		if result != nil {
			items = append(items, extract.Extracted{Paper: papers[i], Result: result})
		}
	}
	findings := extract.Materialize(items, questionID)

	// Synthesize before persisting: synthesis annotates findings with
	// consistency and contradiction flags, and the stored rows should
	// carry them.
	syn := e.engine.Synthesize(findings, question)
	syn.RunID = uuid.NewString()

	if err := e.store.ReplaceFindings(ctx, questionID, findings); err != nil {
		return nil, err
	}
	if err := e.store.SaveSynthesis(ctx, &syn); err != nil {
		return nil, err
	}

	fmt.Fprintf(w, "\nextracted: %d, skipped: %d, failed: %d\n", len(items), skipped, failed)
	return &syn, nil
}

// ReviewSummary holds the outcome of a collection review pass.
type ReviewSummary struct {
	// RunID correlates the pass with audit log entries.
	RunID    string
	Reviewed int
	Skipped  int
	Failed   int
}

// Total returns the number of papers processed.
func (s ReviewSummary) Total() int {
	return s.Reviewed + s.Skipped + s.Failed
}

// HasFailures reports whether any papers failed.
func (s ReviewSummary) HasFailures() bool {
	return s.Failed > 0
}

// ReviewAll refreshes sections and topic tags for every stored paper.
// The tag vocabulary is snapshotted once at the start so papers reviewed
// early in the pass do not steer suggestions for later ones. Papers with
// no text to review are skipped; failures are counted and the pass
// continues.
func (e *Evaluator) ReviewAll(ctx context.Context, w io.Writer) (ReviewSummary, error) {
	summary := ReviewSummary{RunID: uuid.NewString()}

	papers, err := e.store.ListPapers(ctx)
	if err != nil {
		return summary, err
	}
	vocabulary, err := e.store.TagVocabulary(ctx)
	if err != nil {
		return summary, err
	}

	e.logger.Info("review pass started",
		zap.String("run_id", summary.RunID),
		zap.Int("papers", len(papers)))

	for _, p := range papers {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if p.Abstract == "" && p.FullText == "" && len(p.Sections) == 0 {
			fmt.Fprintf(w, "skipped %s\n", p.ID)
			summary.Skipped++
			continue
		}

		if err := e.reviewPaper(ctx, p, vocabulary); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", p.ID, err)
			summary.Failed++
			continue
		}
		fmt.Fprintf(w, "reviewed %s (%d tags)\n", p.ID, len(p.Tags))
		summary.Reviewed++
	}

	fmt.Fprintf(w, "\nreviewed: %d, skipped: %d, failed: %d\n",
		summary.Reviewed, summary.Skipped, summary.Failed)
	return summary, nil
}

// TagPaper suggests tags for one stored paper against the current corpus
// vocabulary. When apply is true the suggestions are merged into the
// stored record; otherwise the record is left untouched.
func (e *Evaluator) TagPaper(ctx context.Context, paperID string, apply bool) ([]types.AutoTag, error) {
	paper, err := e.store.GetPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if err := e.store.EnsureSections(ctx, paper); err != nil {
		return nil, err
	}
	vocabulary, err := e.store.TagVocabulary(ctx)
	if err != nil {
		return nil, err
	}

	tags := e.tagger.Suggest(ctx, paper, vocabulary, e.cfg.TagLimit)
	if apply {
		merged := mergeTags(paper.Tags, tags)
		if err := e.store.UpdatePaper(ctx, paper.ID, store.PaperUpdate{Tags: merged}); err != nil {
			return nil, err
		}
	}
	return tags, nil
}

// reviewPaper splits sections where needed, then merges suggested tags
// into the stored record. The paper's Tags field is updated in place on
// success.
func (e *Evaluator) reviewPaper(ctx context.Context, paper *types.Paper, vocabulary []string) error {
	if err := e.store.EnsureSections(ctx, paper); err != nil {
		return err
	}

	suggested := e.tagger.Suggest(ctx, paper, vocabulary, e.cfg.TagLimit)
	merged := mergeTags(paper.Tags, suggested)
	if err := e.store.UpdatePaper(ctx, paper.ID, store.PaperUpdate{Tags: merged}); err != nil {
		return err
	}
	paper.Tags = merged
	return nil
}

// mergeTags unions existing tags with suggestions, stored order first,
// dropping empties and duplicates.
func mergeTags(existing []string, suggested []types.AutoTag) []string {
	merged := make([]string, 0, len(existing)+len(suggested))
	seen := make(map[string]bool, len(existing)+len(suggested))
	for _, tag := range existing {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		merged = append(merged, tag)
	}
	for _, s := range suggested {
		if s.Tag == "" || seen[s.Tag] {
			continue
		}
		seen[s.Tag] = true
		merged = append(merged, s.Tag)
	}
	return merged
}
