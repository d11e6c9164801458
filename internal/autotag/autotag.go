// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package autotag proposes topical tags for papers. The model path asks the
// AI for candidates against the existing vocabulary; when the model is
// unavailable or fails, a deterministic word-frequency fallback takes over.
package autotag

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/ai"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	defaultTopN = 5

	// snapThreshold is the Jaccard similarity above which a candidate is
	// treated as an existing vocabulary entry rather than a new tag.
	snapThreshold = 0.8

	tagMaxTokens = 1024
	tagTimeout   = 30 * time.Second
)

// Generator proposes tags for one paper at a time. It holds no per-paper
// state and is safe to share across goroutines.
type Generator struct {
	caller ai.Caller
	logger *zap.Logger
}

// NewGenerator builds a Generator. A nil caller disables the model path so
// every suggestion comes from the frequency fallback. A nil logger is
// replaced with a no-op logger.
func NewGenerator(caller ai.Caller, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{caller: caller, logger: logger}
}

// Suggest returns up to topN tags for the paper. Candidates similar to an
// existing vocabulary entry snap to that entry's original casing; the rest
// are marked new. Model failures are logged and answered with the
// deterministic fallback, never an error.
func (g *Generator) Suggest(ctx context.Context, paper *types.Paper, vocabulary []string, topN int) []types.AutoTag {
	if topN <= 0 {
		topN = defaultTopN
	}
	vocab := normalizeVocabulary(vocabulary)

	if g.caller != nil && g.caller.Available() {
		tags, err := g.modelTags(ctx, paper, vocab, topN)
		if err == nil {
			return tags
		}
		g.logger.Warn("model tagging failed, using frequency fallback",
			zap.String("paper_id", paper.ID),
			zap.Error(err))
	}

	return frequencyTags(paper, vocab, topN)
}

// tagCandidate is one model-proposed tag.
type tagCandidate struct {
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
}

// tagResponse is the JSON shape the model must return.
type tagResponse struct {
	Tags []tagCandidate `json:"tags"`
}

// validTagResponse accepts a response whose entries all carry a non-empty
// tag and an in-range confidence. An empty list is a valid "no tags" answer.
func validTagResponse(r tagResponse) bool {
	for _, t := range r.Tags {
		if strings.TrimSpace(t.Tag) == "" {
			return false
		}
		if t.Confidence < 0 || t.Confidence > 1 {
			return false
		}
	}
	return true
}

// modelTags runs the model path and snaps candidates to the vocabulary.
func (g *Generator) modelTags(ctx context.Context, paper *types.Paper, vocab []vocabEntry, topN int) ([]types.AutoTag, error) {
	prompt, err := renderTagPrompt(paper, vocab, topN)
	if err != nil {
		return nil, err
	}

	resp, err := ai.Invoke(ctx, g.caller, ai.Request{
		Prompt:    prompt,
		MaxTokens: tagMaxTokens,
		Timeout:   tagTimeout,
	}, validTagResponse)
	if err != nil {
		return nil, err
	}

	tags := make([]types.AutoTag, 0, len(resp.Tags))
	seen := make(map[string]bool)
	for _, cand := range resp.Tags {
		tag, isNew := snapToVocabulary(normalizeTag(cand.Tag), vocab)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, types.AutoTag{
			Tag:        tag,
			Confidence: cand.Confidence,
			Source:     types.TagSourceModel,
			IsNew:      isNew,
		})
		if len(tags) == topN {
			break
		}
	}
	return tags, nil
}

// frequencyTags ranks content words of the paper by frequency and turns the
// most frequent into tags. The ranking breaks frequency ties alphabetically
// so identical input always yields identical output.
func frequencyTags(paper *types.Paper, vocab []vocabEntry, topN int) []types.AutoTag {
	freq := wordFrequencies(paper)

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})

	var tags []types.AutoTag
	seen := make(map[string]bool)
	for _, w := range words {
		tag, isNew := snapToVocabulary(w, vocab)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		confidence := 0.5 + math.Min(0.4, float64(freq[w])/20)
		tags = append(tags, types.AutoTag{
			Tag:        tag,
			Confidence: confidence,
			Source:     types.TagSourceHeuristic,
			IsNew:      isNew,
		})
		if len(tags) == topN {
			break
		}
	}
	return tags
}

// stopwords are words too generic to be useful tags. Content words three
// characters or shorter are dropped before this filter applies.
var stopwords = map[string]bool{
	"with": true, "this": true, "that": true, "from": true, "were": true,
	"been": true, "have": true, "will": true, "would": true, "could": true,
	"should": true, "their": true, "these": true, "those": true, "than": true,
	"then": true, "into": true, "about": true, "after": true, "before": true,
	"between": true, "during": true, "also": true, "such": true, "each": true,
	"more": true, "most": true, "other": true, "some": true, "only": true,
	"over": true, "under": true, "while": true, "within": true, "without": true,
	"however": true, "thus": true, "therefore": true, "among": true, "both": true,
	"study": true, "studies": true, "paper": true, "papers": true, "results": true,
	"methods": true, "using": true, "used": true, "based": true, "which": true,
	"when": true, "where": true, "there": true, "found": true, "showed": true,
	"significant": true, "significantly": true, "compared": true, "group": true,
	"groups": true, "participants": true, "patients": true,
}

// wordFrequencies counts stop-word-filtered content words longer than three
// characters across title, abstract, and sections. Sections are visited in
// key order to keep counting deterministic.
func wordFrequencies(paper *types.Paper) map[string]int {
	parts := []string{paper.Title, paper.Abstract}
	keys := make([]string, 0, len(paper.Sections))
	for k := range paper.Sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, paper.Sections[k])
	}

	freq := make(map[string]int)
	text := strings.ToLower(strings.Join(parts, " "))
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	for _, w := range words {
		if len(w) > 3 && !stopwords[w] {
			freq[w]++
		}
	}
	return freq
}

// vocabEntry pairs a vocabulary tag with its normalized comparison form.
type vocabEntry struct {
	original   string
	normalized string
	words      []string
}

// normalizeVocabulary lower-cases, trims, and whitespace-collapses the
// vocabulary, dropping duplicates (first occurrence keeps its casing).
func normalizeVocabulary(vocabulary []string) []vocabEntry {
	var entries []vocabEntry
	seen := make(map[string]bool)
	for _, v := range vocabulary {
		norm := normalizeTag(v)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		entries = append(entries, vocabEntry{
			original:   strings.TrimSpace(v),
			normalized: norm,
			words:      strings.Fields(norm),
		})
	}
	return entries
}

// normalizeTag lower-cases a tag and collapses internal whitespace.
func normalizeTag(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// snapToVocabulary maps a normalized candidate onto the closest vocabulary
// entry. When the best word-level Jaccard similarity reaches the snap
// threshold the entry's original casing is returned with isNew false;
// otherwise the candidate itself is returned as a new tag.
func snapToVocabulary(candidate string, vocab []vocabEntry) (tag string, isNew bool) {
	if candidate == "" {
		return "", true
	}
	candWords := strings.Fields(candidate)

	best := 0.0
	bestIdx := -1
	for i, entry := range vocab {
		if sim := jaccard(candWords, entry.words); sim > best {
			best = sim
			bestIdx = i
		}
	}
	if bestIdx >= 0 && best >= snapThreshold {
		return vocab[bestIdx].original, false
	}
	return candidate, true
}

// jaccard computes token-set Jaccard similarity between two word lists.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, w := range a {
		setA[w] = true
	}
	setB := make(map[string]bool, len(b))
	for _, w := range b {
		setB[w] = true
	}

	shared := 0
	for w := range setA {
		if setB[w] {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}
