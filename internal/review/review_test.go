// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/pdiddy/evidence-engine/internal/ai"
	"github.com/pdiddy/evidence-engine/internal/store"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// --- fixtures ---

// fakeCaller answers model calls by matching registered substrings in the
// prompt. Safe for concurrent use.
type fakeCaller struct {
	mu        sync.Mutex
	available bool
	responses map[string]string
	errs      map[string]error
	prompts   []string
}

func (f *fakeCaller) Call(_ context.Context, prompt string, _ ai.CallOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	for key, err := range f.errs {
		if strings.Contains(prompt, key) {
			return "", err
		}
	}
	for key, resp := range f.responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return `{"relevant": false, "limitations": [], "confidence": 0}`, nil
}

func (f *fakeCaller) Available() bool { return f.available }

// promptFor returns the first recorded prompt containing key.
func (f *fakeCaller) promptFor(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.prompts {
		if strings.Contains(p, key) {
			return p
		}
	}
	return ""
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.NewStore(types.StoreConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedQuestion(t *testing.T, st *store.Store) {
	t.Helper()
	q := &types.Question{ID: "q1", Text: "Does melatonin improve sleep onset?"}
	if err := st.PutQuestion(context.Background(), q); err != nil {
		t.Fatalf("PutQuestion() error = %v", err)
	}
}

func seedPaper(t *testing.T, st *store.Store, p *types.Paper) {
	t.Helper()
	if err := st.PutPaper(context.Background(), p); err != nil {
		t.Fatalf("PutPaper(%s) error = %v", p.ID, err)
	}
}

func melatoninPaper() *types.Paper {
	return &types.Paper{
		ID:          "melatonin-2024",
		Title:       "Melatonin and sleep onset latency",
		Publication: types.StatusPeerReviewed,
		FullText:    "Abstract\nA randomized trial of melatonin dosing.\nResults\nSleep onset latency fell by 12 minutes.\n",
	}
}

func valerianPaper() *types.Paper {
	return &types.Paper{
		ID:          "valerian-2023",
		Title:       "Valerian root for insomnia",
		Publication: types.StatusPreprint,
		Abstract:    "A small cohort study of valerian root.",
	}
}

func runnersPaper() *types.Paper {
	return &types.Paper{
		ID:          "runners-2022",
		Title:       "Blood pressure in marathon runners",
		Publication: types.StatusPeerReviewed,
		Abstract:    "Cardiovascular adaptations in endurance athletes.",
	}
}

const (
	melatoninJSON = `{"relevant": true, "finding": "Melatonin reduced sleep onset latency", "evidence": "Mean reduction of 12 minutes (p < 0.05)", "study_type": "RCT", "sample_size": 120, "limitations": [], "confidence": 0.8}`
	valerianJSON  = `{"relevant": true, "finding": "Valerian may modestly improve sleep quality", "evidence": "Participants reported easier sleep onset", "study_type": "cohort", "sample_size": 45, "limitations": ["small sample"], "confidence": 0.5}`
)

// --- AnswerQuestion ---

func TestAnswerQuestion(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	seedQuestion(t, st)
	seedPaper(t, st, melatoninPaper())
	seedPaper(t, st, runnersPaper())
	seedPaper(t, st, valerianPaper())

	caller := &fakeCaller{
		available: true,
		responses: map[string]string{
			"Melatonin and sleep": melatoninJSON,
			"Valerian root":       valerianJSON,
		},
	}
	ev := NewEvaluator(st, caller, types.ReviewConfig{Concurrency: 2}, nil)

	var buf bytes.Buffer
	syn, err := ev.AnswerQuestion(ctx, "q1", &buf)
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}

	if syn.QuestionID != "q1" {
		t.Errorf("QuestionID = %q, want q1", syn.QuestionID)
	}
	if syn.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(syn.Findings) != 2 {
		t.Fatalf("got %d finding summaries, want 2", len(syn.Findings))
	}
	if got := syn.Findings[0].SupportingPapers; len(got) != 1 || got[0] != "melatonin-2024" {
		t.Errorf("first group papers = %v, want [melatonin-2024]", got)
	}

	// Stored findings follow the paper order and carry the consistency
	// annotation applied during synthesis.
	findings, err := st.FindingsForQuestion(ctx, "q1")
	if err != nil {
		t.Fatalf("FindingsForQuestion() error = %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("got %d stored findings, want 2", len(findings))
	}
	if findings[0].SupportingPapers[0] != "melatonin-2024" {
		t.Errorf("first finding papers = %v, want melatonin-2024", findings[0].SupportingPapers)
	}
	if findings[1].SupportingPapers[0] != "valerian-2023" {
		t.Errorf("second finding papers = %v, want valerian-2023", findings[1].SupportingPapers)
	}
	for _, f := range findings {
		if f.Consistency != types.ConsistencyHigh {
			t.Errorf("finding %s consistency = %q, want %q", f.ID, f.Consistency, types.ConsistencyHigh)
		}
	}

	saved, err := st.LatestSynthesis(ctx, "q1")
	if err != nil {
		t.Fatalf("LatestSynthesis() error = %v", err)
	}
	if saved == nil || saved.RunID != syn.RunID {
		t.Errorf("stored synthesis = %+v, want RunID %s", saved, syn.RunID)
	}

	// Sections were split and persisted ahead of extraction.
	p, err := st.GetPaper(ctx, "melatonin-2024")
	if err != nil {
		t.Fatalf("GetPaper() error = %v", err)
	}
	if len(p.Sections) == 0 {
		t.Error("melatonin-2024 sections were not persisted")
	}

	out := buf.String()
	for _, want := range []string{
		"extracted melatonin-2024\n",
		"skipped runners-2022\n",
		"extracted valerian-2023\n",
		"\nextracted: 2, skipped: 1, failed: 0\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnswerQuestionContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	seedQuestion(t, st)
	seedPaper(t, st, melatoninPaper())
	seedPaper(t, st, valerianPaper())

	caller := &fakeCaller{
		available: true,
		responses: map[string]string{"Melatonin and sleep": melatoninJSON},
		errs:      map[string]error{"Valerian root": errors.New("connection reset")},
	}
	ev := NewEvaluator(st, caller, types.ReviewConfig{Concurrency: 1}, nil)

	var buf bytes.Buffer
	syn, err := ev.AnswerQuestion(ctx, "q1", &buf)
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v, want failures swallowed", err)
	}
	if len(syn.Findings) != 1 {
		t.Fatalf("got %d finding summaries, want 1", len(syn.Findings))
	}

	findings, err := st.FindingsForQuestion(ctx, "q1")
	if err != nil {
		t.Fatalf("FindingsForQuestion() error = %v", err)
	}
	if len(findings) != 1 {
		t.Errorf("got %d stored findings, want 1", len(findings))
	}

	out := buf.String()
	if !strings.Contains(out, "failed  valerian-2023:") {
		t.Errorf("output missing failure line:\n%s", out)
	}
	if !strings.Contains(out, "\nextracted: 1, skipped: 0, failed: 1\n") {
		t.Errorf("output missing summary line:\n%s", out)
	}
}

func TestAnswerQuestionReplacesPriorFindings(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	seedQuestion(t, st)
	seedPaper(t, st, melatoninPaper())

	stale := &types.Finding{
		ID:               "stale",
		QuestionID:       "q1",
		Description:      "A claim from an earlier run",
		SupportingPapers: []string{"removed-paper"},
	}
	if err := st.ReplaceFindings(ctx, "q1", []*types.Finding{stale}); err != nil {
		t.Fatalf("ReplaceFindings() error = %v", err)
	}

	caller := &fakeCaller{
		available: true,
		responses: map[string]string{"Melatonin and sleep": melatoninJSON},
	}
	ev := NewEvaluator(st, caller, types.ReviewConfig{}, nil)

	if _, err := ev.AnswerQuestion(ctx, "q1", io.Discard); err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}

	findings, err := st.FindingsForQuestion(ctx, "q1")
	if err != nil {
		t.Fatalf("FindingsForQuestion() error = %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d stored findings, want 1", len(findings))
	}
	if findings[0].Description != "Melatonin reduced sleep onset latency" {
		t.Errorf("Description = %q, want fresh extraction", findings[0].Description)
	}
}

func TestAnswerQuestionNoPapers(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	seedQuestion(t, st)

	ev := NewEvaluator(st, &fakeCaller{available: true}, types.ReviewConfig{}, nil)

	var buf bytes.Buffer
	syn, err := ev.AnswerQuestion(ctx, "q1", &buf)
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if syn.Summary != "No studies addressing this question have been reviewed yet." {
		t.Errorf("Summary = %q", syn.Summary)
	}
	if syn.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", syn.Confidence)
	}

	saved, err := st.LatestSynthesis(ctx, "q1")
	if err != nil {
		t.Fatalf("LatestSynthesis() error = %v", err)
	}
	if saved == nil {
		t.Error("no-evidence synthesis was not persisted")
	}
	if !strings.Contains(buf.String(), "\nextracted: 0, skipped: 0, failed: 0\n") {
		t.Errorf("output missing summary line:\n%s", buf.String())
	}
}

func TestAnswerQuestionModelUnavailable(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	seedQuestion(t, st)
	seedPaper(t, st, melatoninPaper())

	ev := NewEvaluator(st, &fakeCaller{available: false}, types.ReviewConfig{}, nil)

	var buf bytes.Buffer
	syn, err := ev.AnswerQuestion(ctx, "q1", &buf)
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if len(syn.Findings) != 0 {
		t.Errorf("got %d finding summaries, want 0", len(syn.Findings))
	}
	out := buf.String()
	if !strings.Contains(out, "skipped melatonin-2024\n") {
		t.Errorf("output missing skip line:\n%s", out)
	}
	if !strings.Contains(out, "\nextracted: 0, skipped: 1, failed: 0\n") {
		t.Errorf("output missing summary line:\n%s", out)
	}
}

func TestAnswerQuestionUnknownQuestion(t *testing.T) {
	st := testStore(t)
	ev := NewEvaluator(st, &fakeCaller{available: true}, types.ReviewConfig{}, nil)

	_, err := ev.AnswerQuestion(context.Background(), "missing", io.Discard)
	if err == nil || !strings.Contains(err.Error(), "question missing not found") {
		t.Errorf("error = %v, want question not found", err)
	}
}

// --- ReviewAll ---

func TestReviewAll(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)

	tagged := melatoninPaper()
	tagged.Tags = []string{"circadian"}
	seedPaper(t, st, tagged)
	seedPaper(t, st, &types.Paper{ID: "stub-2020", Title: "Untitled stub"})

	caller := &fakeCaller{
		available: true,
		responses: map[string]string{
			"Melatonin and sleep": `{"tags": [{"tag": "sleep quality", "confidence": 0.9}]}`,
		},
	}
	ev := NewEvaluator(st, caller, types.ReviewConfig{TagLimit: 5}, nil)

	var buf bytes.Buffer
	summary, err := ev.ReviewAll(ctx, &buf)
	if err != nil {
		t.Fatalf("ReviewAll() error = %v", err)
	}

	if summary.RunID == "" {
		t.Error("RunID is empty")
	}
	if summary.Reviewed != 1 || summary.Skipped != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 1 reviewed, 1 skipped", summary)
	}
	if summary.Total() != 2 {
		t.Errorf("Total() = %d, want 2", summary.Total())
	}
	if summary.HasFailures() {
		t.Error("HasFailures() = true, want false")
	}

	stored, err := st.GetPaper(ctx, "melatonin-2024")
	if err != nil {
		t.Fatalf("GetPaper() error = %v", err)
	}
	if want := []string{"circadian", "sleep quality"}; !reflect.DeepEqual(stored.Tags, want) {
		t.Errorf("Tags = %v, want %v", stored.Tags, want)
	}
	if len(stored.Sections) == 0 {
		t.Error("sections were not persisted during review")
	}

	// The text-less paper never reaches the model.
	if len(caller.prompts) != 1 {
		t.Errorf("model calls = %d, want 1", len(caller.prompts))
	}

	out := buf.String()
	for _, want := range []string{
		"reviewed melatonin-2024 (2 tags)\n",
		"skipped stub-2020\n",
		"\nreviewed: 1, skipped: 1, failed: 0\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReviewAllVocabularySnapshot(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)

	tagged := melatoninPaper()
	tagged.Tags = []string{"circadian"}
	seedPaper(t, st, tagged)
	seedPaper(t, st, valerianPaper())

	caller := &fakeCaller{
		available: true,
		responses: map[string]string{
			"Melatonin and sleep": `{"tags": [{"tag": "novel mechanism", "confidence": 0.9}]}`,
			"Valerian root":       `{"tags": []}`,
		},
	}
	ev := NewEvaluator(st, caller, types.ReviewConfig{}, nil)

	if _, err := ev.ReviewAll(ctx, io.Discard); err != nil {
		t.Fatalf("ReviewAll() error = %v", err)
	}

	// The first paper gained "novel mechanism" mid-pass, but the second
	// paper's prompt still sees the vocabulary from the start of the pass.
	prompt := caller.promptFor("Valerian root")
	if prompt == "" {
		t.Fatal("no tag prompt recorded for valerian-2023")
	}
	if !strings.Contains(prompt, "circadian") {
		t.Error("prompt is missing the starting vocabulary")
	}
	if strings.Contains(prompt, "novel mechanism") {
		t.Error("prompt leaked a tag added during the same pass")
	}

	stored, err := st.GetPaper(ctx, "melatonin-2024")
	if err != nil {
		t.Fatalf("GetPaper() error = %v", err)
	}
	if want := []string{"circadian", "novel mechanism"}; !reflect.DeepEqual(stored.Tags, want) {
		t.Errorf("Tags = %v, want %v", stored.Tags, want)
	}
}

// --- TagPaper ---

func TestTagPaper(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)

	tagged := melatoninPaper()
	tagged.Tags = []string{"circadian"}
	seedPaper(t, st, tagged)

	caller := &fakeCaller{
		available: true,
		responses: map[string]string{
			"Melatonin and sleep": `{"tags": [{"tag": "sleep quality", "confidence": 0.9}]}`,
		},
	}
	ev := NewEvaluator(st, caller, types.ReviewConfig{}, nil)

	// Without apply, suggestions are returned but not stored.
	tags, err := ev.TagPaper(ctx, "melatonin-2024", false)
	if err != nil {
		t.Fatalf("TagPaper() error = %v", err)
	}
	if len(tags) != 1 || tags[0].Tag != "sleep quality" {
		t.Fatalf("tags = %+v, want [sleep quality]", tags)
	}
	if !tags[0].IsNew {
		t.Error("IsNew = false, want true for a tag outside the vocabulary")
	}

	stored, err := st.GetPaper(ctx, "melatonin-2024")
	if err != nil {
		t.Fatalf("GetPaper() error = %v", err)
	}
	if want := []string{"circadian"}; !reflect.DeepEqual(stored.Tags, want) {
		t.Errorf("Tags = %v, want unchanged %v", stored.Tags, want)
	}

	// With apply, the merged set is persisted.
	if _, err := ev.TagPaper(ctx, "melatonin-2024", true); err != nil {
		t.Fatalf("TagPaper(apply) error = %v", err)
	}
	stored, err = st.GetPaper(ctx, "melatonin-2024")
	if err != nil {
		t.Fatalf("GetPaper() error = %v", err)
	}
	if want := []string{"circadian", "sleep quality"}; !reflect.DeepEqual(stored.Tags, want) {
		t.Errorf("Tags = %v, want %v", stored.Tags, want)
	}
}

func TestTagPaperUnknownPaper(t *testing.T) {
	ev := NewEvaluator(testStore(t), &fakeCaller{available: true}, types.ReviewConfig{}, nil)

	_, err := ev.TagPaper(context.Background(), "missing", false)
	if err == nil || !strings.Contains(err.Error(), "paper missing not found") {
		t.Errorf("error = %v, want paper not found", err)
	}
}

// --- mergeTags ---

func TestMergeTags(t *testing.T) {
	tests := []struct {
		name      string
		existing  []string
		suggested []types.AutoTag
		want      []string
	}{
		{
			name:      "stored order first, new tags appended",
			existing:  []string{"sleep", "melatonin"},
			suggested: []types.AutoTag{{Tag: "circadian"}, {Tag: "sleep"}},
			want:      []string{"sleep", "melatonin", "circadian"},
		},
		{
			name:      "drops empty and duplicate suggestions",
			existing:  []string{"sleep"},
			suggested: []types.AutoTag{{Tag: ""}, {Tag: "sleep"}, {Tag: "insomnia"}, {Tag: "insomnia"}},
			want:      []string{"sleep", "insomnia"},
		},
		{
			name:      "no existing tags",
			existing:  nil,
			suggested: []types.AutoTag{{Tag: "circadian"}},
			want:      []string{"circadian"},
		},
		{
			name:     "no input",
			existing: nil,
			want:     []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeTags(tt.existing, tt.suggested)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("mergeTags() = %v, want %v", got, tt.want)
			}
		})
	}
}
