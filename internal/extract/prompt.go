// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/evidence-engine/internal/segment"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// extractionSystem fixes the extractor's role and its conservative
// phrasing rules. It rides the system slot so the re-ask escalation can
// rewrite the user prompt without touching the rules.
const extractionSystem = `You are an evidence extraction system for a medical research review. You analyze one paper against one research question.

Rules:
- State only what the paper itself reports. Do not extrapolate or combine with outside knowledge.
- Use hedged language: "found", "suggests", "appears to". Never assert certainty and never claim causation unless the paper itself does.
- Include the sample size and study type when the paper states them.
- Note the paper's own limitations.
- If the paper does not address the question, set "relevant" to false and leave the other fields empty.`

// extractionPromptTmpl is the per-paper prompt. It embeds paper metadata,
// the abstract, and bounded section excerpts alongside the question.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`Research question: {{.Question}}

Respond with a JSON object of this exact shape and no other text:
{"relevant": true, "finding": "one or two hedged sentences on what the paper found about the question", "evidence": "the supporting passage or data point", "study_type": "randomized-controlled-trial|cohort|case-control|cross-sectional|case-report|systematic-review|meta-analysis|preclinical|other", "sample_size": 0, "limitations": ["..."], "confidence": 0.0}

Paper:
Title: {{.Title}}
{{if .Authors}}Authors: {{.Authors}}
{{end}}{{if .Venue}}Venue: {{.Venue}}
{{end}}{{if .Year}}Year: {{.Year}}
{{end}}Status: {{.Status}}

Abstract:
{{.Abstract}}
{{range .Excerpts}}
{{.Section}} (excerpt):
{{.Text}}
{{end}}`))

// excerptSections are the section keys quoted to the model, in the order
// they appear in the prompt.
var excerptSections = []string{"results", "discussion", "conclusion", "methods"}

// renderExtractionPrompt builds the extraction prompt for one paper and
// question. Each quoted section is cut to its first chunk so the prompt
// stays bounded regardless of paper length.
func renderExtractionPrompt(paper *types.Paper, question *types.Question, maxChunkChars int) (string, error) {
	var excerpts []segment.Chunk
	for _, key := range excerptSections {
		text, ok := paper.Sections[key]
		if !ok {
			continue
		}
		chunks := segment.ChunkText(text, key, maxChunkChars)
		if len(chunks) > 0 {
			excerpts = append(excerpts, chunks[0])
		}
	}

	status := "unknown"
	switch {
	case paper.PeerReviewed():
		status = "peer-reviewed"
	case paper.Preprint():
		status = "preprint"
	}

	year := 0
	if !paper.Date.IsZero() {
		year = paper.Date.Year()
	}

	data := struct {
		Question string
		Title    string
		Authors  string
		Venue    string
		Year     int
		Status   string
		Abstract string
		Excerpts []segment.Chunk
	}{
		Question: question.Text,
		Title:    paper.Title,
		Authors:  strings.Join(paper.Authors, ", "),
		Venue:    paper.Venue,
		Year:     year,
		Status:   status,
		Abstract: paper.Abstract,
		Excerpts: excerpts,
	}

	var buf bytes.Buffer
	if err := extractionPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
