// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package autotag

import (
	"bytes"
	"sort"
	"strings"
	"text/template"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// tagPromptTmpl asks the model for topical tags with confidences. It is
// instructed to prefer the existing vocabulary so the corpus converges on
// a shared label set instead of accumulating near-duplicates.
var tagPromptTmpl = template.Must(template.New("autotag").Parse(`You are a research-paper tagging system. Propose up to {{.TopN}} short topical tags for the paper below.

Rules:
- Tags are lowercase topic labels of one to three words (e.g. "long covid", "sleep quality", "cognitive behavioral therapy").
- Prefer reusing tags from the existing vocabulary when they fit the paper.
- Only introduce a new tag when nothing in the vocabulary describes the topic.
- For each tag give a confidence between 0.0 and 1.0.
{{if .Vocabulary}}
Existing vocabulary: {{.Vocabulary}}
{{end}}
Respond with a JSON object of the form {"tags": [{"tag": "...", "confidence": 0.0}]} and no other text.

Title: {{.Title}}

Abstract:
{{.Abstract}}
{{range .Sections}}
{{.Key}}:
{{.Text}}
{{end}}`))

// promptSection is one truncated section passed to the tag prompt.
type promptSection struct {
	Key  string
	Text string
}

// sectionExcerptChars bounds how much of each section the prompt carries.
const sectionExcerptChars = 400

// renderTagPrompt builds the tagging prompt from paper context and the
// normalized vocabulary. Sections are ordered by key so the prompt is
// stable for identical input.
func renderTagPrompt(paper *types.Paper, vocab []vocabEntry, topN int) (string, error) {
	var sections []promptSection
	keys := make([]string, 0, len(paper.Sections))
	for k := range paper.Sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		text := paper.Sections[k]
		if len(text) > sectionExcerptChars {
			text = text[:sectionExcerptChars]
		}
		sections = append(sections, promptSection{Key: k, Text: text})
	}

	words := make([]string, 0, len(vocab))
	for _, v := range vocab {
		words = append(words, v.original)
	}

	data := struct {
		TopN       int
		Vocabulary string
		Title      string
		Abstract   string
		Sections   []promptSection
	}{
		TopN:       topN,
		Vocabulary: strings.Join(words, ", "),
		Title:      paper.Title,
		Abstract:   paper.Abstract,
		Sections:   sections,
	}

	var buf bytes.Buffer
	if err := tagPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
