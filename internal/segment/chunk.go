// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import "strings"

// Chunk is a bounded slice of section text. Chunks are ordered and
// non-overlapping, and their boundaries never fall inside a sentence.
type Chunk struct {
	Section string
	Index   int
	Text    string
}

// ChunkText splits text into chunks of at most maxChars characters, packing
// consecutive sentences greedily. A single sentence longer than maxChars
// becomes its own oversized chunk rather than being cut mid-word. Joining
// the chunk texts with single spaces reproduces the input modulo whitespace
// normalization.
func ChunkText(text, sectionKey string, maxChars int) []Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Section: sectionKey,
			Index:   len(chunks),
			Text:    strings.Join(current, " "),
		})
		current = nil
		currentLen = 0
	}

	for _, sentence := range sentences {
		added := len(sentence)
		if currentLen > 0 {
			added++ // joining space
		}
		if currentLen > 0 && currentLen+added > maxChars {
			flush()
			added = len(sentence)
		}
		current = append(current, sentence)
		currentLen += added
	}
	flush()

	return chunks
}

// splitSentences breaks text at terminal punctuation (".", "!", "?")
// followed by whitespace. Trailing text without terminal punctuation forms
// a final sentence. Each sentence is returned trimmed.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && !isSpace(text[i+1]) {
			continue
		}
		if s := strings.TrimSpace(text[start : i+1]); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
