// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package segment splits raw paper text into named sections and bounded,
// sentence-aligned chunks for downstream extraction.
package segment

import "strings"

// sectionAliases maps recognized heading text (lower-cased, punctuation
// stripped) to canonical section keys. Headings outside this table do not
// open a new section.
var sectionAliases = map[string]string{
	"abstract":              "abstract",
	"introduction":          "introduction",
	"background":            "background",
	"methods":               "methods",
	"method":                "methods",
	"methodology":           "methods",
	"materials and methods": "methods",
	"results":               "results",
	"findings":              "results",
	"discussion":            "discussion",
	"limitations":           "limitations",
	"conclusion":            "conclusion",
	"conclusions":           "conclusion",
	"references":            "references",
	"bibliography":          "references",
}

// SplitSections scans raw document text for heading lines naming canonical
// paper sections and returns the text found under each. Keys are lower-cased
// canonical names; absent sections are missing keys, never empty strings.
// Text under an unrecognized heading merges into the open section; text
// before the first recognized heading is dropped. When the same heading
// appears more than once, the last occurrence's content wins.
func SplitSections(text string) map[string]string {
	sections := make(map[string]string)
	lines := strings.Split(text, "\n")
	currentKey := ""
	var bodyLines []string

	flush := func() {
		if currentKey == "" {
			bodyLines = nil
			return
		}
		body := strings.TrimSpace(strings.Join(bodyLines, "\n"))
		if body != "" {
			sections[currentKey] = body
		}
		bodyLines = nil
	}

	for _, line := range lines {
		if key, ok := matchHeading(line); ok {
			flush()
			currentKey = key
			continue
		}
		bodyLines = append(bodyLines, line)
	}
	flush()

	return sections
}

// matchHeading reports whether a line is a recognized section heading and
// returns its canonical key. Markdown heading markers, leading enumeration
// ("3." or "IV."), and trailing punctuation are tolerated.
func matchHeading(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}
	trimmed = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
	trimmed = stripEnumeration(trimmed)
	trimmed = strings.TrimRight(trimmed, ":. ")
	key, ok := sectionAliases[strings.ToLower(trimmed)]
	return key, ok
}

// stripEnumeration removes a leading section number such as "3.", "2.1" or
// "IV." followed by whitespace.
func stripEnumeration(s string) string {
	i := 0
	for i < len(s) {
		c := s[i]
		if c >= '0' && c <= '9' || c == '.' || isRomanNumeral(c) {
			i++
			continue
		}
		break
	}
	if i == 0 || i >= len(s) || (s[i] != ' ' && s[i] != '\t') {
		return s
	}
	return strings.TrimSpace(s[i:])
}

func isRomanNumeral(c byte) bool {
	switch c {
	case 'I', 'V', 'X':
		return true
	}
	return false
}
