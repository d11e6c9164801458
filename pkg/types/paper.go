// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PublicationStatus indicates where a paper sits in the publication process.
// It drives the peer-reviewed/preprint counts on findings; a paper with
// unknown status contributes to neither count.
type PublicationStatus string

const (
	StatusPeerReviewed PublicationStatus = "peer_reviewed"
	StatusPreprint     PublicationStatus = "preprint"
	StatusUnknown      PublicationStatus = "unknown"
)

// ParsePublicationStatus maps loosely phrased publication labels, as they
// appear in metadata files, onto the status vocabulary. Unrecognized or
// empty labels map to StatusUnknown.
func ParsePublicationStatus(s string) PublicationStatus {
	switch normalizeEnum(s) {
	case "peer-reviewed", "published", "journal-article":
		return StatusPeerReviewed
	case "preprint", "pre-print", "working-paper":
		return StatusPreprint
	default:
		return StatusUnknown
	}
}

// Paper holds metadata and text for a registered paper.
type Paper struct {
	// ID is a slug identifying the paper (e.g. "2301.07041" or a DOI slug).
	ID string `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Venue is the journal or conference name, if known.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Date is the publication or preprint date.
	Date time.Time `json:"date,omitempty" yaml:"date,omitempty"`

	// Publication records whether the paper is peer-reviewed, a preprint,
	// or of unknown status.
	Publication PublicationStatus `json:"publication" yaml:"publication"`

	// Sections maps canonical section names (lower-cased: abstract,
	// methods, results, ...) to the text found under that heading. Absent
	// sections are missing keys, never empty strings. Built once from
	// FullText and cached with the record; rebuilt only when the record
	// lacks it and full text is available.
	Sections map[string]string `json:"sections,omitempty" yaml:"sections,omitempty"`

	// FullText is the raw extracted text of the paper, when available.
	FullText string `json:"full_text,omitempty" yaml:"full_text,omitempty"`

	// Tags are lowercase topic labels attached to this paper.
	Tags []string `json:"tags" yaml:"tags"`
}

// PeerReviewed reports whether the paper has a confirmed peer-reviewed status.
func (p *Paper) PeerReviewed() bool {
	return p.Publication == StatusPeerReviewed
}

// Preprint reports whether the paper has a confirmed preprint status.
func (p *Paper) Preprint() bool {
	return p.Publication == StatusPreprint
}

// Question is a user-posed research question. Findings and syntheses are
// owned by the question they answer.
type Question struct {
	// ID is a stable identifier for the question.
	ID string `json:"id" yaml:"id"`

	// Text is the question as posed by the user.
	Text string `json:"text" yaml:"text"`

	// CreatedAt records when the question was registered.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Tags are optional topic labels for grouping questions.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}
