// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/segment"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// PutPaper inserts or replaces a paper record.
func (s *Store) PutPaper(ctx context.Context, paper *types.Paper) error {
	if paper.ID == "" {
		return fmt.Errorf("paper has no ID")
	}

	authorsJSON, _ := json.Marshal(paper.Authors)
	sectionsJSON, _ := json.Marshal(paper.Sections)
	tagsJSON, _ := json.Marshal(paper.Tags)
	dateStr := ""
	if !paper.Date.IsZero() {
		dateStr = paper.Date.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (id, title, abstract, authors, venue, date, publication_status, sections, full_text, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, abstract=excluded.abstract, authors=excluded.authors,
			venue=excluded.venue, date=excluded.date,
			publication_status=excluded.publication_status, sections=excluded.sections,
			full_text=excluded.full_text, tags=excluded.tags`,
		paper.ID, paper.Title, paper.Abstract, string(authorsJSON), paper.Venue,
		dateStr, string(paper.Publication), string(sectionsJSON), paper.FullText, string(tagsJSON),
	)
	if err != nil {
		return fmt.Errorf("upserting paper %s: %w", paper.ID, err)
	}
	return nil
}

// GetPaper loads one paper by ID.
func (s *Store) GetPaper(ctx context.Context, id string) (*types.Paper, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, abstract, authors, venue, date, publication_status, sections, full_text, tags
		 FROM papers WHERE id = ?`, id)

	paper, err := scanPaper(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("paper %s not found", id)
		}
		return nil, fmt.Errorf("loading paper %s: %w", id, err)
	}
	return paper, nil
}

// ListPapers returns all papers ordered by ID.
func (s *Store) ListPapers(ctx context.Context) ([]*types.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, abstract, authors, venue, date, publication_status, sections, full_text, tags
		 FROM papers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	var papers []*types.Paper
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers = append(papers, paper)
	}
	return papers, rows.Err()
}

// BulkGetPapers loads the named papers in one query. IDs with no stored
// paper are simply absent from the returned map.
func (s *Store) BulkGetPapers(ctx context.Context, ids []string) (map[string]*types.Paper, error) {
	papers := make(map[string]*types.Paper, len(ids))
	if len(ids) == 0 {
		return papers, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, abstract, authors, venue, date, publication_status, sections, full_text, tags
		 FROM papers WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("loading papers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers[paper.ID] = paper
	}
	return papers, rows.Err()
}

// PaperUpdate names the fields a partial paper update may overwrite. Nil
// fields keep their stored value; non-nil fields replace it, last writer
// wins.
type PaperUpdate struct {
	Sections map[string]string
	Tags     []string
}

// UpdatePaper applies a partial update to a stored paper.
func (s *Store) UpdatePaper(ctx context.Context, id string, update PaperUpdate) error {
	var (
		sets []string
		args []any
	)
	if update.Sections != nil {
		data, _ := json.Marshal(update.Sections)
		sets = append(sets, "sections = ?")
		args = append(args, string(data))
	}
	if update.Tags != nil {
		data, _ := json.Marshal(update.Tags)
		sets = append(sets, "tags = ?")
		args = append(args, string(data))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE papers SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating paper %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating paper %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("paper %s not found", id)
	}
	return nil
}

// SearchPapers runs an FTS5 full-text query over titles, abstracts, and
// full text, best match first. A non-positive maxResults uses the store
// default.
func (s *Store) SearchPapers(ctx context.Context, query string, maxResults int) ([]*types.Paper, error) {
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.abstract, p.authors, p.venue, p.date,
			p.publication_status, p.sections, p.full_text, p.tags
		 FROM papers_fts
		 JOIN papers p ON p.rowid = papers_fts.rowid
		 WHERE papers_fts MATCH ?
		 ORDER BY papers_fts.rank
		 LIMIT ?`, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("searching papers: %w", err)
	}
	defer rows.Close()

	var papers []*types.Paper
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers = append(papers, paper)
	}
	return papers, rows.Err()
}

// EnsureSections builds and caches the section map of a paper whose
// record lacks one, provided full text is available. The paper is
// mutated in place and the computed map persisted. Papers with cached
// sections, no full text, or no recognizable headings are left untouched.
func (s *Store) EnsureSections(ctx context.Context, paper *types.Paper) error {
	if len(paper.Sections) > 0 || paper.FullText == "" {
		return nil
	}

	sections := segment.SplitSections(paper.FullText)
	if len(sections) == 0 {
		return nil
	}

	paper.Sections = sections
	return s.UpdatePaper(ctx, paper.ID, PaperUpdate{Sections: sections})
}

// TagVocabulary returns the distinct tags across all papers, sorted
// alphabetically. Batch review runs snapshot it once at start so
// per-paper tag decisions stay reproducible within a run.
func (s *Store) TagVocabulary(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT value FROM papers, json_each(papers.tags)
		 WHERE value IS NOT NULL
		 ORDER BY value`)
	if err != nil {
		return nil, fmt.Errorf("collecting tag vocabulary: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func scanPaper(row rowScanner) (*types.Paper, error) {
	var (
		p            types.Paper
		authorsJSON  string
		dateStr      string
		status       string
		sectionsJSON string
		tagsJSON     string
	)

	if err := row.Scan(
		&p.ID, &p.Title, &p.Abstract, &authorsJSON, &p.Venue, &dateStr,
		&status, &sectionsJSON, &p.FullText, &tagsJSON,
	); err != nil {
		return nil, err
	}

	p.Publication = types.PublicationStatus(status)
	if dateStr != "" {
		t, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parsing date for paper %s: %w", p.ID, err)
		}
		p.Date = t
	}

	json.Unmarshal([]byte(authorsJSON), &p.Authors)
	json.Unmarshal([]byte(sectionsJSON), &p.Sections)
	json.Unmarshal([]byte(tagsJSON), &p.Tags)

	return &p, nil
}
