// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// PutQuestion inserts or replaces a research question.
func (s *Store) PutQuestion(ctx context.Context, q *types.Question) error {
	if q.ID == "" {
		return fmt.Errorf("question has no ID")
	}

	tagsJSON, _ := json.Marshal(q.Tags)
	createdAt := ""
	if !q.CreatedAt.IsZero() {
		createdAt = q.CreatedAt.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (id, text, created_at, tags) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			text=excluded.text, created_at=excluded.created_at, tags=excluded.tags`,
		q.ID, q.Text, createdAt, string(tagsJSON),
	)
	if err != nil {
		return fmt.Errorf("upserting question %s: %w", q.ID, err)
	}
	return nil
}

// GetQuestion loads one question by ID.
func (s *Store) GetQuestion(ctx context.Context, id string) (*types.Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, created_at, tags FROM questions WHERE id = ?`, id)

	q, err := scanQuestion(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("question %s not found", id)
		}
		return nil, fmt.Errorf("loading question %s: %w", id, err)
	}
	return q, nil
}

// ListQuestions returns all questions, oldest first.
func (s *Store) ListQuestions(ctx context.Context) ([]*types.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, created_at, tags FROM questions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	defer rows.Close()

	var questions []*types.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceFindings supersedes a question's stored findings: the prior set
// is deleted and the new set inserted in one transaction, preserving the
// given order.
func (s *Store) ReplaceFindings(ctx context.Context, questionID string, findings []*types.Finding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM findings WHERE question_id = ?`, questionID); err != nil {
		return fmt.Errorf("deleting superseded findings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO findings (id, question_id, description, quantitative_result, qualitative_result,
			supporting_papers, peer_reviewed_count, preprint_count, study_types, sample_sizes,
			consistency, has_contradiction, quality_assessment, user_notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range findings {
		papersJSON, _ := json.Marshal(f.SupportingPapers)
		typesJSON, _ := json.Marshal(f.StudyTypes)
		sizesJSON, _ := json.Marshal(f.SampleSizes)
		_, err := stmt.ExecContext(ctx,
			f.ID, questionID, f.Description, f.QuantitativeResult, f.QualitativeResult,
			string(papersJSON), f.PeerReviewedCount, f.PreprintCount,
			string(typesJSON), string(sizesJSON),
			string(f.Consistency), f.HasContradiction, f.QualityAssessment, f.UserNotes,
		)
		if err != nil {
			return fmt.Errorf("inserting finding %s: %w", f.ID, err)
		}
	}

	return tx.Commit()
}

// FindingsForQuestion returns a question's findings in insertion order.
func (s *Store) FindingsForQuestion(ctx context.Context, questionID string) ([]*types.Finding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, description, quantitative_result, qualitative_result,
			supporting_papers, peer_reviewed_count, preprint_count, study_types, sample_sizes,
			consistency, has_contradiction, quality_assessment, user_notes
		 FROM findings WHERE question_id = ? ORDER BY rowid`, questionID)
	if err != nil {
		return nil, fmt.Errorf("loading findings for %s: %w", questionID, err)
	}
	defer rows.Close()

	var findings []*types.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning finding: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// SaveSynthesis stores the latest synthesis for its question, replacing
// any prior one. Syntheses are derived artifacts kept for display and
// export; findings and papers remain the source of truth.
func (s *Store) SaveSynthesis(ctx context.Context, syn *types.EvidenceSynthesis) error {
	data, err := json.Marshal(syn)
	if err != nil {
		return fmt.Errorf("marshaling synthesis: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO syntheses (question_id, data, generated_at) VALUES (?, ?, ?)
		 ON CONFLICT(question_id) DO UPDATE SET
			data=excluded.data, generated_at=excluded.generated_at`,
		syn.QuestionID, string(data), syn.GeneratedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving synthesis for %s: %w", syn.QuestionID, err)
	}
	return nil
}

// LatestSynthesis returns the stored synthesis for a question, or nil
// when none has been saved yet.
func (s *Store) LatestSynthesis(ctx context.Context, questionID string) (*types.EvidenceSynthesis, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM syntheses WHERE question_id = ?`, questionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading synthesis for %s: %w", questionID, err)
	}

	var syn types.EvidenceSynthesis
	if err := json.Unmarshal([]byte(data), &syn); err != nil {
		return nil, fmt.Errorf("parsing stored synthesis for %s: %w", questionID, err)
	}
	return &syn, nil
}

func scanQuestion(row rowScanner) (*types.Question, error) {
	var (
		q         types.Question
		createdAt string
		tagsJSON  string
	)

	if err := row.Scan(&q.ID, &q.Text, &createdAt, &tagsJSON); err != nil {
		return nil, err
	}

	if createdAt != "" {
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at for question %s: %w", q.ID, err)
		}
		q.CreatedAt = t
	}
	json.Unmarshal([]byte(tagsJSON), &q.Tags)

	return &q, nil
}

func scanFinding(row rowScanner) (*types.Finding, error) {
	var (
		f           types.Finding
		papersJSON  string
		typesJSON   string
		sizesJSON   string
		consistency string
	)

	if err := row.Scan(
		&f.ID, &f.QuestionID, &f.Description, &f.QuantitativeResult, &f.QualitativeResult,
		&papersJSON, &f.PeerReviewedCount, &f.PreprintCount, &typesJSON, &sizesJSON,
		&consistency, &f.HasContradiction, &f.QualityAssessment, &f.UserNotes,
	); err != nil {
		return nil, err
	}

	f.Consistency = types.Consistency(consistency)
	json.Unmarshal([]byte(papersJSON), &f.SupportingPapers)
	json.Unmarshal([]byte(typesJSON), &f.StudyTypes)
	json.Unmarshal([]byte(sizesJSON), &f.SampleSizes)

	return &f, nil
}
