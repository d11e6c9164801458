// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists papers, questions, findings, and syntheses in a
// local SQLite database with a full-text index over paper content. The
// store is an injected dependency of the pipeline components; nothing in
// this module holds a shared global handle.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	dbFile    = "evidence.db"
	exportDir = "export"
)

// Store manages the evidence SQLite database.
type Store struct {
	db         *sql.DB
	dataDir    string
	maxResults int
}

// NewStore opens or creates the evidence database at dataDir/evidence.db,
// creating the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		dataDir:    cfg.DataDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			title TEXT,
			abstract TEXT,
			authors TEXT,
			venue TEXT,
			date TEXT,
			publication_status TEXT,
			sections TEXT,
			full_text TEXT,
			tags TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			created_at TEXT,
			tags TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			id TEXT PRIMARY KEY,
			question_id TEXT NOT NULL REFERENCES questions(id),
			description TEXT NOT NULL,
			quantitative_result TEXT,
			qualitative_result TEXT,
			supporting_papers TEXT,
			peer_reviewed_count INTEGER,
			preprint_count INTEGER,
			study_types TEXT,
			sample_sizes TEXT,
			consistency TEXT,
			has_contradiction INTEGER,
			quality_assessment TEXT,
			user_notes TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_question_id ON findings(question_id)`,
		`CREATE TABLE IF NOT EXISTS syntheses (
			question_id TEXT PRIMARY KEY REFERENCES questions(id),
			data TEXT NOT NULL,
			generated_at TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE papers_fts USING fts5(title, abstract, full_text, content=papers, content_rowid=rowid)`,
			`CREATE TRIGGER papers_ai AFTER INSERT ON papers BEGIN
				INSERT INTO papers_fts(rowid, title, abstract, full_text)
				VALUES (new.rowid, new.title, new.abstract, new.full_text);
			END`,
			`CREATE TRIGGER papers_ad AFTER DELETE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract, full_text)
				VALUES('delete', old.rowid, old.title, old.abstract, old.full_text);
			END`,
			`CREATE TRIGGER papers_au AFTER UPDATE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract, full_text)
				VALUES('delete', old.rowid, old.title, old.abstract, old.full_text);
				INSERT INTO papers_fts(rowid, title, abstract, full_text)
				VALUES (new.rowid, new.title, new.abstract, new.full_text);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// rowScanner is satisfied by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
