// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// ExportBundle is the export artifact for one question: the question
// itself, its current findings, and the latest synthesis when one exists.
type ExportBundle struct {
	Question  *types.Question          `json:"question" yaml:"question"`
	Findings  []*types.Finding         `json:"findings" yaml:"findings"`
	Synthesis *types.EvidenceSynthesis `json:"synthesis,omitempty" yaml:"synthesis,omitempty"`
}

// ExportYAML writes a question's evidence bundle to
// dataDir/export/[questionID].yaml and returns the written path.
func (s *Store) ExportYAML(ctx context.Context, questionID string) (string, error) {
	bundle, err := s.exportBundle(ctx, questionID)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return s.writeExport(questionID+".yaml", data)
}

// ExportJSON writes a question's evidence bundle to
// dataDir/export/[questionID].json and returns the written path.
func (s *Store) ExportJSON(ctx context.Context, questionID string) (string, error) {
	bundle, err := s.exportBundle(ctx, questionID)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return s.writeExport(questionID+".json", data)
}

func (s *Store) exportBundle(ctx context.Context, questionID string) (*ExportBundle, error) {
	question, err := s.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	findings, err := s.FindingsForQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	synthesis, err := s.LatestSynthesis(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return &ExportBundle{Question: question, Findings: findings, Synthesis: synthesis}, nil
}

func (s *Store) writeExport(name string, data []byte) (string, error) {
	dir := filepath.Join(s.dataDir, exportDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
