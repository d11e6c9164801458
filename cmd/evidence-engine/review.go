// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Re-review every stored paper (sections and tags)",
	Long: `Review walks the whole paper collection: full text without cached
sections is split and persisted, and topic tags are refreshed with model
suggestions merged into each paper's existing set. Papers that fail are
reported and skipped; the pass continues.`,
	RunE: runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	ev, st, err := newEvaluator(reviewConfig(cmd))
	if err != nil {
		return err
	}
	defer st.Close()

	summary, err := ev.ReviewAll(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d paper(s) failed review", summary.Failed)
	}
	return nil
}

func init() {
	reviewCmd.Flags().String("model", "", "AI model identifier for tagging")

	rootCmd.AddCommand(reviewCmd)
}
