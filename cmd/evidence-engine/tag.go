// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag [paper-id]",
	Short: "Suggest topic tags for one paper",
	Long: `Tag proposes topical tags for a paper, preferring labels already in the
corpus vocabulary so the collection converges on a shared set. With
--apply the suggestions are merged into the paper's stored tags.`,
	Args: cobra.ExactArgs(1),
	RunE: runTag,
}

func runTag(cmd *cobra.Command, args []string) error {
	cfg := reviewConfig(cmd)
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
		cfg.TagLimit = limit
	}

	ev, st, err := newEvaluator(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	apply, _ := cmd.Flags().GetBool("apply")
	tags, err := ev.TagPaper(context.Background(), args[0], apply)
	if err != nil {
		return err
	}

	if len(tags) == 0 {
		fmt.Println("No tags suggested.")
		return nil
	}
	for _, t := range tags {
		marker := ""
		if t.IsNew {
			marker = "  (new)"
		}
		fmt.Printf("%-30s  %.2f  %s%s\n", t.Tag, t.Confidence, t.Source, marker)
	}
	if apply {
		fmt.Printf("\napplied to %s\n", args[0])
	}
	return nil
}

func init() {
	tagCmd.Flags().String("model", "", "AI model identifier for tagging")
	tagCmd.Flags().Int("limit", 0, "maximum tags to propose (0 = use default)")
	tagCmd.Flags().Bool("apply", false, "merge suggestions into the stored tags")

	rootCmd.AddCommand(tagCmd)
}
