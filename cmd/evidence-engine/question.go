// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

var questionCmd = &cobra.Command{
	Use:   "question",
	Short: "Manage research questions and evaluate them (add, list, ask)",
	Long: `Question manages the research questions the evidence base answers. Ask
evaluates a question against every stored paper and synthesizes a cited,
confidence-scored answer.`,
}

// --- add subcommand ---

var questionAddCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Register a research question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuestionAdd,
}

func runQuestionAdd(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		id = uuid.NewString()[:8]
	}

	q := &types.Question{
		ID:        id,
		Text:      strings.Join(args, " "),
		CreatedAt: time.Now().UTC(),
	}
	if tags, _ := cmd.Flags().GetString("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Tags = append(q.Tags, t)
			}
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.PutQuestion(context.Background(), q); err != nil {
		return err
	}
	fmt.Printf("stored question %s\n", q.ID)
	return nil
}

// --- list subcommand ---

var questionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered questions, oldest first",
	RunE:  runQuestionList,
}

func runQuestionList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	questions, err := st.ListQuestions(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(questions)
	}

	if len(questions) == 0 {
		fmt.Println("No questions registered.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-10s  %-12s  %s\n", "ID", "Created", "Question")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for _, q := range questions {
		created := ""
		if !q.CreatedAt.IsZero() {
			created = q.CreatedAt.Format("2006-01-02")
		}
		text := q.Text
		if len(text) > 64 {
			text = text[:61] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-10s  %-12s  %s\n", q.ID, created, text)
	}

	fmt.Fprintf(os.Stdout, "\n%d questions\n", len(questions))
	return nil
}

// --- ask subcommand ---

var questionAskCmd = &cobra.Command{
	Use:   "ask [question-id]",
	Short: "Evaluate a question against the paper collection",
	Long: `Ask extracts findings for the question from every stored paper, replaces
the question's stored findings with the fresh set, and saves and prints
the synthesized answer with confidence, limitations, and gaps.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuestionAsk,
}

func runQuestionAsk(cmd *cobra.Command, args []string) error {
	ev, st, err := newEvaluator(reviewConfig(cmd))
	if err != nil {
		return err
	}
	defer st.Close()

	syn, err := ev.AnswerQuestion(context.Background(), args[0], os.Stdout)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(syn)
	}

	printSynthesis(syn)
	return nil
}

// printSynthesis renders the synthesis as a readable block following the
// progress lines.
func printSynthesis(syn *types.EvidenceSynthesis) {
	fmt.Printf("\n%s\n", syn.Summary)
	fmt.Printf("\nConfidence: %.2f\n", syn.Confidence)

	if len(syn.Findings) > 0 {
		fmt.Println("\nFindings:")
		for _, g := range syn.Findings {
			fmt.Printf("  - %s\n", g.Description)
			if g.Evidence != "" {
				fmt.Printf("    evidence: %s\n", g.Evidence)
			}
			fmt.Printf("    papers: %s (consistency: %s, confidence: %.2f)\n",
				strings.Join(g.SupportingPapers, ", "), g.Consistency, g.Confidence)
		}
	}
	if len(syn.Limitations) > 0 {
		fmt.Println("\nLimitations:")
		for _, l := range syn.Limitations {
			fmt.Printf("  - %s\n", l)
		}
	}
	if len(syn.Gaps) > 0 {
		fmt.Println("\nGaps:")
		for _, g := range syn.Gaps {
			fmt.Printf("  - %s\n", g)
		}
	}
}

func init() {
	questionAddCmd.Flags().String("id", "", "question ID (default: generated)")
	questionAddCmd.Flags().String("tags", "", "comma-separated topic tags")

	questionListCmd.Flags().Bool("json", false, "output questions as JSON")

	questionAskCmd.Flags().String("model", "", "AI model identifier for extraction")
	questionAskCmd.Flags().Bool("json", false, "output the synthesis as JSON")

	questionCmd.AddCommand(questionAddCmd)
	questionCmd.AddCommand(questionListCmd)
	questionCmd.AddCommand(questionAskCmd)

	rootCmd.AddCommand(questionCmd)
}
