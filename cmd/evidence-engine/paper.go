// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Manage papers in the evidence base (add, list, show, search)",
	Long: `Paper manages the stored paper collection. Papers are added from metadata
files, optionally with full text that later review passes split into
sections for extraction.`,
}

// --- add subcommand ---

var paperAddCmd = &cobra.Command{
	Use:   "add [metadata-file]",
	Short: "Add or update a paper from a YAML or JSON metadata file",
	Long: `Add reads paper metadata (id, title, abstract, authors, venue, date,
publication status, tags) from a YAML or JSON file and stores it. An
optional --full-text file attaches the paper's plain text. Adding an
existing ID replaces the stored record.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaperAdd,
}

func runPaperAdd(cmd *cobra.Command, args []string) error {
	paper, err := readPaperFile(args[0])
	if err != nil {
		return err
	}

	if textPath, _ := cmd.Flags().GetString("full-text"); textPath != "" {
		data, err := os.ReadFile(textPath)
		if err != nil {
			return fmt.Errorf("reading full text %s: %w", textPath, err)
		}
		paper.FullText = string(data)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.PutPaper(context.Background(), paper); err != nil {
		return err
	}
	fmt.Printf("stored %s\n", paper.ID)
	return nil
}

// readPaperFile parses a metadata file into a Paper, keyed on extension
// (.json is JSON, everything else YAML). The publication status is
// normalized so loosely phrased labels still count toward the
// peer-reviewed and preprint tallies.
func readPaperFile(path string) (*types.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata %s: %w", path, err)
	}

	var paper types.Paper
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &paper)
	} else {
		err = yaml.Unmarshal(data, &paper)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing metadata %s: %w", path, err)
	}

	paper.Publication = types.ParsePublicationStatus(string(paper.Publication))
	return &paper, nil
}

// --- list subcommand ---

var paperListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored papers",
	RunE:  runPaperList,
}

func runPaperList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	papers, err := st.ListPapers(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatPaperList(papers, jsonOutput)
}

func formatPaperList(papers []*types.Paper, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	if len(papers) == 0 {
		fmt.Println("No papers stored.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-24s  %-44s  %-13s  %s\n", "ID", "Title", "Status", "Tags")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for _, p := range papers {
		id := p.ID
		if len(id) > 24 {
			id = id[:21] + "..."
		}
		title := p.Title
		if len(title) > 44 {
			title = title[:41] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-24s  %-44s  %-13s  %s\n",
			id, title, p.Publication, strings.Join(p.Tags, ", "))
	}

	fmt.Fprintf(os.Stdout, "\n%d papers\n", len(papers))
	return nil
}

// --- show subcommand ---

var paperShowCmd = &cobra.Command{
	Use:   "show [paper-id]",
	Short: "Print one paper's full stored record",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperShow,
}

func runPaperShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	paper, err := st.GetPaper(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(paper)
	}

	out, err := yaml.Marshal(paper)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

// --- search subcommand ---

var paperSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over titles, abstracts, and full text",
	Long: `Search runs an FTS5 query over the paper index and prints matches in
relevance order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPaperSearch,
}

func runPaperSearch(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	results, err := st.SearchPapers(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatPaperList(results, jsonOutput)
}

func init() {
	paperAddCmd.Flags().String("full-text", "", "plain-text file to attach as the paper body")

	paperListCmd.Flags().Bool("json", false, "output papers as JSON")

	paperShowCmd.Flags().Bool("json", false, "output the paper as JSON")

	paperSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	paperSearchCmd.Flags().Bool("json", false, "output results as JSON")

	paperCmd.AddCommand(paperAddCmd)
	paperCmd.AddCommand(paperListCmd)
	paperCmd.AddCommand(paperShowCmd)
	paperCmd.AddCommand(paperSearchCmd)

	rootCmd.AddCommand(paperCmd)
}
