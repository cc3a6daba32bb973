// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docconv/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past submissions",
	Long: `History lists submissions recorded in the local history database,
newest first. Only names, sizes, outcomes, and output locations are kept.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := clientConfig()
	if cfg.History.Path == "" {
		return fmt.Errorf("history is disabled: set --history or history.path")
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	wf, _ := cmd.Flags().GetString("workflow")
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	if format != "" && format != "table" {
		return store.Export(context.Background(), out, format, wf)
	}

	entries, err := store.List(context.Background(), wf, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No submissions recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-19s  %-13s  %-6s  %8s  %-30s  %s\n", "Started", "Workflow", "Status", "Took", "Files", "Output")
	fmt.Fprintln(out, strings.Repeat("-", 110))
	for _, e := range entries {
		files := strings.Join(e.Files, ", ")
		if len(files) > 30 {
			files = files[:27] + "..."
		}
		result := e.Output
		if e.Status == history.StatusFailed {
			result = e.Error
		}
		fmt.Fprintf(out, "%-19s  %-13s  %-6s  %8s  %-30s  %s\n",
			e.StartedAt.Local().Format("2006-01-02 15:04:05"), e.Workflow, e.Status,
			e.Duration().Round(time.Millisecond), files, result)
	}
	fmt.Fprintf(out, "\n%d submissions\n", len(entries))
	return nil
}

func init() {
	historyCmd.Flags().String("workflow", "", "only show this workflow")
	historyCmd.Flags().Int("limit", 20, "maximum entries to show")
	historyCmd.Flags().String("format", "table", "output format: table, yaml, or json")
	rootCmd.AddCommand(historyCmd)
}
