// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List the available conversion workflows",
	Long: `Workflows prints every workflow with its gateway route and the service
endpoint it posts to, after applying any catalog overrides.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := clientConfig()
		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(cat.All())
		}

		fmt.Fprintf(out, "%-13s  %-19s  %-16s  %-6s  %s\n", "Name", "Route", "Endpoint", "Files", "Output")
		fmt.Fprintln(out, strings.Repeat("-", 80))
		for _, wf := range cat.All() {
			files := "one"
			if wf.Multi {
				files = "many"
			}
			fmt.Fprintf(out, "%-13s  %-19s  %-16s  %-6s  %s\n", wf.Name, wf.Route, wf.Endpoint, files, wf.Output)
		}
		fmt.Fprintf(out, "\nserver: %s\n", cfg.HTTP.Server)
		return nil
	},
}

func init() {
	workflowsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(workflowsCmd)
}
