// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docconv/internal/preview"
)

var previewCmd = &cobra.Command{
	Use:   "preview <file.pdf>",
	Short: "Render page previews of a PDF locally",
	Long: `Preview renders each page of a PDF to a JPEG file (page-1.jpg,
page-2.jpg, ...) so pages can be inspected before choosing rotations.
Nothing is sent to the conversion service.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		v, err := preview.Load(renderer, data)
		if err != nil {
			return err
		}
		paths, err := v.ExportPages(dir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range paths {
			fmt.Fprintf(out, "wrote   %s\n", p)
		}
		fmt.Fprintf(out, "%d pages\n", v.Len())
		return nil
	},
}

func init() {
	previewCmd.Flags().String("dir", "preview", "directory for page images")
	rootCmd.AddCommand(previewCmd)
}
