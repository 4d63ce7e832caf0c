package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// docFormats maps a --format value to the cobra/doc tree generator for it.
var docFormats = map[string]func(root *cobra.Command, dir string) error{
	"man": func(root *cobra.Command, dir string) error {
		return doc.GenManTree(root, &doc.GenManHeader{
			Title:   "CHECKSUM",
			Section: "1",
			Manual:  "Verified copy manual",
			Source:  "checksum " + version,
		}, dir)
	},
	"markdown": doc.GenMarkdownTree,
	"yaml":     doc.GenYamlTree,
}

// newDocsCmd builds the hidden gen-docs command. Pages cover the clone
// root command and every subcommand, history included.
func newDocsCmd() *cobra.Command {
	var dir, format string

	cmd := &cobra.Command{
		Use:    "gen-docs",
		Short:  "Generate man pages or reference docs for checksum",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gen, ok := docFormats[format]
			if !ok {
				return fmt.Errorf("unknown format %q (use man, markdown or yaml)", format)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			root := cmd.Root()
			root.DisableAutoGenTag = true
			if err := gen(root, dir); err != nil {
				return fmt.Errorf("generate %s docs: %w", format, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "docs", "output directory")
	cmd.Flags().StringVar(&format, "format", "man", "output format (man, markdown or yaml)")
	return cmd
}
