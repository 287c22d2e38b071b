package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type findOptions struct {
	json     bool
	full     bool
	variants []string
}

var findCmd = &cobra.Command{
	Use:   "find <file>",
	Short: "Print the resolved offset of every variant",
	Long: `Resolve every selected variant and print one "name offset" line each.
The exit status is non-zero when any variant stays unresolved.`,
	Example: `
# Offsets only
fspatch find main

# JSON report for regression testing
fspatch find --json main

# Single variant with decoded instructions
fspatch find --full --variant fs-nocntchk main
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts findOptions
		opts.json, _ = cmd.Flags().GetBool("json")
		opts.full, _ = cmd.Flags().GetBool("full")
		opts.variants, _ = cmd.Flags().GetStringSlice("variant")

		return runFind(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
	},
}

func init() {
	findCmd.Flags().BoolP("json", "j", false, "Output the report as JSON")
	findCmd.Flags().BoolP("full", "f", false, "Output the markdown report with decoded instructions")
	findCmd.Flags().StringSlice("variant", nil, "Only run these variants")
	rootCmd.AddCommand(findCmd)
}

func runFind(ctx context.Context, w io.Writer, path string, opts findOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	doc, err := analyze(ctx, path, opts.variants)
	if doc == nil {
		return err
	}

	switch {
	case opts.json:
		bts, jerr := doc.JSON()
		if jerr != nil {
			return jerr
		}
		fmt.Fprintln(w, string(bts))
	case opts.full:
		writeMarkdown(w, doc.Markdown(true))
	default:
		fmt.Fprint(w, doc.Lines())
	}
	return err
}
