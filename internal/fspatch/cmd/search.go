package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fspatch/internal/converter"
	"fspatch/internal/disasm"
	"fspatch/internal/heuristic"
	"fspatch/internal/image"
	"fspatch/internal/search"
	"fspatch/internal/ui/colorize"
)

type searchOptions struct {
	words   int
	ceiling int
}

var searchCmd = &cobra.Command{
	Use:   "search <pattern> <file>",
	Short: "List every match of a raw pattern",
	Long: `Scan the file for a pattern and decode the words at every match.
'.' matches any byte and '?' any nibble; whitespace is ignored.`,
	Example: `
# Where does CMP w8, #1 followed by a B.cond appear?
fspatch search "1f050071 ..0054" main

# Decode four words per match, below 0x80000 only
fspatch search --words 4 --ceiling 0x80000 "...94081c00121f050071..0054" main
  `,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts searchOptions
		opts.words, _ = cmd.Flags().GetInt("words")
		opts.ceiling, _ = cmd.Flags().GetInt("ceiling")
		return runSearch(cmd.OutOrStdout(), args[0], args[1], opts)
	},
}

func init() {
	searchCmd.Flags().IntP("words", "w", 1, "Words to decode at every match")
	searchCmd.Flags().Int("ceiling", 0, "Ignore matches above this offset (0 = no limit)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(w io.Writer, pattern, path string, opts searchOptions) error {
	p, err := search.Parse(pattern)
	if err != nil {
		return err
	}
	if opts.words < 0 {
		return fmt.Errorf("--words must not be negative")
	}

	img, err := image.Open(path)
	if err != nil {
		return err
	}
	defer img.Close()
	data := img.Data()

	count := 0
	for _, off := range p.FindAll(data) {
		if opts.ceiling > 0 && off > opts.ceiling {
			continue
		}
		count++

		// Matches near the end of the image decode what is there.
		n := min(opts.words, (len(data)-off)/converter.WordSize)
		words, err := converter.LEWords(data, off, n)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintf(w, "%08x\n", off)
			continue
		}
		fmt.Fprintln(w, colorize.Listing(disasm.DecodeWords(words, off).String()))
		if opts.words > 1 {
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintf(w, "%d matches for %s\n", count, p)
	if count == 0 {
		return fmt.Errorf("%s: %w", p, heuristic.ErrNoMatch)
	}
	return nil
}
