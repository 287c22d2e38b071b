package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/spf13/cobra"

	"fspatch/internal/report"
	"fspatch/internal/search"
	"fspatch/internal/ui/colorize"
)

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List the built-in and configured variants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVariants(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(variantsCmd)
}

func runVariants(w io.Writer) error {
	variants, err := cfg.ToVariants()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(variants))
	for _, v := range variants {
		ceiling := "-"
		if v.Ceiling > 0 {
			ceiling = report.Hex(v.Ceiling)
		}
		rows = append(rows, []string{
			v.Name,
			strconv.Itoa(v.Priority),
			strconv.Itoa(search.MustParse(v.Pattern).Fixed()),
			v.Pattern,
			fmt.Sprintf("%+d", v.Adjust),
			ceiling,
			v.Description,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "PRIORITY", "TIGHTNESS", "PATTERN", "ADJUST", "CEILING", "DESCRIPTION").
		Rows(rows...)
	if colorize.Enabled() {
		t = t.BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240")))
	}

	fmt.Fprintln(w, t.Render())
	return nil
}
