package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	pathpkg "path/filepath"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"fspatch/internal/config"
	"fspatch/internal/fspatch/log"
)

// cfg is loaded by the root command before any subcommand runs.
var cfg = config.Default()

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default $XDG_CONFIG_HOME/fspatch/fspatch.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Print the report without the TUI")
	rootCmd.Flags().StringSlice("variant", nil, "Only run these variants")
}

var rootCmd = &cobra.Command{
	Use:   "fspatch [file]",
	Short: "Locate patch offsets in firmware images",
	Long: `fspatch finds the code a firmware patch has to target by scanning the
image for wildcarded instruction signatures. Ambiguous signatures are narrowed
down using the offsets of the ones that matched exactly once.`,
	Example: `
# Open the interactive viewer
fspatch /path/to/main

# Print the full report
fspatch --no-tui /path/to/main

# Only print offsets, for scripts
fspatch find /path/to/main
  `,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		path, _ := cmd.Flags().GetString("config")

		c, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = c

		debug = debug || cfg.Debug
		log.Setup(debug)
		if debug && os.Getenv("FSPATCH_LOG_LEVEL") == "" {
			os.Setenv("FSPATCH_LOG_LEVEL", "debug")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}

		absPath, err := pathpkg.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		if _, err := os.Stat(absPath); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", args[0])
			}
			return fmt.Errorf("cannot access file: %w", err)
		}

		noTUI, _ := cmd.Flags().GetBool("no-tui")
		only, _ := cmd.Flags().GetStringSlice("variant")

		if !term.IsTerminal(os.Stdout.Fd()) {
			noTUI = true
			os.Setenv("FSPATCH_NO_COLOR", "1")
		}

		if noTUI {
			doc, err := analyze(cmd.Context(), absPath, only)
			if doc == nil {
				return err
			}
			writeMarkdown(cmd.OutOrStdout(), doc.Markdown(true))
			if err != nil {
				slog.Debug("analysis incomplete", "error", err)
			}
			return nil
		}

		program := tea.NewProgram(
			newModel(cmd.Context(), absPath, only),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	// fang renders help and errors as styled markdown, which only makes sense
	// on a terminal.
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
