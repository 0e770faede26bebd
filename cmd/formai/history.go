package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/formai/pkg/history"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent submissions",
		Long: `History lists the most recent recorded submissions from the history
database in HISTORY_DIR. Submissions are only recorded while the server or
the submit command runs with HISTORY_ENABLED=true.

Examples:
  formai history
  formai history --limit 50 --markdown > report.md`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", history.DefaultLimit, "Number of submissions to show")
	cmd.Flags().Bool("markdown", false, "Render a Markdown report")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	store, err := history.Open(settings.HistoryDir, history.Options{})
	if err != nil {
		return fmt.Errorf("failed to open history (is HISTORY_ENABLED set?): %w", err)
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if asMarkdown {
		return history.WriteMarkdown(cmd.OutOrStdout(), entries)
	}
	return history.WriteText(cmd.OutOrStdout(), entries)
}
