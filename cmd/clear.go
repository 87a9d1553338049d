package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached candidates and their chats",
	Args:  cobra.NoArgs,
	RunE:  withApp(runClear),
}

func init() {
	rootCmd.AddCommand(clearCmd)

	clearCmd.Flags().Bool("all", false, "also remove the job description")
	clearCmd.Flags().Bool("chats", false, "only remove chat transcripts and stateful chats, keep candidates")
	clearCmd.MarkFlagsMutuallyExclusive("all", "chats")
}

func runClear(ctx context.Context, a *application, cmd *cobra.Command, _ []string) error {
	all, _ := cmd.Flags().GetBool("all")
	chatsOnly, _ := cmd.Flags().GetBool("chats")

	if err := a.store.ClearAllChatHistory(ctx); err != nil {
		return fmt.Errorf("clearing chat history: %w", err)
	}
	a.session.ForgetHistory()

	if chatsOnly {
		if err := a.store.ClearAllSeeded(ctx); err != nil {
			return fmt.Errorf("clearing seeded flags: %w", err)
		}
		a.session.ResetSeeded()

		a.logger.Info("chats cleared")
		fmt.Fprintln(cmd.OutOrStdout(), "Chats cleared")
		return nil
	}

	if err := a.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clearing candidates: %w", err)
	}
	a.session.ResetSeeded()

	if err := a.session.Deselect(ctx); err != nil {
		return fmt.Errorf("clearing selection: %w", err)
	}

	if all {
		if err := a.session.ClearJob(ctx); err != nil {
			return fmt.Errorf("clearing job description: %w", err)
		}
	}

	a.logger.Info("store cleared", zap.Bool("job_description_removed", all))
	fmt.Fprintln(cmd.OutOrStdout(), "Cleared")
	return nil
}
