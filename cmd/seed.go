package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Open a stateful chat with the current candidate",
	Args:  cobra.NoArgs,
	RunE:  withApp(runSeed),
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(ctx context.Context, a *application, cmd *cobra.Command, _ []string) error {
	if err := a.chat.Seed(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Chat with %s is ready\n", a.session.Current().DisplayName())
	return nil
}
