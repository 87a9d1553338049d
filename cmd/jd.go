package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/matchagig/internal/session"
	"github.com/spigell/matchagig/internal/store"
)

var jdCmd = &cobra.Command{
	Use:   "jd",
	Short: "Manage the job description candidates are screened against",
}

var jdSetCmd = &cobra.Command{
	Use:   "set [TEXT]",
	Short: "Set the job description from text or a file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withApp(runJDSet),
}

var jdShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current job description",
	Args:  cobra.NoArgs,
	RunE:  withApp(runJDShow),
}

func init() {
	rootCmd.AddCommand(jdCmd)
	jdCmd.AddCommand(jdSetCmd, jdShowCmd)

	jdSetCmd.Flags().StringP("file", "f", "", "read the job description from a file")
	jdSetCmd.Flags().StringP("title", "t", "", "job title sent along with summaries")
}

func runJDSet(ctx context.Context, a *application, cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	title, _ := cmd.Flags().GetString("title")

	text, err := jobText(file, args)
	if err != nil {
		return err
	}

	if err := a.session.SetJob(ctx, store.JobContext{Text: text, Title: strings.TrimSpace(title)}); err != nil {
		return err
	}

	job := a.session.Job()
	a.logger.Info("job description set", zap.String("jd_hash", job.Hash), zap.String("job_title", job.Title))
	fmt.Fprintf(cmd.OutOrStdout(), "Job description set (%s)\n", job.Hash[:12])
	return nil
}

func jobText(file string, args []string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", fmt.Errorf("pass the job description either as text or with --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading job description: %w", err)
		}
		return string(data), nil
	case len(args) > 0:
		return args[0], nil
	default:
		return "", session.ErrEmptyJobText
	}
}

func runJDShow(_ context.Context, a *application, cmd *cobra.Command, _ []string) error {
	job := a.session.Job()
	if !job.IsSet() {
		return session.ErrNoJobContext
	}

	out := cmd.OutOrStdout()
	if job.Title != "" {
		fmt.Fprintf(out, "Title: %s\n", job.Title)
	}
	fmt.Fprintf(out, "Hash:  %s\n\n%s\n", job.Hash, job.Text)
	return nil
}
