package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spigell/matchagig/internal/chat"
	"github.com/spigell/matchagig/internal/matchagig"
	"github.com/spigell/matchagig/internal/session"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize the current candidate",
	Args:  cobra.NoArgs,
	RunE:  withApp(runSummary),
}

var redFlagsCmd = &cobra.Command{
	Use:   "redflags",
	Short: "List red flags of the current candidate",
	Args:  cobra.NoArgs,
	RunE:  withApp(runRedFlags),
}

var overviewCmd = &cobra.Command{
	Use:   "overview [RESUME_ID]",
	Short: "Fetch the overview of a candidate, the current one by default",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withApp(runOverview),
}

func init() {
	rootCmd.AddCommand(summaryCmd, redFlagsCmd, overviewCmd)

	for _, c := range []*cobra.Command{summaryCmd, redFlagsCmd} {
		c.Flags().Bool("inline", false, "send the cached resume text instead of the resume id")
	}
	overviewCmd.Flags().Bool("raw", false, "print the raw overview payload")
}

func runSummary(ctx context.Context, a *application, cmd *cobra.Command, _ []string) error {
	req, err := textRequest(a, cmd)
	if err != nil {
		return err
	}

	text, err := a.client.Summary(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func runRedFlags(ctx context.Context, a *application, cmd *cobra.Command, _ []string) error {
	req, err := textRequest(a, cmd)
	if err != nil {
		return err
	}

	text, err := a.client.RedFlags(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func textRequest(a *application, cmd *cobra.Command) (matchagig.TextRequest, error) {
	current := a.session.Current()
	if current == nil {
		return matchagig.TextRequest{}, &chat.PreconditionError{Err: session.ErrNoCandidate}
	}

	req := matchagig.TextRequest{FileID: current.ResumeID, JobTitle: a.session.Job().Title}
	if inline, _ := cmd.Flags().GetBool("inline"); inline {
		if current.CanonicalText == "" {
			return req, &chat.PreconditionError{Err: chat.ErrNoResumeText}
		}
		req.FileID = ""
		req.Text = current.CanonicalText
	}
	return req, nil
}

func runOverview(ctx context.Context, a *application, cmd *cobra.Command, args []string) error {
	id := ""
	if len(args) == 1 {
		id = args[0]
	} else if current := a.session.Current(); current != nil {
		id = current.ResumeID
	} else {
		return &chat.PreconditionError{Err: session.ErrNoCandidate}
	}

	overview, err := a.client.Overview(ctx, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		pretty, err := json.MarshalIndent(overview.Raw, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(pretty))
		return nil
	}

	printOverview(out, overview)
	return nil
}

func printOverview(out io.Writer, o *matchagig.Overview) {
	if o.Name != "" {
		fmt.Fprintf(out, "Name:  %s\n", o.Name)
	}
	if o.Email != "" {
		fmt.Fprintf(out, "Email: %s\n", o.Email)
	}
	if o.Score != 0 {
		fmt.Fprintf(out, "Score: %.3f\n", o.Score)
	}
	if o.Summary != "" {
		fmt.Fprintf(out, "\n%s\n", o.Summary)
	}
	printList(out, "Skills", o.Skills)
	printList(out, "Highlights", o.Highlights)
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(out, "  - %s\n", item)
	}
}
