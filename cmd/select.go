package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/spigell/matchagig/internal/store"
)

const PromptBack = "back"

var errNoCandidates = errors.New("no candidates cached yet; run upload or bulk first")

var selectCmd = &cobra.Command{
	Use:   "select [RESUME_ID]",
	Short: "Make a candidate current, interactively when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withApp(runSelect),
}

func init() {
	rootCmd.AddCommand(selectCmd)
}

func runSelect(ctx context.Context, a *application, cmd *cobra.Command, args []string) error {
	id := ""
	if len(args) == 1 {
		id = args[0]
	} else {
		records, err := a.store.GetAll(ctx)
		if err != nil {
			return err
		}
		records.SortByScore()

		id, err = promptCandidate(records)
		if err != nil {
			return err
		}
		if id == "" {
			return nil
		}
	}

	if err := a.session.Select(ctx, id); err != nil {
		return err
	}

	current := a.session.Current()
	fmt.Fprintf(cmd.OutOrStdout(), "Selected %s (%s), %d chat messages\n",
		current.DisplayName(), current.ResumeID, len(a.session.History(current.ResumeID)))
	return nil
}

// promptCandidate returns the chosen id or "" when the user went back.
func promptCandidate(records store.Records) (string, error) {
	if records.Len() == 0 {
		return "", errNoCandidates
	}

	items := make([]string, 0, records.Len()+1)
	for _, rec := range records {
		items = append(items, candidateLabel(rec))
	}

	candidatePrompt := promptui.Select{
		Label: "Choose a candidate and press ENTER",
		Items: append(items, PromptBack),
		Size:  10,
	}

	idx, _, err := candidatePrompt.Run()
	if err != nil {
		return "", err
	}
	if idx == records.Len() {
		return "", nil
	}
	return records[idx].ResumeID, nil
}

func candidateLabel(rec *store.ResumeRecord) string {
	label := fmt.Sprintf("%s / %.3f / %s", rec.DisplayName(), rec.Meta.Cosine, rec.ExtractionStatus)
	if rec.Meta.Email != "" {
		label += " / " + rec.Meta.Email
	}
	return label
}
