package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/matchagig/internal/filtering"
	"github.com/spigell/matchagig/internal/session"
	"github.com/spigell/matchagig/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached candidates ranked by score",
	Args:  cobra.NoArgs,
	RunE:  withApp(runList),
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringSlice("status", nil, "keep only candidates in these extraction statuses (pending, processing, extracted, failed)")
	listCmd.Flags().Float64("min-score", 0, "keep only candidates with at least this cosine score")
	listCmd.Flags().Bool("seeded", false, "keep only candidates with an open stateful chat")
	listCmd.Flags().StringSlice("no-filter", nil, "switch off a filter by name (status, min_score, seeded_only)")
	listCmd.Flags().Bool("dump", false, "dump the listed candidates to a temporary json file")
}

func runList(ctx context.Context, a *application, cmd *cobra.Command, _ []string) error {
	cfg, err := listFilterConfig(cmd)
	if err != nil {
		return err
	}

	disabled, err := cmd.Flags().GetStringSlice("no-filter")
	if err != nil {
		return err
	}
	steps, err := listPipeline(disabled)
	if err != nil {
		return err
	}

	records, err := a.store.GetAll(ctx)
	if err != nil {
		return err
	}

	deps := filtering.Deps{Logger: a.logger, Seeded: a.session.IsSeeded}
	records, err = filtering.Run(ctx, cfg, deps, steps, records)
	if err != nil {
		return err
	}
	logFilterStatuses(a.logger, steps)
	records.SortByScore()

	renderRecords(cmd.OutOrStdout(), records, a.session)

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		filename, err := records.DumpToTmpFile()
		if err != nil {
			return err
		}
		a.logger.Info("dumping candidates to file", zap.String("filename", filename), zap.Int("count", records.Len()))
	}

	return nil
}

func listFilterConfig(cmd *cobra.Command) (*filtering.Config, error) {
	statuses, err := cmd.Flags().GetStringSlice("status")
	if err != nil {
		return nil, err
	}
	minScore, err := cmd.Flags().GetFloat64("min-score")
	if err != nil {
		return nil, err
	}
	seeded, err := cmd.Flags().GetBool("seeded")
	if err != nil {
		return nil, err
	}

	cfg := &filtering.Config{MinScore: minScore, SeededOnly: seeded}
	for _, s := range statuses {
		cfg.Statuses = append(cfg.Statuses, store.ExtractionStatus(s))
	}
	return cfg, nil
}

// listPipeline returns the list filters with the named ones switched off.
func listPipeline(disabled []string) ([]filtering.Filter, error) {
	steps := filtering.Default()
	known := make(map[string]bool, len(steps))
	for _, step := range steps {
		known[step.Name()] = true
	}

	for _, name := range disabled {
		if !known[name] {
			return nil, fmt.Errorf("unknown filter %q", name)
		}
		filtering.DisableByName(steps, name, "disabled by --no-filter")
	}
	return steps, nil
}

func logFilterStatuses(logger *zap.Logger, steps []filtering.Filter) {
	for _, status := range filtering.Describe(steps) {
		fields := []zap.Field{
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
		}
		if status.Reason != "" {
			fields = append(fields, zap.String("reason", status.Reason))
		}
		for key, value := range status.Details {
			fields = append(fields, zap.String(key, value))
		}
		logger.Debug("filter status", fields...)
	}
}

func renderRecords(w io.Writer, records store.Records, sess *session.Session) {
	currentID := ""
	if current := sess.Current(); current != nil {
		currentID = current.ResumeID
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "ID", "File", "Email", "Score", "Status", "Chat"})
	table.SetAutoWrapText(false)

	for _, rec := range records {
		marker := ""
		if rec.ResumeID == currentID {
			marker = "*"
		}
		chat := ""
		if sess.IsSeeded(rec.ResumeID) {
			chat = "seeded"
		}

		table.Append([]string{
			marker,
			rec.ResumeID,
			rec.DisplayName(),
			rec.Meta.Email,
			strconv.FormatFloat(rec.Meta.Cosine, 'f', 3, 64),
			string(rec.ExtractionStatus),
			chat,
		})
	}

	table.Render()
}
