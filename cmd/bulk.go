package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/matchagig/internal/matchagig"
	"github.com/spigell/matchagig/internal/session"
	"github.com/spigell/matchagig/internal/store"
)

var bulkCmd = &cobra.Command{
	Use:   "bulk ZIP",
	Short: "Upload a zip of resumes and rank them against the job description",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runBulk),
}

func init() {
	rootCmd.AddCommand(bulkCmd)

	bulkCmd.Flags().StringSlice("flag", nil, "backend processing flag to enable, may be repeated")
}

func runBulk(ctx context.Context, a *application, cmd *cobra.Command, args []string) error {
	job := a.session.Job()
	if !job.IsSet() {
		return session.ErrNoJobContext
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	names, err := cmd.Flags().GetStringSlice("flag")
	if err != nil {
		return err
	}
	flags := make(map[string]bool, len(names))
	for _, name := range names {
		flags[name] = true
	}

	result, err := a.client.BulkZip(ctx, matchagig.BulkRequest{
		Filename: filepath.Base(args[0]),
		Data:     data,
		JDText:   job.Text,
		JDHash:   job.Hash,
		Flags:    flags,
	})
	if err != nil {
		return err
	}

	if result.JDHash != "" && result.JDHash != job.Hash {
		a.logger.Warn("backend hashed the job description differently",
			zap.String("local", job.Hash),
			zap.String("backend", result.JDHash),
		)
	}

	ranked := make(store.Records, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		rec, err := storeBulkCandidate(ctx, a.store, c)
		if err != nil {
			return err
		}
		ranked = append(ranked, rec)
	}

	if cur := a.session.Current(); cur != nil && ranked.FindByID(cur.ResumeID) != nil {
		if err := a.session.Refresh(ctx); err != nil {
			return err
		}
	}

	a.logger.Info("bulk upload ranked", zap.Int("candidates", ranked.Len()))

	ranked.SortByScore()
	renderRecords(cmd.OutOrStdout(), ranked, a.session)
	return nil
}

// storeBulkCandidate creates the record or, when it already exists, refreshes
// the ranking fields without touching its conversation state.
func storeBulkCandidate(ctx context.Context, st store.RecordStore, c *matchagig.BulkCandidate) (*store.ResumeRecord, error) {
	fresh := recordFromBulk(c)

	existing, err := st.Get(ctx, c.ResumeID)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", c.ResumeID, err)
	}

	if existing == nil {
		if err := st.Put(ctx, fresh); err != nil {
			return nil, fmt.Errorf("storing %q: %w", c.ResumeID, err)
		}
		return fresh, nil
	}

	meta := existing.Meta
	meta.Cosine = fresh.Meta.Cosine
	if fresh.Meta.Filename != "" {
		meta.Filename = fresh.Meta.Filename
	}
	if fresh.Meta.Email != "" {
		meta.Email = fresh.Meta.Email
	}
	if fresh.Meta.Bytes != 0 {
		meta.Bytes = fresh.Meta.Bytes
	}

	patch := store.Patch{Meta: &meta}
	if fresh.CanonicalText != "" || existing.CanonicalText == "" {
		patch.CanonicalText = &fresh.CanonicalText
		patch.ExtractionStatus = &fresh.ExtractionStatus
	}
	if err := st.UpdateField(ctx, c.ResumeID, patch); err != nil {
		return nil, fmt.Errorf("updating %q: %w", c.ResumeID, err)
	}

	return st.Get(ctx, c.ResumeID)
}

func recordFromBulk(c *matchagig.BulkCandidate) *store.ResumeRecord {
	status := store.StatusFailed
	if c.CanonicalText != "" {
		status = store.StatusExtracted
	}

	return &store.ResumeRecord{
		ResumeID:      c.ResumeID,
		CanonicalText: c.CanonicalText,
		Meta: store.Meta{
			Filename: c.Filename,
			Email:    c.Email,
			Cosine:   c.Cosine,
			Bytes:    c.Bytes,
		},
		ExtractionStatus: status,
	}
}
