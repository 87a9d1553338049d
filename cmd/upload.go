package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/matchagig/internal/matchagig"
	"github.com/spigell/matchagig/internal/store"
)

var uploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Upload resumes and cache the extracted text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withApp(runUpload),
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(ctx context.Context, a *application, cmd *cobra.Command, args []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Upload.Concurrency)

	var (
		mu       sync.Mutex
		uploaded store.Records
	)

	for _, path := range args {
		g.Go(func() error {
			rec, err := uploadOne(ctx, a, path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}

			mu.Lock()
			uploaded = append(uploaded, rec)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()

	// Files stored before a failure stay stored; show them either way.
	if uploaded.Len() > 0 {
		uploaded.SortByScore()
		renderRecords(cmd.OutOrStdout(), uploaded, a.session)
	}

	return err
}

func uploadOne(ctx context.Context, a *application, path string) (*store.ResumeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(path)
	result, err := a.client.Upload(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	rec := recordFromUpload(filename, data, result)
	if err := a.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("storing record: %w", err)
	}

	a.logger.Info("resume uploaded",
		zap.String("candidate_id", rec.ResumeID),
		zap.String("filename", filename),
		zap.String("file_type", rec.FileType),
		zap.String("status", string(rec.ExtractionStatus)),
	)

	return rec, nil
}

func recordFromUpload(filename string, data []byte, result *matchagig.UploadResult) *store.ResumeRecord {
	status := store.StatusProcessing
	if result.Text != "" {
		status = store.StatusExtracted
	}

	return &store.ResumeRecord{
		ResumeID:      result.ResumeID,
		FileBytes:     data,
		FileType:      mimetype.Detect(data).String(),
		CanonicalText: result.Text,
		Meta: store.Meta{
			Filename: filename,
			Email:    result.Email,
			Bytes:    int64(len(data)),
		},
		ExtractionStatus: status,
		ExtractedData:    result.Extracted(),
	}
}
