package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/matchagig/internal/matchagig"
	"github.com/spigell/matchagig/internal/store"
)

func TestRecordFromUpload(t *testing.T) {
	data := []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n")

	rec := recordFromUpload("jane.pdf", data, &matchagig.UploadResult{
		ResumeID: "r-1",
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Text:     "Jane Doe, Go engineer",
	})

	assert.Equal(t, "r-1", rec.ResumeID)
	assert.Equal(t, "application/pdf", rec.FileType)
	assert.Equal(t, data, rec.FileBytes)
	assert.Equal(t, store.StatusExtracted, rec.ExtractionStatus)
	assert.Equal(t, store.Meta{Filename: "jane.pdf", Email: "jane@example.com", Bytes: int64(len(data))}, rec.Meta)
	assert.JSONEq(t, `{"name":"Jane Doe","email":"jane@example.com"}`, string(rec.ExtractedData))

	rec = recordFromUpload("empty.txt", []byte("plain"), &matchagig.UploadResult{ResumeID: "r-2"})
	assert.Equal(t, store.StatusProcessing, rec.ExtractionStatus)
	assert.Contains(t, rec.FileType, "text/plain")
}

func TestRecordFromBulk(t *testing.T) {
	rec := recordFromBulk(&matchagig.BulkCandidate{ResumeID: "b-1", Filename: "b.pdf", Cosine: 0.8, CanonicalText: "text"})
	assert.Equal(t, store.StatusExtracted, rec.ExtractionStatus)
	assert.InDelta(t, 0.8, rec.Meta.Cosine, 1e-9)

	rec = recordFromBulk(&matchagig.BulkCandidate{ResumeID: "b-2", Filename: "broken.pdf"})
	assert.Equal(t, store.StatusFailed, rec.ExtractionStatus)
}

func TestStoreBulkCandidateKeepsChatState(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenBolt(filepath.Join(t.TempDir(), "state.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	created, err := storeBulkCandidate(ctx, st, &matchagig.BulkCandidate{
		ResumeID:      "b-1",
		Filename:      "b.pdf",
		Email:         "b@example.com",
		Cosine:        0.5,
		CanonicalText: "resume text",
	})
	require.NoError(t, err)
	assert.Equal(t, store.StatusExtracted, created.ExtractionStatus)

	require.NoError(t, st.MarkSeeded(ctx, "b-1"))

	updated, err := storeBulkCandidate(ctx, st, &matchagig.BulkCandidate{
		ResumeID: "b-1",
		Cosine:   0.9,
	})
	require.NoError(t, err)

	assert.True(t, updated.IsSeeded)
	assert.InDelta(t, 0.9, updated.Meta.Cosine, 1e-9)
	assert.Equal(t, "b.pdf", updated.Meta.Filename)
	assert.Equal(t, "b@example.com", updated.Meta.Email)
	assert.Equal(t, "resume text", updated.CanonicalText)
	assert.Equal(t, store.StatusExtracted, updated.ExtractionStatus)
}
