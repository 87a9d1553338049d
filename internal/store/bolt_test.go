package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestBolt(t *testing.T) *BoltStore {
	t.Helper()

	s, err := OpenBolt(filepath.Join(t.TempDir(), "state.db"), zap.NewNop())
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func sampleRecord(id string) *ResumeRecord {
	return &ResumeRecord{
		ResumeID:      id,
		FileBytes:     []byte("%PDF-1.4 fake"),
		FileType:      "application/pdf",
		CanonicalText: "Go developer with eight years of experience",
		Meta: Meta{
			Filename: id + ".pdf",
			Email:    id + "@example.com",
			Cosine:   0.42,
			Bytes:    13,
		},
		ExtractionStatus: StatusExtracted,
		ExtractedData:    json.RawMessage(`{"name":"Ada"}`),
		UpdatedAt:        fixedNow,
	}
}

func TestBoltPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	for _, id := range []string{"r-1", "r-2", "with spaces", "юникод"} {
		rec := sampleRecord(id)
		require.NoError(t, s.Put(ctx, rec))

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	}
}

func TestBoltPutNormalizesRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	seededAt := time.Now().In(time.FixedZone("CET", 3600))
	rec := &ResumeRecord{
		ResumeID:         "loose",
		FileBytes:        []byte{},
		ExtractionStatus: StatusExtracted,
		ExtractedData:    json.RawMessage("{\"skills\": [\"go\", \"sql\"],\n \"a\": 1}"),
		IsSeeded:         true,
		SeededAt:         seededAt,
		UpdatedAt:        time.Now(),
	}
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "loose")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	assert.Equal(t, `{"a":1,"skills":["go","sql"]}`, string(got.ExtractedData))
	assert.Nil(t, got.FileBytes)
	assert.Equal(t, time.UTC, got.SeededAt.Location())
	assert.True(t, seededAt.Equal(got.SeededAt))

	rec.ExtractedData = json.RawMessage(`{"a":`)
	require.Error(t, s.Put(ctx, rec))
}

func TestBoltPutIsIdempotentOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	rec := sampleRecord("r-1")
	require.NoError(t, s.Put(ctx, rec))
	require.NoError(t, s.Put(ctx, rec))

	replacement := sampleRecord("r-1")
	replacement.CanonicalText = ""
	replacement.ExtractionStatus = StatusPending
	require.NoError(t, s.Put(ctx, replacement))

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, all.Len())
	assert.Equal(t, replacement, all[0])
}

func TestBoltGetMissingReturnsNil(t *testing.T) {
	s := newTestBolt(t)

	got, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBoltUpdateFieldMissingFailsWithNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	text := "anything"
	err := s.UpdateField(ctx, "ghost", Patch{CanonicalText: &text})
	require.ErrorIs(t, err, ErrNotFound)

	got, err := s.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got, "update must not create a record")

	require.ErrorIs(t, s.MarkSeeded(ctx, "ghost"), ErrNotFound)
	require.ErrorIs(t, s.ClearSeeded(ctx, "ghost"), ErrNotFound)
}

func TestBoltUpdateFieldKeepsUnrelatedFields(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	rec := sampleRecord("r-1")
	require.NoError(t, s.Put(ctx, rec))

	status := StatusFailed
	score := 0.87
	require.NoError(t, s.UpdateField(ctx, "r-1", Patch{ExtractionStatus: &status, Cosine: &score}))

	got, err := s.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.ExtractionStatus)
	assert.Equal(t, 0.87, got.Meta.Cosine)
	assert.Equal(t, rec.Meta.Filename, got.Meta.Filename)
	assert.Equal(t, rec.FileBytes, got.FileBytes)
	assert.Equal(t, rec.CanonicalText, got.CanonicalText)
	assert.Equal(t, int64(1), got.Version)
}

func TestBoltSeededFlags(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	require.NoError(t, s.Put(ctx, sampleRecord("a")))
	require.NoError(t, s.Put(ctx, sampleRecord("b")))

	require.NoError(t, s.MarkSeeded(ctx, "a"))
	require.NoError(t, s.MarkSeeded(ctx, "b"))

	a, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, a.IsSeeded)
	assert.Equal(t, fixedNow, a.SeededAt)

	require.NoError(t, s.ClearSeeded(ctx, "a"))
	a, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, a.IsSeeded)
	assert.True(t, a.SeededAt.IsZero())

	require.NoError(t, s.ClearAllSeeded(ctx))
	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	for _, rec := range all {
		assert.False(t, rec.IsSeeded, rec.ResumeID)
	}
}

func TestBoltClearAll(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	require.NoError(t, s.Put(ctx, sampleRecord("a")))
	require.NoError(t, s.Put(ctx, sampleRecord("b")))
	require.NoError(t, s.ClearAll(ctx))

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, all.Len())

	require.NoError(t, s.Put(ctx, sampleRecord("c")), "store stays usable after clear")
}

func TestBoltChatHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	empty, err := s.LoadChatHistory(ctx, "r-1")
	require.NoError(t, err)
	assert.Empty(t, empty)

	messages := []ChatMessage{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi, ask me about the candidate"},
		{Role: RoleUser, Content: "strengths?"},
	}
	require.NoError(t, s.SaveChatHistory(ctx, "r-1", messages))

	got, err := s.LoadChatHistory(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, messages, got)

	require.NoError(t, s.SaveChatHistory(ctx, "r-2", messages[:1]))
	require.NoError(t, s.ClearChatHistory(ctx, "r-1"))

	got, err = s.LoadChatHistory(ctx, "r-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.ClearAllChatHistory(ctx))
	got, err = s.LoadChatHistory(ctx, "r-2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBoltSettings(t *testing.T) {
	ctx := context.Background()
	s := newTestBolt(t)

	jc, err := s.LoadJobContext(ctx)
	require.NoError(t, err)
	assert.False(t, jc.IsSet())

	want := JobContext{Hash: "abc123", Text: "Senior Go engineer", Title: "Backend"}
	require.NoError(t, s.SaveJobContext(ctx, want))

	jc, err = s.LoadJobContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, jc)

	require.NoError(t, s.SaveLastSelected(ctx, "r-9"))
	id, err := s.LoadLastSelected(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r-9", id)

	require.NoError(t, s.DeleteLastSelected(ctx))
	id, err = s.LoadLastSelected(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.DeleteJobContext(ctx))
	jc, err = s.LoadJobContext(ctx)
	require.NoError(t, err)
	assert.False(t, jc.IsSet())
}

func TestBoltSecondOpenIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	first, err := OpenBolt(path, nil)
	require.NoError(t, err)
	defer first.Close()

	_, err = OpenBolt(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked by another matchagig process")
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "redis"}, nil)
	require.Error(t, err)
}
