package store

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordsSortByScore(t *testing.T) {
	records := Records{
		{ResumeID: "low", Meta: Meta{Filename: "low.pdf", Cosine: 0.1}},
		{ResumeID: "tie-b", Meta: Meta{Filename: "b.pdf", Cosine: 0.5}},
		{ResumeID: "top", Meta: Meta{Filename: "top.pdf", Cosine: 0.9}},
		{ResumeID: "tie-a", Meta: Meta{Filename: "a.pdf", Cosine: 0.5}},
	}

	records.SortByScore()

	assert.Equal(t, []string{"top", "tie-a", "tie-b", "low"}, records.IDs())
	assert.Equal(t, "tie-a", records.FindByID("tie-a").ResumeID)
	assert.Nil(t, records.FindByID("nope"))
}

func TestPatchApplyLeavesNilFieldsAlone(t *testing.T) {
	rec := sampleRecord("r-1")
	before := rec.Clone()

	Patch{}.Apply(rec)
	assert.Equal(t, before, rec)

	text := "new text"
	Patch{CanonicalText: &text, ExtractedData: json.RawMessage(`{"phone":"1"}`)}.Apply(rec)
	assert.Equal(t, "new text", rec.CanonicalText)
	assert.JSONEq(t, `{"phone":"1"}`, string(rec.ExtractedData))
	assert.Equal(t, before.Meta, rec.Meta)
}

func TestCloneDoesNotShareBytes(t *testing.T) {
	rec := sampleRecord("r-1")
	c := rec.Clone()
	c.FileBytes[0] = 'X'

	assert.NotEqual(t, rec.FileBytes[0], c.FileBytes[0])
}

func TestDumpToTmpFileOmitsFileBytes(t *testing.T) {
	records := Records{sampleRecord("r-1")}

	name, err := records.DumpToTmpFile()
	require.NoError(t, err)
	defer os.Remove(name)

	data, err := os.ReadFile(name)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.NotContains(t, decoded[0], "fileBytes")
	assert.Equal(t, "r-1", decoded[0]["resumeId"])
	assert.NotNil(t, records[0].FileBytes, "dump must not strip the caller's bytes")
}

func TestSeededAtOmittedUntilSeeded(t *testing.T) {
	rec := sampleRecord("r-1")

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "seededAt")

	seededPatch(fixedNow).Apply(rec)
	data, err = json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"seededAt":"2026-03-14T09:30:00Z"`)

	unseededPatch().Apply(rec)
	data, err = json.Marshal(rec)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "seededAt")
}
