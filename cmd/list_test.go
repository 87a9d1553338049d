package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/matchagig/internal/filtering"
	"github.com/spigell/matchagig/internal/store"
)

func TestListPipelineSwitchesOffFilters(t *testing.T) {
	steps, err := listPipeline([]string{"seeded_only"})
	require.NoError(t, err)

	records := store.Records{
		{ResumeID: "a", Meta: store.Meta{Cosine: 0.9}, ExtractionStatus: store.StatusExtracted},
		{ResumeID: "b", Meta: store.Meta{Cosine: 0.2}, ExtractionStatus: store.StatusExtracted, IsSeeded: true},
	}
	cfg := &filtering.Config{MinScore: 0.5, SeededOnly: true}

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	out, err := filtering.Run(context.Background(), cfg, filtering.Deps{Logger: logger}, steps, records)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out.IDs())

	logFilterStatuses(logger, steps)

	entries := logs.FilterMessage("filter status").All()
	require.Len(t, entries, 3)

	seeded := entries[2].ContextMap()
	assert.Equal(t, "seeded_only", seeded["name"])
	assert.Equal(t, false, seeded["enabled"])
	assert.Equal(t, "disabled by --no-filter", seeded["reason"])

	minScore := entries[1].ContextMap()
	assert.Equal(t, true, minScore["enabled"])
	assert.Equal(t, "0.50", minScore["min_score"])
}

func TestListPipelineRejectsUnknownFilter(t *testing.T) {
	_, err := listPipeline([]string{"salary"})
	require.ErrorContains(t, err, `unknown filter "salary"`)
}
