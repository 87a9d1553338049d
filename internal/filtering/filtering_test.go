package filtering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/matchagig/internal/store"
)

func sampleRecords() store.Records {
	return store.Records{
		{ResumeID: "a", ExtractionStatus: store.StatusExtracted, Meta: store.Meta{Cosine: 0.91}, IsSeeded: true},
		{ResumeID: "b", ExtractionStatus: store.StatusExtracted, Meta: store.Meta{Cosine: 0.42}},
		{ResumeID: "c", ExtractionStatus: store.StatusFailed, Meta: store.Meta{Cosine: 0.77}},
		{ResumeID: "d", ExtractionStatus: store.StatusProcessing},
	}
}

func TestRunWithoutConfigKeepsEverything(t *testing.T) {
	in := sampleRecords()

	out, err := Run(context.Background(), &Config{}, Deps{}, Default(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, out.IDs())
}

func TestRunChainsSteps(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	in := sampleRecords()

	cfg := &Config{
		Statuses: []store.ExtractionStatus{store.StatusExtracted, store.StatusFailed},
		MinScore: 0.5,
	}
	out, err := Run(context.Background(), cfg, Deps{Logger: zap.New(core)}, Default(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, out.IDs())
	assert.Equal(t, []string{"a", "b", "c", "d"}, in.IDs(), "input must not be modified")

	steps := logs.FilterMessage("filter step").All()
	require.Len(t, steps, 3)

	fields := steps[0].ContextMap()
	assert.Equal(t, "status", fields["name"])
	assert.EqualValues(t, 4, fields["initial"])
	assert.EqualValues(t, 1, fields["dropped"])
	assert.EqualValues(t, 3, fields["left"])

	fields = steps[1].ContextMap()
	assert.Equal(t, "min_score", fields["name"])
	assert.EqualValues(t, 1, fields["dropped"])
}

func TestSeededOnlyUsesSessionView(t *testing.T) {
	in := sampleRecords()
	cfg := &Config{SeededOnly: true}

	out, err := Run(context.Background(), cfg, Deps{}, Default(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out.IDs())

	deps := Deps{Seeded: func(id string) bool { return id == "d" }}
	out, err = Run(context.Background(), cfg, deps, Default(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, out.IDs())
}

func TestValidationErrors(t *testing.T) {
	_, err := Run(context.Background(), &Config{MinScore: 1.5}, Deps{}, Default(), sampleRecords())
	require.ErrorContains(t, err, "min_score")

	_, err = Run(context.Background(), &Config{Statuses: []store.ExtractionStatus{"done"}}, Deps{}, Default(), sampleRecords())
	require.ErrorContains(t, err, "unknown extraction status")
}

func TestDisabledStepIsSkipped(t *testing.T) {
	steps := Default()
	DisableByName(steps, "min_score", "requested")

	out, err := Run(context.Background(), &Config{MinScore: 2}, Deps{}, steps, sampleRecords())
	require.NoError(t, err, "disabled steps are not validated")
	assert.Equal(t, 4, out.Len())

	statuses := Describe(steps)
	require.Len(t, statuses, 3)
	assert.Equal(t, "min_score", statuses[1].Name)
	assert.False(t, statuses[1].Enabled)
	assert.Equal(t, "requested", statuses[1].Reason)
	assert.True(t, statuses[0].Enabled)
}
