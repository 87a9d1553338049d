package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/matchagig/internal/store"
)

type statusFilter struct {
	disabled bool
	reason   string
	statuses map[store.ExtractionStatus]struct{}
}

// NewStatus creates a filter that keeps candidates in the configured extraction statuses.
func NewStatus() Filter {
	return &statusFilter{}
}

func (f *statusFilter) Name() string { return "status" }

func (f *statusFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *statusFilter) IsEnabled() bool { return !f.disabled }

func (f *statusFilter) Validate(cfg *Config) error {
	f.statuses = nil
	if cfg == nil || len(cfg.Statuses) == 0 {
		return nil
	}

	f.statuses = make(map[store.ExtractionStatus]struct{}, len(cfg.Statuses))
	for _, s := range cfg.Statuses {
		if !s.Valid() {
			return fmt.Errorf("unknown extraction status %q", s)
		}
		f.statuses[s] = struct{}{}
	}
	return nil
}

func (f *statusFilter) Apply(_ context.Context, deps Deps, v store.Records) (store.Records, Step, error) {
	initial := v.Len()
	if len(f.statuses) == 0 {
		return v, Step{Initial: initial, Left: initial}, nil
	}

	v, excluded := exclude(v, func(rec *store.ResumeRecord) bool {
		_, ok := f.statuses[rec.ExtractionStatus]
		return !ok
	})
	if len(excluded) > 0 {
		deps.Logger.Debug("excluding candidates by extraction status",
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *statusFilter) Status() Status {
	details := map[string]string{}
	if len(f.statuses) > 0 {
		names := make([]string, 0, len(f.statuses))
		for s := range f.statuses {
			names = append(names, string(s))
		}
		details["statuses"] = strings.Join(names, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type minScoreFilter struct {
	disabled bool
	reason   string
	min      float64
}

// NewMinScore creates a filter that drops candidates scored below the configured cosine similarity.
func NewMinScore() Filter {
	return &minScoreFilter{}
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *minScoreFilter) IsEnabled() bool { return !f.disabled }

func (f *minScoreFilter) Validate(cfg *Config) error {
	f.min = 0
	if cfg == nil {
		return nil
	}
	if cfg.MinScore < 0 || cfg.MinScore > 1 {
		return fmt.Errorf("minimum score must be within [0, 1], got %v", cfg.MinScore)
	}
	f.min = cfg.MinScore
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, deps Deps, v store.Records) (store.Records, Step, error) {
	initial := v.Len()
	if f.min == 0 {
		return v, Step{Initial: initial, Left: initial}, nil
	}

	v, excluded := exclude(v, func(rec *store.ResumeRecord) bool {
		return rec.Meta.Cosine < f.min
	})
	if len(excluded) > 0 {
		deps.Logger.Debug("excluding candidates below minimum score",
			zap.Float64("min_score", f.min),
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *minScoreFilter) Status() Status {
	details := map[string]string{
		"min_score": strconv.FormatFloat(f.min, 'f', 2, 64),
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type seededOnlyFilter struct {
	disabled bool
	reason   string
	only     bool
}

// NewSeededOnly creates a filter that keeps only candidates with an open stateful conversation.
func NewSeededOnly() Filter {
	return &seededOnlyFilter{}
}

func (f *seededOnlyFilter) Name() string { return "seeded_only" }

func (f *seededOnlyFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *seededOnlyFilter) IsEnabled() bool { return !f.disabled }

func (f *seededOnlyFilter) Validate(cfg *Config) error {
	f.only = cfg != nil && cfg.SeededOnly
	return nil
}

func (f *seededOnlyFilter) Apply(_ context.Context, deps Deps, v store.Records) (store.Records, Step, error) {
	initial := v.Len()
	if !f.only {
		return v, Step{Initial: initial, Left: initial}, nil
	}

	seeded := deps.Seeded
	if seeded == nil {
		seeded = func(id string) bool {
			rec := v.FindByID(id)
			return rec != nil && rec.IsSeeded
		}
	}

	// Resolve before exclude reuses the backing array.
	keep := make(map[string]bool, initial)
	for _, rec := range v {
		keep[rec.ResumeID] = seeded(rec.ResumeID)
	}

	v, excluded := exclude(v, func(rec *store.ResumeRecord) bool {
		return !keep[rec.ResumeID]
	})
	if len(excluded) > 0 {
		deps.Logger.Debug("excluding candidates without a seeded conversation",
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *seededOnlyFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"seeded_only": strconv.FormatBool(f.only)},
	}
}
