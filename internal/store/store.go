// Package store keeps the client-side state of a screening session: cached
// resume records, scalar settings and per-candidate chat transcripts.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	// Prefix namespaces every bucket, table and key owned by this client.
	Prefix = "matchagig:"

	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned by partial updates addressed to a missing record.
var ErrNotFound = errors.New("record not found")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// JobContext ties chat and scoring calls to one job posting.
type JobContext struct {
	Hash  string `json:"jdHash"`
	Text  string `json:"jdText"`
	Title string `json:"jobTitle,omitempty"`
}

func (j JobContext) IsSet() bool {
	return strings.TrimSpace(j.Hash) != ""
}

// RecordStore is the durable per-resume document store.
type RecordStore interface {
	Put(ctx context.Context, rec *ResumeRecord) error
	Get(ctx context.Context, id string) (*ResumeRecord, error)
	GetAll(ctx context.Context) (Records, error)
	UpdateField(ctx context.Context, id string, patch Patch) error
	ClearAll(ctx context.Context) error

	MarkSeeded(ctx context.Context, id string) error
	ClearSeeded(ctx context.Context, id string) error
	ClearAllSeeded(ctx context.Context) error
}

// SettingsStore keeps the scalar session settings.
type SettingsStore interface {
	SaveJobContext(ctx context.Context, jc JobContext) error
	LoadJobContext(ctx context.Context) (JobContext, error)
	DeleteJobContext(ctx context.Context) error
	SaveLastSelected(ctx context.Context, id string) error
	LoadLastSelected(ctx context.Context) (string, error)
	DeleteLastSelected(ctx context.Context) error
}

// ChatStore keeps one ordered transcript per candidate.
type ChatStore interface {
	SaveChatHistory(ctx context.Context, id string, messages []ChatMessage) error
	LoadChatHistory(ctx context.Context, id string) ([]ChatMessage, error)
	ClearChatHistory(ctx context.Context, id string) error
	ClearAllChatHistory(ctx context.Context) error
}

type Store interface {
	RecordStore
	SettingsStore
	ChatStore
	Close() error
}

var (
	_ Store = (*BoltStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

type Config struct {
	Driver      string `mapstructure:"driver" validate:"omitempty,oneof=bolt postgres"`
	Path        string `mapstructure:"path"`
	PostgresURL string `mapstructure:"postgres-url"`
}

// Open returns the backend selected by cfg.Driver. Bolt is the default.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", DriverBolt:
		s, err := OpenBolt(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := OpenPostgres(ctx, cfg.PostgresURL, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func notFound(id string) error {
	return fmt.Errorf("resume %q: %w", id, ErrNotFound)
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("resume id is required")
	}
	return nil
}
