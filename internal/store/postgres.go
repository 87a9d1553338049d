package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS matchagig_records (
	resume_id  TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	version    BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS matchagig_settings (
	key   TEXT PRIMARY KEY,
	value JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS matchagig_chats (
	resume_id TEXT PRIMARY KEY,
	messages  JSONB NOT NULL
);`

// PostgresStore shares the client state through a PostgreSQL database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

func OpenPostgres(ctx context.Context, databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("postgres url is required for the postgres store driver")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, logger: logger, now: time.Now}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Debug("opened postgres store")

	return s, nil
}

// EnsureSchema creates the tables used by the store when they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Put replaces the record. rec is normalized in place first, so it equals
// what a later Get returns.
func (s *PostgresStore) Put(ctx context.Context, rec *ResumeRecord) error {
	if rec == nil {
		return errors.New("record is required")
	}
	if err := validateID(rec.ResumeID); err != nil {
		return err
	}

	doc, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO matchagig_records (resume_id, doc, version, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (resume_id) DO UPDATE SET doc = $2, version = $3, updated_at = NOW()`,
		rec.ResumeID, doc, rec.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*ResumeRecord, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM matchagig_records WHERE resume_id = $1`, id,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	rec, err := decodeRecord(doc)
	if err != nil {
		return nil, fmt.Errorf("decoding record %q: %w", id, err)
	}
	return rec, nil
}

func (s *PostgresStore) GetAll(ctx context.Context) (Records, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM matchagig_records`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := make(Records, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := decodeRecord(doc)
		if err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) UpdateField(ctx context.Context, id string, patch Patch) error {
	if err := validateID(id); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return s.update(ctx, tx, id, patch)
	})
}

func (s *PostgresStore) update(ctx context.Context, tx pgx.Tx, id string, patch Patch) error {
	var doc []byte
	err := tx.QueryRow(ctx,
		`SELECT doc FROM matchagig_records WHERE resume_id = $1 FOR UPDATE`, id,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock record: %w", err)
	}

	rec, err := decodeRecord(doc)
	if err != nil {
		return fmt.Errorf("decoding record %q: %w", id, err)
	}

	patch.Apply(rec)
	rec.Version++
	rec.UpdatedAt = s.now().UTC()

	out, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE matchagig_records SET doc = $2, version = $3, updated_at = NOW() WHERE resume_id = $1`,
		id, out, rec.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM matchagig_records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkSeeded(ctx context.Context, id string) error {
	return s.UpdateField(ctx, id, seededPatch(s.now().UTC()))
}

func (s *PostgresStore) ClearSeeded(ctx context.Context, id string) error {
	return s.UpdateField(ctx, id, unseededPatch())
}

func (s *PostgresStore) ClearAllSeeded(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT resume_id FROM matchagig_records`)
		if err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("failed to collect record ids: %w", err)
		}

		for _, id := range ids {
			if err := s.update(ctx, tx, id, unseededPatch()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) SaveJobContext(ctx context.Context, jc JobContext) error {
	return s.putSetting(ctx, keyJobContext, jc)
}

func (s *PostgresStore) LoadJobContext(ctx context.Context) (JobContext, error) {
	var jc JobContext
	err := s.getSetting(ctx, keyJobContext, &jc)
	return jc, err
}

func (s *PostgresStore) DeleteJobContext(ctx context.Context) error {
	return s.deleteSetting(ctx, keyJobContext)
}

func (s *PostgresStore) SaveLastSelected(ctx context.Context, id string) error {
	return s.putSetting(ctx, keyLastSelected, id)
}

func (s *PostgresStore) LoadLastSelected(ctx context.Context) (string, error) {
	var id string
	err := s.getSetting(ctx, keyLastSelected, &id)
	return id, err
}

func (s *PostgresStore) DeleteLastSelected(ctx context.Context) error {
	return s.deleteSetting(ctx, keyLastSelected)
}

func (s *PostgresStore) SaveChatHistory(ctx context.Context, id string, messages []ChatMessage) error {
	if err := validateID(id); err != nil {
		return err
	}
	if messages == nil {
		messages = []ChatMessage{}
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encoding chat history: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO matchagig_chats (resume_id, messages) VALUES ($1, $2)
		 ON CONFLICT (resume_id) DO UPDATE SET messages = $2`,
		id, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save chat history: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadChatHistory(ctx context.Context, id string) ([]ChatMessage, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT messages FROM matchagig_chats WHERE resume_id = $1`, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return []ChatMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	messages := []ChatMessage{}
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("decoding chat history: %w", err)
	}
	return messages, nil
}

func (s *PostgresStore) ClearChatHistory(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM matchagig_chats WHERE resume_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearAllChatHistory(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM matchagig_chats`); err != nil {
		return fmt.Errorf("failed to clear chat histories: %w", err)
	}
	return nil
}

func (s *PostgresStore) putSetting(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO matchagig_settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = $2`,
		Prefix+key, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) getSetting(ctx context.Context, key string, target any) error {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM matchagig_settings WHERE key = $1`, Prefix+key,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	return json.Unmarshal(data, target)
}

func (s *PostgresStore) deleteSetting(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM matchagig_settings WHERE key = $1`, Prefix+key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
