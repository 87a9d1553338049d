package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	defaultDir      = ".matchagig"
	defaultFilename = "state.db"
	openTimeout     = time.Second

	keyJobContext   = "jd"
	keyLastSelected = "last-selected"
)

var (
	recordsBucket  = []byte(Prefix + "records")
	settingsBucket = []byte(Prefix + "settings")
	chatsBucket    = []byte(Prefix + "chats")
)

// BoltStore is the default single-file backend. The file lock held by bbolt
// makes it single-writer across processes.
type BoltStore struct {
	db     *bolt.DB
	logger *zap.Logger
	now    func() time.Time
}

// DefaultPath is used when no store path is configured.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, defaultDir, defaultFilename), nil
}

func OpenBolt(path string, logger *zap.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("store %s is locked by another matchagig process: %w", path, err)
		}
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{recordsBucket, settingsBucket, chatsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	logger.Debug("opened bolt store", zap.String("path", path))

	return &BoltStore{db: db, logger: logger, now: time.Now}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Put replaces the record. rec is normalized in place first, so it equals
// what a later Get returns.
func (s *BoltStore) Put(_ context.Context, rec *ResumeRecord) error {
	if rec == nil {
		return errors.New("record is required")
	}
	if err := validateID(rec.ResumeID); err != nil {
		return err
	}

	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Put([]byte(rec.ResumeID), data)
	})
}

func (s *BoltStore) Get(_ context.Context, id string) (*ResumeRecord, error) {
	var rec *ResumeRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(recordsBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		var err error
		rec, err = decodeRecord(data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading record %q: %w", id, err)
	}
	return rec, nil
}

func (s *BoltStore) GetAll(_ context.Context) (Records, error) {
	records := make(Records, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("decoding record %q: %w", k, err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *BoltStore) UpdateField(_ context.Context, id string, patch Patch) error {
	if err := validateID(id); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return s.update(tx.Bucket(recordsBucket), []byte(id), patch)
	})
}

func (s *BoltStore) update(b *bolt.Bucket, key []byte, patch Patch) error {
	data := b.Get(key)
	if data == nil {
		return notFound(string(key))
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return fmt.Errorf("decoding record %q: %w", key, err)
	}

	patch.Apply(rec)
	rec.Version++
	rec.UpdatedAt = s.now().UTC()

	out, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return b.Put(key, out)
}

func (s *BoltStore) ClearAll(_ context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(recordsBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(recordsBucket)
		return err
	})
}

func (s *BoltStore) MarkSeeded(ctx context.Context, id string) error {
	return s.UpdateField(ctx, id, seededPatch(s.now().UTC()))
}

func (s *BoltStore) ClearSeeded(ctx context.Context, id string) error {
	return s.UpdateField(ctx, id, unseededPatch())
}

func (s *BoltStore) ClearAllSeeded(_ context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)

		// Keys are collected first: bbolt forbids writes inside ForEach.
		var keys [][]byte
		err := b.ForEach(func(k, _ []byte) error {
			keys = append(keys, append([]byte(nil), k...))
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range keys {
			if err := s.update(b, k, unseededPatch()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) SaveJobContext(_ context.Context, jc JobContext) error {
	return s.putJSON(settingsBucket, keyJobContext, jc)
}

func (s *BoltStore) LoadJobContext(_ context.Context) (JobContext, error) {
	var jc JobContext
	_, err := s.getJSON(settingsBucket, keyJobContext, &jc)
	return jc, err
}

func (s *BoltStore) DeleteJobContext(_ context.Context) error {
	return s.delete(settingsBucket, keyJobContext)
}

func (s *BoltStore) SaveLastSelected(_ context.Context, id string) error {
	return s.putJSON(settingsBucket, keyLastSelected, id)
}

func (s *BoltStore) LoadLastSelected(_ context.Context) (string, error) {
	var id string
	_, err := s.getJSON(settingsBucket, keyLastSelected, &id)
	return id, err
}

func (s *BoltStore) DeleteLastSelected(_ context.Context) error {
	return s.delete(settingsBucket, keyLastSelected)
}

func (s *BoltStore) SaveChatHistory(_ context.Context, id string, messages []ChatMessage) error {
	if err := validateID(id); err != nil {
		return err
	}
	if messages == nil {
		messages = []ChatMessage{}
	}
	return s.putJSON(chatsBucket, id, messages)
}

func (s *BoltStore) LoadChatHistory(_ context.Context, id string) ([]ChatMessage, error) {
	messages := []ChatMessage{}
	if _, err := s.getJSON(chatsBucket, id, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *BoltStore) ClearChatHistory(_ context.Context, id string) error {
	return s.delete(chatsBucket, id)
}

func (s *BoltStore) ClearAllChatHistory(_ context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(chatsBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(chatsBucket)
		return err
	})
}

func (s *BoltStore) putJSON(bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *BoltStore) getJSON(bucket []byte, key string, target any) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, target)
	})
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	return found, nil
}

func (s *BoltStore) delete(bucket []byte, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}
