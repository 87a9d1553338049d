// Package session holds the selection state of one screening session: the
// current candidate, the active job description, which candidates have a
// stateful chat on the server and their transcripts.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/matchagig/internal/store"
	"github.com/spigell/matchagig/internal/utils"
)

var (
	ErrNoCandidate        = errors.New("no candidate selected")
	ErrNoJobContext       = errors.New("no job description set")
	ErrCandidateNotFound  = errors.New("candidate not found")
	ErrEmptyJobText       = errors.New("job description text is empty")
	errStoreNotConfigured = errors.New("session store is required")
)

// Store is the part of the persistent store a session needs.
type Store interface {
	store.RecordStore
	store.SettingsStore
	store.ChatStore
}

// Session is constructed once per process and passed explicitly to every
// handler that needs it.
type Session struct {
	store  Store
	logger *zap.Logger

	current        *store.ResumeRecord
	job            store.JobContext
	seeded         map[string]struct{}
	history        map[string][]store.ChatMessage
	lastResponseID map[string]string
}

// New rehydrates a session from the store: job context, seeded candidates and
// the last selected candidate. A last-selected id that no longer exists is
// dropped silently.
func New(ctx context.Context, st Store, logger *zap.Logger) (*Session, error) {
	if st == nil {
		return nil, errStoreNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		store:          st,
		logger:         logger,
		seeded:         make(map[string]struct{}),
		history:        make(map[string][]store.ChatMessage),
		lastResponseID: make(map[string]string),
	}

	job, err := st.LoadJobContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading job context: %w", err)
	}
	s.job = job

	records, err := st.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	for _, rec := range records {
		if rec.IsSeeded {
			s.seeded[rec.ResumeID] = struct{}{}
		}
	}

	last, err := st.LoadLastSelected(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading last selected candidate: %w", err)
	}
	if last != "" {
		if err := s.Select(ctx, last); err != nil {
			if !errors.Is(err, ErrCandidateNotFound) {
				return nil, err
			}
			logger.Debug("last selected candidate is gone", zap.String("candidate_id", last))
		}
	}

	return s, nil
}

// Select makes id the current candidate and loads its transcript.
func (s *Session) Select(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNoCandidate
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading candidate %q: %w", id, err)
	}
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}

	messages, err := s.store.LoadChatHistory(ctx, id)
	if err != nil {
		return fmt.Errorf("loading chat history of %q: %w", id, err)
	}

	s.current = rec
	s.history[id] = messages
	if rec.IsSeeded {
		s.seeded[id] = struct{}{}
	} else {
		delete(s.seeded, id)
	}

	if err := s.store.SaveLastSelected(ctx, id); err != nil {
		return fmt.Errorf("saving selection: %w", err)
	}

	s.logger.Debug("candidate selected",
		zap.String("candidate_id", id),
		zap.Int("history_length", len(messages)),
		zap.Bool("seeded", rec.IsSeeded),
	)
	return nil
}

// Deselect forgets the current candidate.
func (s *Session) Deselect(ctx context.Context) error {
	s.current = nil
	return s.store.DeleteLastSelected(ctx)
}

// Refresh reloads the current record from the store after it was written
// behind the session's back. The in-memory transcript is kept as is.
func (s *Session) Refresh(ctx context.Context) error {
	if s.current == nil {
		return ErrNoCandidate
	}
	id := s.current.ResumeID

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("reloading candidate %q: %w", id, err)
	}
	if rec == nil {
		s.current = nil
		return fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}

	s.current = rec
	if rec.IsSeeded {
		s.seeded[id] = struct{}{}
	} else {
		s.UnmarkSeeded(id)
	}
	return nil
}

// Current returns the selected candidate or nil.
func (s *Session) Current() *store.ResumeRecord {
	return s.current
}

func (s *Session) Job() store.JobContext {
	return s.job
}

// SetJob stores a new job description. Hash is derived from the text when empty.
// Replacing a job with a different hash unseeds every candidate.
func (s *Session) SetJob(ctx context.Context, job store.JobContext) error {
	job.Text = strings.TrimSpace(job.Text)
	job.Title = strings.TrimSpace(job.Title)
	if job.Hash == "" {
		if job.Text == "" {
			return ErrEmptyJobText
		}
		job.Hash = HashJobDescription(job.Text)
	}

	if err := s.store.SaveJobContext(ctx, job); err != nil {
		return fmt.Errorf("saving job context: %w", err)
	}
	prev := s.job.Hash
	s.job = job

	if prev != "" && prev != job.Hash {
		return s.dropSeeded(ctx, prev)
	}
	return nil
}

// ClearJob forgets the job description and the stateful chats bound to it.
func (s *Session) ClearJob(ctx context.Context) error {
	if err := s.store.DeleteJobContext(ctx); err != nil {
		return err
	}
	prev := s.job.Hash
	s.job = store.JobContext{}
	return s.dropSeeded(ctx, prev)
}

// dropSeeded unseeds every candidate. Server chats are keyed to the job they
// were seeded with and cannot answer for another one.
func (s *Session) dropSeeded(ctx context.Context, prevHash string) error {
	if err := s.store.ClearAllSeeded(ctx); err != nil {
		return fmt.Errorf("clearing seeded flags: %w", err)
	}
	if len(s.seeded) > 0 {
		s.logger.Info("job description changed, seeded chats dropped",
			zap.String("previous_jd_hash", prevHash),
			zap.String("jd_hash", s.job.Hash),
			zap.Int("seeded", len(s.seeded)),
		)
	}
	s.ResetSeeded()
	return nil
}

// RequireChatReady checks, in order, that a candidate is selected and a job
// description hash is set.
func (s *Session) RequireChatReady() error {
	if s.current == nil {
		return ErrNoCandidate
	}
	if !s.job.IsSet() {
		return ErrNoJobContext
	}
	return nil
}

func (s *Session) IsSeeded(id string) bool {
	_, ok := s.seeded[id]
	return ok
}

// SeededIDs returns the ids of seeded candidates in no particular order.
func (s *Session) SeededIDs() []string {
	ids := make([]string, 0, len(s.seeded))
	for id := range s.seeded {
		ids = append(ids, id)
	}
	return ids
}

// MarkSeeded records a successful seed. The store flag is the caller's job.
func (s *Session) MarkSeeded(id, responseID string) {
	s.seeded[id] = struct{}{}
	if responseID != "" {
		s.lastResponseID[id] = responseID
	}
	if s.current != nil && s.current.ResumeID == id {
		s.current.IsSeeded = true
	}
}

func (s *Session) UnmarkSeeded(id string) {
	delete(s.seeded, id)
	delete(s.lastResponseID, id)
	if s.current != nil && s.current.ResumeID == id {
		s.current.IsSeeded = false
	}
}

// ResetSeeded empties the seeded set, used after a bulk clear.
func (s *Session) ResetSeeded() {
	s.seeded = make(map[string]struct{})
	s.lastResponseID = make(map[string]string)
	if s.current != nil {
		s.current.IsSeeded = false
	}
}

func (s *Session) LastResponseID(id string) string {
	return s.lastResponseID[id]
}

func (s *Session) SetLastResponseID(id, responseID string) {
	if responseID != "" {
		s.lastResponseID[id] = responseID
	}
}

// History returns a copy of the in-memory transcript of id.
func (s *Session) History(id string) []store.ChatMessage {
	return append([]store.ChatMessage(nil), s.history[id]...)
}

func (s *Session) SetHistory(id string, messages []store.ChatMessage) {
	s.history[id] = append([]store.ChatMessage(nil), messages...)
}

func (s *Session) ForgetHistory() {
	s.history = make(map[string][]store.ChatMessage)
}

// HashJobDescription returns the stable identifier of a job posting text.
func HashJobDescription(text string) string {
	return utils.SHA256Hex([]byte(utils.NormalizeSpace(text)))
}
