// Package chat keeps per-candidate transcripts and decides, for every
// outgoing turn, whether the stateful or the legacy conversation protocol
// serves it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/matchagig/internal/logger"
	"github.com/spigell/matchagig/internal/matchagig"
	"github.com/spigell/matchagig/internal/session"
	"github.com/spigell/matchagig/internal/store"
	"github.com/spigell/matchagig/internal/utils"
)

var (
	// ErrNoUserMessage stops a predefined mode on a seeded candidate when
	// there is no earlier user message to resend.
	ErrNoUserMessage = errors.New("no previous user message to send; ask a question first")
	ErrEmptyMessage  = errors.New("message is empty")
	ErrNoResumeText  = errors.New("candidate has no extracted resume text")
)

const failedPrefix = "Chat failed: "

// PreconditionError reports a chat action that cannot run in the current
// session state. It is meant to be shown to the user, not treated as a fault.
type PreconditionError struct {
	Err error
}

func (e *PreconditionError) Error() string {
	return e.Err.Error()
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

type Path string

const (
	PathStateful Path = "stateful"
	PathLegacy   Path = "legacy"
)

// Backend is the conversation API of the screening backend.
type Backend interface {
	Seed(ctx context.Context, req matchagig.SeedRequest) (*matchagig.SeedResult, error)
	Ask(ctx context.Context, req matchagig.AskRequest) (*matchagig.AskResult, error)
	LegacyChat(ctx context.Context, req matchagig.LegacyRequest) (string, error)
}

// Store persists transcripts and the seeded flag.
type Store interface {
	MarkSeeded(ctx context.Context, id string) error
	ClearSeeded(ctx context.Context, id string) error
	SaveChatHistory(ctx context.Context, id string, messages []store.ChatMessage) error
	ClearChatHistory(ctx context.Context, id string) error
}

// Reply describes how one turn was answered.
type Reply struct {
	Message store.ChatMessage
	Path    Path
	// FellBack is set when a stateful call failed and the legacy path answered.
	FellBack bool
	// Failed is set when Message carries error text instead of an answer.
	Failed bool
}

type Manager struct {
	session   *session.Session
	backend   Backend
	store     Store
	logger    *zap.Logger
	maxLogLen int
}

const defaultMaxLogLength = 200

func NewManager(sess *session.Session, backend Backend, st Store, logger *zap.Logger, maxLogLength int) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Manager{
		session:   sess,
		backend:   backend,
		store:     st,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// History returns the transcript of the current candidate.
func (m *Manager) History() ([]store.ChatMessage, error) {
	current := m.session.Current()
	if current == nil {
		return nil, &PreconditionError{Err: session.ErrNoCandidate}
	}
	return m.session.History(current.ResumeID), nil
}

// Seed opens a stateful conversation for the current candidate. The
// candidate becomes seeded only when the backend accepts the seed and the
// flag is stored.
func (m *Manager) Seed(ctx context.Context) error {
	if err := m.session.RequireChatReady(); err != nil {
		return &PreconditionError{Err: err}
	}

	rec := m.session.Current()
	job := m.session.Job()
	if strings.TrimSpace(rec.CanonicalText) == "" {
		return &PreconditionError{Err: ErrNoResumeText}
	}

	log := logger.WithCandidate(m.logger, rec.ResumeID, job.Hash)

	result, err := m.backend.Seed(ctx, matchagig.SeedRequest{
		CandidateID: rec.ResumeID,
		JDHash:      job.Hash,
		ResumeText:  rec.CanonicalText,
	})
	if err != nil {
		log.Warn("seeding chat failed", zap.Error(err))
		return fmt.Errorf("seeding chat: %w", err)
	}

	if err := m.store.MarkSeeded(ctx, rec.ResumeID); err != nil {
		return fmt.Errorf("storing seeded flag: %w", err)
	}
	m.session.MarkSeeded(rec.ResumeID, result.PreviousResponseID)
	if err := m.session.Refresh(ctx); err != nil {
		return err
	}

	log.Info("chat seeded", zap.String("previous_response_id", result.PreviousResponseID))
	return nil
}

// Send answers one turn for the current candidate. Backend failures never
// come back as errors: they end up in the transcript as an assistant turn.
// Returned errors are precondition failures (nothing was sent) or storage
// failures (the in-memory transcript is already updated).
func (m *Manager) Send(ctx context.Context, in Input) (*Reply, error) {
	if err := m.session.RequireChatReady(); err != nil {
		return nil, &PreconditionError{Err: err}
	}

	rec := m.session.Current()
	job := m.session.Job()
	id := rec.ResumeID
	seeded := m.session.IsSeeded(id)
	transcript := m.session.History(id)

	var text, mode string
	switch v := in.(type) {
	case Freeform:
		text = strings.TrimSpace(v.Text)
		if text == "" {
			return nil, &PreconditionError{Err: ErrEmptyMessage}
		}
	case NamedMode:
		if !v.Mode.Valid() {
			return nil, &PreconditionError{Err: fmt.Errorf("unknown chat mode %q", v.Mode)}
		}
		mode = string(v.Mode)
		if seeded {
			last, ok := LastUserMessage(transcript)
			if !ok {
				return nil, &PreconditionError{Err: ErrNoUserMessage}
			}
			text = last
		}
	default:
		return nil, fmt.Errorf("unsupported chat input %T", in)
	}

	log := logger.WithCandidate(m.logger, id, job.Hash).With(zap.String("mode", mode))

	if _, ok := in.(Freeform); ok {
		transcript = append(transcript, store.ChatMessage{Role: store.RoleUser, Content: text})
		if err := m.save(ctx, id, transcript); err != nil {
			return nil, err
		}
	}

	reply := &Reply{Path: PathLegacy}
	var (
		answer  string
		sendErr error
	)

	if seeded {
		log.Debug("stateful chat request", zap.String("text_preview", utils.TruncateForLog(text, m.maxLogLen)))

		result, err := m.backend.Ask(ctx, matchagig.AskRequest{CandidateID: id, Text: text})
		if err == nil {
			answer = result.Text
			reply.Path = PathStateful
			m.session.SetLastResponseID(id, result.PreviousResponseID)
		} else {
			log.Warn("stateful chat failed, falling back to legacy chat for this turn", zap.Error(err))
			reply.FellBack = true
		}
	}

	if reply.Path == PathLegacy {
		answer, sendErr = m.backend.LegacyChat(ctx, matchagig.LegacyRequest{
			JDHash:     job.Hash,
			ResumeText: rec.CanonicalText,
			Messages:   toWire(transcript),
			Mode:       mode,
		})
	}

	if sendErr != nil {
		log.Warn("chat turn failed", zap.Error(sendErr))
		reply.Failed = true
		answer = failedPrefix + matchagig.FriendlyMessage(sendErr)
	} else {
		log.Debug("chat reply",
			zap.String(logger.FieldChatPath, string(reply.Path)),
			zap.String("reply_preview", utils.TruncateForLog(answer, m.maxLogLen)),
		)
	}

	reply.Message = store.ChatMessage{Role: store.RoleAssistant, Content: answer}
	transcript = append(transcript, reply.Message)

	return reply, m.save(ctx, id, transcript)
}

// Reset clears the transcript and the seeded state of the current candidate.
func (m *Manager) Reset(ctx context.Context) error {
	rec := m.session.Current()
	if rec == nil {
		return &PreconditionError{Err: session.ErrNoCandidate}
	}

	if err := m.store.ClearChatHistory(ctx, rec.ResumeID); err != nil {
		return fmt.Errorf("clearing chat history: %w", err)
	}
	m.session.SetHistory(rec.ResumeID, nil)

	if err := m.store.ClearSeeded(ctx, rec.ResumeID); err != nil {
		return fmt.Errorf("clearing seeded flag: %w", err)
	}
	m.session.UnmarkSeeded(rec.ResumeID)

	return m.session.Refresh(ctx)
}

// save updates the session transcript and writes the full list to the store.
func (m *Manager) save(ctx context.Context, id string, transcript []store.ChatMessage) error {
	m.session.SetHistory(id, transcript)
	if err := m.store.SaveChatHistory(ctx, id, transcript); err != nil {
		return fmt.Errorf("saving chat history: %w", err)
	}
	return nil
}

func toWire(messages []store.ChatMessage) []matchagig.Message {
	wire := make([]matchagig.Message, 0, len(messages))
	for _, msg := range messages {
		wire = append(wire, matchagig.Message{Role: string(msg.Role), Content: msg.Content})
	}
	return wire
}
