package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldCandidate is the structured log field key for a resume id.
	FieldCandidate = "candidate_id"
	// FieldJDHash is the structured log field key for the job-description hash.
	FieldJDHash = "jd_hash"
	// FieldEndpoint is the structured log field key for a backend path.
	FieldEndpoint = "endpoint"
	// FieldChatPath tells which conversation protocol served a turn.
	FieldChatPath = "chat_path"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CandidateFields describes the candidate and job posting a log line is about.
// Empty values are dropped to keep entries compact.
func CandidateFields(candidateID, jdHash string) []zap.Field {
	return StringFields(
		StringField{Key: FieldCandidate, Value: candidateID},
		StringField{Key: FieldJDHash, Value: jdHash},
	)
}

// WithCandidate attaches the candidate fields to the provided logger.
func WithCandidate(logger *zap.Logger, candidateID, jdHash string) *zap.Logger {
	return WithFields(logger, CandidateFields(candidateID, jdHash)...)
}
