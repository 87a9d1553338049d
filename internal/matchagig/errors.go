package matchagig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
}

// TransportError means the request never produced an HTTP response:
// connection refused, DNS failure, reset or timeout.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is returned when a successful response does not
// match the schema expected for the endpoint.
type MalformedResponseError struct {
	Op     string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Op, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transport failure worth another
// attempt. Server error payloads and context cancellation are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var te *TransportError
	return errors.As(err, &te)
}

// FriendlyMessage renders err as a one-line status for the user.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	var te *TransportError
	if errors.As(err, &te) {
		return fmt.Sprintf("%s failed: backend is unreachable", te.Op)
	}

	var me *MalformedResponseError
	if errors.As(err, &me) {
		return fmt.Sprintf("%s failed: unexpected response from backend", me.Op)
	}

	return err.Error()
}

type errorPayload struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// decodeError builds an APIError from an error body shaped as
// {"error":{"message":...}} or {"message":...}.
func decodeError(op string, status int, body []byte) *APIError {
	return &APIError{Op: op, Status: status, Message: errorMessage(op, status, body)}
}

func errorMessage(op string, status int, body []byte) string {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(payload.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
				return strings.TrimSpace(nested.Message)
			}
			var flat string
			if err := json.Unmarshal(payload.Error, &flat); err == nil && strings.TrimSpace(flat) != "" {
				return strings.TrimSpace(flat)
			}
		}
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
	}

	if status == http.StatusRequestEntityTooLarge {
		return fmt.Sprintf("%s failed: file is too large", op)
	}
	return fmt.Sprintf("%s failed", op)
}
