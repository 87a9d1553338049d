package matchagig

import (
	"context"
	"errors"
	"mime"
	"strings"

	"go.uber.org/zap"
)

// ErrSeedRejected is returned when the backend answers a seed call with ok=false.
var ErrSeedRejected = errors.New("seed rejected by backend")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SeedRequest struct {
	CandidateID string `json:"candidateId"`
	JDHash      string `json:"jdHash"`
	ResumeText  string `json:"resumeText"`
}

type SeedResult struct {
	OK                 bool   `json:"ok"`
	PreviousResponseID string `json:"previousResponseId,omitempty"`
}

type AskRequest struct {
	CandidateID string `json:"candidateId"`
	Text        string `json:"text"`
}

type AskResult struct {
	Text               string `json:"text"`
	PreviousResponseID string `json:"previousResponseId,omitempty"`
}

// LegacyRequest replays the whole conversation; the server keeps no state.
type LegacyRequest struct {
	JDHash     string    `json:"jdHash"`
	ResumeText string    `json:"resumeText"`
	Messages   []Message `json:"messages"`
	Mode       string    `json:"mode,omitempty"`
}

// Seed initializes a stateful server-side conversation for a candidate.
func (c *Client) Seed(ctx context.Context, req SeedRequest) (*SeedResult, error) {
	const op = "chat seed"

	if strings.TrimSpace(req.CandidateID) == "" {
		return nil, errors.New("chat seed: candidate id is required")
	}

	resp, err := c.postJSON(ctx, op, seedPath, req)
	if err != nil {
		return nil, err
	}

	result, err := decodeResponse[SeedResult](op, seedResponseSchema, resp.body)
	if err != nil {
		return nil, err
	}
	if !result.OK {
		return nil, ErrSeedRejected
	}

	c.logger.Debug("chat seeded",
		zap.String("candidate_id", req.CandidateID),
		zap.String("previous_response_id", result.PreviousResponseID),
	)

	return result, nil
}

// Ask sends one message on a seeded conversation.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	const op = "chat"

	resp, err := c.postJSON(ctx, op, askPath, req)
	if err != nil {
		return nil, err
	}

	return decodeResponse[AskResult](op, askResponseSchema, resp.body)
}

// LegacyChat sends the full transcript and returns the markdown reply.
func (c *Client) LegacyChat(ctx context.Context, req LegacyRequest) (string, error) {
	const op = "chat"

	if req.Messages == nil {
		req.Messages = []Message{}
	}

	resp, err := c.postJSON(ctx, op, legacyPath, req)
	if err != nil {
		return "", err
	}

	if mediaType, _, _ := mime.ParseMediaType(resp.contentType); mediaType == contentType {
		result, err := decodeResponse[textResult](op, textResponseSchema, resp.body)
		if err != nil {
			return "", err
		}
		return result.Text, nil
	}

	reply := strings.TrimSpace(string(resp.body))
	if reply == "" {
		return "", &MalformedResponseError{Op: op, Reason: "empty reply"}
	}
	return reply, nil
}
