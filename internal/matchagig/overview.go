package matchagig

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Overview is the candidate overview. Known fields are typed; Raw keeps the
// whole payload for the debug view.
type Overview struct {
	ResumeID   string         `json:"resumeId,omitempty"`
	Name       string         `json:"name,omitempty"`
	Email      string         `json:"email,omitempty"`
	Score      float64        `json:"score,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Skills     []string       `json:"skills,omitempty"`
	Highlights []string       `json:"highlights,omitempty"`
	Raw        map[string]any `json:"-"`
}

// Overview fetches the overview of a candidate. Transport failures such as a
// refused connection are retried up to RetryAttempts times with a fixed
// RetryDelay between attempts; error payloads from the server are not.
func (c *Client) Overview(ctx context.Context, resumeID string) (*Overview, error) {
	const op = "overview"

	if strings.TrimSpace(resumeID) == "" {
		return nil, errors.New("overview: resume id is required")
	}

	attempts := c.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		resp *response
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err = c.get(ctx, op, overviewPath+url.PathEscape(resumeID))
		if err == nil || !IsRetryable(err) || attempt == attempts {
			break
		}

		c.logger.Warn("overview fetch failed, retrying",
			zap.String("resume_id", resumeID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", c.RetryDelay),
			zap.Error(err),
		)

		if werr := c.wait(ctx, c.RetryDelay); werr != nil {
			return nil, werr
		}
	}
	if err != nil {
		return nil, err
	}

	overview, err := decodeResponse[Overview](op, overviewResponseSchema, resp.body)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(resp.body, &overview.Raw); err != nil {
		return nil, &MalformedResponseError{Op: op, Reason: "body is not a JSON object", Err: err}
	}

	return overview, nil
}
