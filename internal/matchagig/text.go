package matchagig

import (
	"context"
	"errors"
	"strings"
)

// TextRequest addresses a resume either by backend file id or by raw text.
type TextRequest struct {
	FileID   string `json:"fileId,omitempty"`
	Text     string `json:"text,omitempty"`
	JobTitle string `json:"jobTitle,omitempty"`
}

func (r TextRequest) validate(op string) error {
	if strings.TrimSpace(r.FileID) == "" && strings.TrimSpace(r.Text) == "" {
		return errors.New(op + ": file id or text is required")
	}
	return nil
}

type textResult struct {
	Text string `json:"text"`
}

func (c *Client) Summary(ctx context.Context, req TextRequest) (string, error) {
	return c.postText(ctx, "summary", summaryPath, req)
}

// RedFlags asks for concerns about the resume. The job title is not part of
// this endpoint's contract and is dropped.
func (c *Client) RedFlags(ctx context.Context, req TextRequest) (string, error) {
	req.JobTitle = ""
	return c.postText(ctx, "red flags", redFlagsPath, req)
}

func (c *Client) postText(ctx context.Context, op, path string, req TextRequest) (string, error) {
	if err := req.validate(op); err != nil {
		return "", err
	}

	resp, err := c.postJSON(ctx, op, path, req)
	if err != nil {
		return "", err
	}

	result, err := decodeResponse[textResult](op, textResponseSchema, resp.body)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}
