package matchagig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// UploadResult is the extraction result for a single resume.
type UploadResult struct {
	ResumeID string  `json:"resumeId"`
	Name     string  `json:"name,omitempty"`
	Email    string  `json:"email,omitempty"`
	Phone    string  `json:"phone,omitempty"`
	Length   float64 `json:"length,omitempty"`
	Text     string  `json:"text,omitempty"`
}

// Extracted returns the structured fields worth keeping next to the record.
func (r *UploadResult) Extracted() json.RawMessage {
	data, _ := json.Marshal(struct {
		Name   string  `json:"name,omitempty"`
		Email  string  `json:"email,omitempty"`
		Phone  string  `json:"phone,omitempty"`
		Length float64 `json:"length,omitempty"`
	}{r.Name, r.Email, r.Phone, r.Length})
	return data
}

// Upload sends one resume document for text extraction.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	const op = "upload"

	if len(data) == 0 {
		return nil, errors.New("upload: file is empty")
	}

	resp, err := c.postMultipart(ctx, op, uploadPath, formFile{field: "file", filename: filename, data: data}, nil)
	if err != nil {
		return nil, err
	}

	result, err := decodeResponse[UploadResult](op, uploadResponseSchema, resp.body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("resume uploaded",
		zap.String("filename", filename),
		zap.String("resume_id", result.ResumeID),
		zap.Int("text_length", len(result.Text)),
	)

	return result, nil
}

// BulkRequest uploads a zip of resumes and ranks them against a job description.
type BulkRequest struct {
	Filename string
	Data     []byte
	JDText   string
	JDHash   string
	Flags    map[string]bool
}

type BulkCandidate struct {
	ResumeID      string  `json:"resumeId"`
	Filename      string  `json:"filename,omitempty"`
	Email         string  `json:"email,omitempty"`
	Cosine        float64 `json:"cosine"`
	Bytes         int64   `json:"bytes,omitempty"`
	CanonicalText string  `json:"canonicalText,omitempty"`
}

type BulkResult struct {
	JDHash     string           `json:"jdHash,omitempty"`
	Candidates []*BulkCandidate `json:"candidates"`
}

func (c *Client) BulkZip(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	const op = "bulk upload"

	if len(req.Data) == 0 {
		return nil, errors.New("bulk upload: zip file is empty")
	}
	if strings.TrimSpace(req.JDText) == "" && strings.TrimSpace(req.JDHash) == "" {
		return nil, errors.New("bulk upload: job description is required")
	}

	fields := map[string]string{
		"jdText": req.JDText,
		"jdHash": req.JDHash,
	}
	if len(req.Flags) > 0 {
		flags, err := json.Marshal(req.Flags)
		if err != nil {
			return nil, fmt.Errorf("bulk upload: encoding flags: %w", err)
		}
		fields["flags"] = string(flags)
	}

	resp, err := c.postMultipart(ctx, op, bulkZipPath, formFile{field: "file", filename: req.Filename, data: req.Data}, fields)
	if err != nil {
		return nil, err
	}

	result, err := decodeResponse[BulkResult](op, bulkResponseSchema, resp.body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("bulk zip ranked", zap.Int("candidates", len(result.Candidates)))

	return result, nil
}
