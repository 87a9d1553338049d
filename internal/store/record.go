package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"
)

type ExtractionStatus string

const (
	StatusPending    ExtractionStatus = "pending"
	StatusProcessing ExtractionStatus = "processing"
	StatusExtracted  ExtractionStatus = "extracted"
	StatusFailed     ExtractionStatus = "failed"
)

// Valid reports whether s is one of the known extraction statuses.
func (s ExtractionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusExtracted, StatusFailed:
		return true
	default:
		return false
	}
}

type Meta struct {
	Filename string  `json:"filename"`
	Email    string  `json:"email,omitempty"`
	Cosine   float64 `json:"cosine"`
	Bytes    int64   `json:"bytes"`
}

// ResumeRecord is the cached state of one uploaded resume.
type ResumeRecord struct {
	ResumeID         string           `json:"resumeId"`
	FileBytes        []byte           `json:"fileBytes,omitempty"`
	FileType         string           `json:"fileType,omitempty"`
	CanonicalText    string           `json:"canonicalText,omitempty"`
	Meta             Meta             `json:"meta"`
	ExtractionStatus ExtractionStatus `json:"extractionStatus"`
	ExtractedData    json.RawMessage  `json:"extractedData,omitempty"`
	IsSeeded         bool             `json:"isSeeded"`
	SeededAt         time.Time        `json:"seededAt,omitzero"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	Version          int64            `json:"version"`
}

// Clone returns a deep copy so callers never share byte slices with the store.
func (r *ResumeRecord) Clone() *ResumeRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.FileBytes != nil {
		c.FileBytes = append([]byte(nil), r.FileBytes...)
	}
	if r.ExtractedData != nil {
		c.ExtractedData = append(json.RawMessage(nil), r.ExtractedData...)
	}
	return &c
}

// normalize puts r in the form a store read gives back: times in UTC without
// a monotonic reading, extracted data as compact JSON with sorted keys and
// empty byte slices as nil.
func (r *ResumeRecord) normalize() error {
	r.SeededAt = normalizeTime(r.SeededAt)
	r.UpdatedAt = normalizeTime(r.UpdatedAt)
	if len(r.FileBytes) == 0 {
		r.FileBytes = nil
	}

	data, err := canonicalJSON(r.ExtractedData)
	if err != nil {
		return fmt.Errorf("extracted data of %q: %w", r.ResumeID, err)
	}
	r.ExtractedData = data
	return nil
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Round(0)
}

// canonicalJSON re-encodes raw so equal documents compare equal byte for byte,
// whatever whitespace or key order they were written with.
func canonicalJSON(raw json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func encodeRecord(rec *ResumeRecord) ([]byte, error) {
	if err := rec.normalize(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*ResumeRecord, error) {
	rec := &ResumeRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	if err := rec.normalize(); err != nil {
		return nil, err
	}
	return rec, nil
}

// DisplayName is the best human label for the record.
func (r *ResumeRecord) DisplayName() string {
	if r.Meta.Filename != "" {
		return r.Meta.Filename
	}
	return r.ResumeID
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	FileType         *string
	CanonicalText    *string
	Meta             *Meta
	Cosine           *float64
	ExtractionStatus *ExtractionStatus
	ExtractedData    json.RawMessage
	IsSeeded         *bool
	SeededAt         *time.Time
}

// Apply mutates rec in place with every non-nil field of p.
func (p Patch) Apply(rec *ResumeRecord) {
	if p.FileType != nil {
		rec.FileType = *p.FileType
	}
	if p.CanonicalText != nil {
		rec.CanonicalText = *p.CanonicalText
	}
	if p.Meta != nil {
		rec.Meta = *p.Meta
	}
	if p.Cosine != nil {
		rec.Meta.Cosine = *p.Cosine
	}
	if p.ExtractionStatus != nil {
		rec.ExtractionStatus = *p.ExtractionStatus
	}
	if p.ExtractedData != nil {
		rec.ExtractedData = append(json.RawMessage(nil), p.ExtractedData...)
	}
	if p.IsSeeded != nil {
		rec.IsSeeded = *p.IsSeeded
	}
	if p.SeededAt != nil {
		rec.SeededAt = *p.SeededAt
	}
}

func seededPatch(at time.Time) Patch {
	seeded := true
	return Patch{IsSeeded: &seeded, SeededAt: &at}
}

func unseededPatch() Patch {
	seeded := false
	zero := time.Time{}
	return Patch{IsSeeded: &seeded, SeededAt: &zero}
}

type Records []*ResumeRecord

func (r Records) Len() int {
	return len(r)
}

func (r Records) FindByID(id string) *ResumeRecord {
	for _, rec := range r {
		if rec.ResumeID == id {
			return rec
		}
	}
	return nil
}

func (r Records) IDs() []string {
	ids := make([]string, 0, len(r))
	for _, rec := range r {
		ids = append(ids, rec.ResumeID)
	}
	return ids
}

// SortByScore orders records by cosine similarity, best first. Ties fall back
// to the filename so the order is stable between runs.
func (r Records) SortByScore() {
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].Meta.Cosine != r[j].Meta.Cosine {
			return r[i].Meta.Cosine > r[j].Meta.Cosine
		}
		return r[i].DisplayName() < r[j].DisplayName()
	})
}

// DumpToTmpFile writes the records without file bytes to a temporary JSON file.
func (r Records) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "candidates_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	light := make([]*ResumeRecord, 0, len(r))
	for _, rec := range r {
		c := rec.Clone()
		c.FileBytes = nil
		light = append(light, c)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(light); err != nil {
		return "", err
	}
	return file.Name(), nil
}
