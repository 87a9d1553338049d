package matchagig

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
)

const uploadSchema = `{
	"type": "object",
	"required": ["resumeId"],
	"properties": {
		"resumeId": {"type": "string", "minLength": 1},
		"name":     {"type": ["string", "null"]},
		"email":    {"type": ["string", "null"]},
		"phone":    {"type": ["string", "null"]},
		"length":   {"type": ["number", "null"]},
		"text":     {"type": ["string", "null"]}
	}
}`

const bulkSchema = `{
	"type": "object",
	"required": ["candidates"],
	"properties": {
		"jdHash": {"type": ["string", "null"]},
		"candidates": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["resumeId"],
				"properties": {
					"resumeId":      {"type": "string", "minLength": 1},
					"filename":      {"type": ["string", "null"]},
					"email":         {"type": ["string", "null"]},
					"cosine":        {"type": ["number", "null"]},
					"bytes":         {"type": ["number", "null"]},
					"canonicalText": {"type": ["string", "null"]}
				}
			}
		}
	}
}`

const textSchema = `{
	"type": "object",
	"required": ["text"],
	"properties": {"text": {"type": "string"}}
}`

const seedSchema = `{
	"type": "object",
	"required": ["ok"],
	"properties": {
		"ok": {"type": "boolean"},
		"previousResponseId": {"type": ["string", "null"]}
	}
}`

const askSchema = `{
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string"},
		"previousResponseId": {"type": ["string", "null"]}
	}
}`

const overviewSchema = `{"type": "object"}`

var (
	uploadResponseSchema   = mustSchema("upload", uploadSchema)
	bulkResponseSchema     = mustSchema("bulk-zip", bulkSchema)
	textResponseSchema     = mustSchema("text", textSchema)
	seedResponseSchema     = mustSchema("seed", seedSchema)
	askResponseSchema      = mustSchema("ask", askSchema)
	overviewResponseSchema = mustSchema("overview", overviewSchema)
)

func mustSchema(name, raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compiling %s response schema: %v", name, err))
	}
	return schema
}

// decodeResponse validates body against schema and decodes it into a T.
func decodeResponse[T any](op string, schema *gojsonschema.Schema, body []byte) (*T, error) {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, &MalformedResponseError{Op: op, Reason: "body is not valid JSON", Err: err}
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			reasons = append(reasons, fmt.Sprintf("%s: %s", field, desc.Description()))
		}
		return nil, &MalformedResponseError{Op: op, Reason: strings.Join(reasons, "; ")}
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &MalformedResponseError{Op: op, Reason: "body is not valid JSON", Err: err}
	}

	var out T
	cfg := &mapstructure.DecoderConfig{
		Result:  &out,
		TagName: "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &MalformedResponseError{Op: op, Reason: err.Error(), Err: err}
	}

	return &out, nil
}
