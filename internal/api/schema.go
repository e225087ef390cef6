package api

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const detectSchemaJSON = `{
  "type": "object",
  "properties": {
    "class_level": {"type": ["integer", "null"], "minimum": 0},
    "subject": {"type": ["string", "null"], "maxLength": 64},
    "similarity_threshold": {"type": ["number", "null"]}
  }
}`

const deleteSchemaJSON = `{
  "type": "object",
  "required": ["question_ids"],
  "properties": {
    "action": {"enum": ["group"]},
    "group_id": {"type": "string", "maxLength": 64},
    "dry_run": {"type": "boolean"},
    "question_ids": {
      "type": "array",
      "maxItems": 1000,
      "items": {"type": "string", "maxLength": 64}
    }
  }
}`

const loginSchemaJSON = `{
  "type": "object",
  "required": ["email", "password"],
  "properties": {
    "email": {"type": "string", "minLength": 3, "maxLength": 254},
    "password": {"type": "string", "minLength": 1, "maxLength": 128}
  }
}`

var (
	detectSchema = mustSchema(detectSchemaJSON)
	deleteSchema = mustSchema(deleteSchemaJSON)
	loginSchema  = mustSchema(loginSchemaJSON)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return s
}

// validateBody checks body against schema and returns a readable error
// listing every violation.
func validateBody(schema *gojsonschema.Schema, body []byte) error {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
}
