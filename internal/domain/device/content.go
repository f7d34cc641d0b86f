package device

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"

	apperrors "github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

const contentSchemaURL = "content_schema.json"

// ContentSchema is a compiled device type content schema.
type ContentSchema struct {
	schema *jsonschema.Schema
}

// CompileContentSchema compiles raw against the draft 2020-12 meta-schema.
// An empty or null schema yields nil.
func CompileContentSchema(raw []byte) (*ContentSchema, error) {
	if isNullJSON(raw) {
		return nil, nil
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(contentSchemaURL, bytes.NewReader(raw)); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidContentSchema, "content schema is not valid JSON", err.Error())
	}
	s, err := c.Compile(contentSchemaURL)
	if err != nil {
		return nil, apperrors.New(apperrors.KindInvalidContentSchema, "content schema is not a valid JSON schema", err.Error())
	}
	return &ContentSchema{schema: s}, nil
}

// Validate checks a content document against the schema.
func (s *ContentSchema) Validate(content []byte) error {
	var doc any
	if err := json.Unmarshal(content, &doc); err != nil {
		return apperrors.New(apperrors.KindContentSchemaMismatch, "content is not valid JSON", err.Error())
	}
	if err := s.schema.Validate(doc); err != nil {
		return apperrors.New(apperrors.KindContentSchemaMismatch, "content does not match the device type schema", err.Error())
	}
	return nil
}

// ValidateDeviceTypeSchema enforces that only additional sign device types
// carry a content schema and that the schema compiles.
func ValidateDeviceTypeSchema(target TargetModel, raw []byte) error {
	if isNullJSON(raw) {
		return nil
	}
	if target != TargetAdditionalSign {
		return apperrors.New(apperrors.KindInvalidContentSchema,
			"content schema is only allowed for additional sign device types", target.String())
	}
	_, err := CompileContentSchema(raw)
	return err
}

// ValidateRelation checks that a device type with target may be attached to family.
func ValidateRelation(target TargetModel, family Family) error {
	if target == "" || target == family.TargetModel() {
		return nil
	}
	return apperrors.Newf(apperrors.KindDeviceTypeUnsupported,
		"device type with target model %s cannot be used for %s", target, family)
}

// ValidateContent enforces that content either matches the schema or is
// absent with missingContent set, never both.
func ValidateContent(schema *ContentSchema, content []byte, missingContent bool) error {
	hasContent := !isNullJSON(content)
	switch {
	case missingContent && hasContent:
		return apperrors.New(apperrors.KindMissingContentConflict,
			"content must be empty when missing_content is set")
	case missingContent:
		return nil
	case !hasContent && schema != nil:
		return apperrors.New(apperrors.KindContentSchemaMismatch,
			"content is required unless missing_content is set")
	case !hasContent:
		return nil
	case schema == nil:
		return apperrors.New(apperrors.KindContentSchemaMismatch,
			"device type has no content schema")
	}
	return schema.Validate(content)
}

func isNullJSON(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
