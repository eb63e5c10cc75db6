package semmodel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotAMapping        = errors.New("SEMANTIC_MODEL_INVALID")
	ErrUnrecognizedShape  = errors.New("SEMANTIC_MODEL_UNRECOGNIZED_SHAPE")
	ErrSchemaValidation   = errors.New("SEMANTIC_MODEL_VALIDATION_FAILED")
)

const legacySchema = `{
	"type": "object",
	"properties": {
		"tables": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"columns": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {"name": {"type": "string", "minLength": 1}},
							"required": ["name"]
						}
					}
				},
				"required": ["name", "columns"]
			}
		}
	},
	"required": ["tables"]
}`

const currentSchema = `{
	"type": "object",
	"properties": {
		"logical_tables": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"base_table": {"type": "string", "minLength": 1},
					"columns": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {"name": {"type": "string", "minLength": 1}},
							"required": ["name"]
						}
					}
				},
				"required": ["name", "base_table"]
			}
		},
		"metrics": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"expr": {"type": "string", "minLength": 1}
				},
				"required": ["name", "expr"]
			}
		},
		"verified_queries": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"question": {"type": "string"},
					"sql": {"type": "string"}
				},
				"required": ["question", "sql"]
			}
		}
	},
	"required": ["logical_tables"]
}`

// Load parses a YAML semantic-model document, detects its shape, validates
// it structurally, and returns the resolved tagged union. Documents that
// match neither recognized shape are rejected outright rather than loaded
// with partial data.
func Load(data []byte) (*Model, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAMapping, err)
	}

	root, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: document is not a mapping", ErrNotAMapping)
	}

	// The original format allows an optional semantic_model: wrapper.
	if wrapped, ok := root["semantic_model"].(map[string]interface{}); ok {
		root = wrapped
	}

	name, _ := root["name"].(string)
	description, _ := root["description"].(string)

	shape, err := detectShape(root)
	if err != nil {
		return nil, err
	}

	schemaJSON := legacySchema
	if shape == ShapeCurrent {
		schemaJSON = currentSchema
	}
	if err := validateShape(root, schemaJSON); err != nil {
		return nil, err
	}

	body, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAMapping, err)
	}

	model := &Model{
		Name:        name,
		Description: description,
		Version:     "custom",
		Shape:       shape,
	}

	switch shape {
	case ShapeLegacy:
		var legacy LegacyModel
		if err := yaml.Unmarshal(body, &legacy); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
		}
		model.Legacy = &legacy
	case ShapeCurrent:
		var current CurrentModel
		if err := yaml.Unmarshal(body, &current); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
		}
		model.Current = &current
	}

	return model, nil
}

func detectShape(root map[string]interface{}) (Shape, error) {
	if _, ok := root["logical_tables"]; ok {
		return ShapeCurrent, nil
	}
	if _, ok := root["tables"]; ok {
		return ShapeLegacy, nil
	}

	keys := make([]string, 0, len(root))
	for k := range root {
		keys = append(keys, k)
	}
	return "", fmt.Errorf("%w: expected tables or logical_tables, got keys [%s]",
		ErrUnrecognizedShape, strings.Join(keys, ", "))
}

func validateShape(root map[string]interface{}, schemaJSON string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewGoLoader(root)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrSchemaValidation, strings.Join(msgs, "; "))
	}

	return nil
}
