package trigger

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const responseSchemaURL = "https://toolhive.dev/schemas/refresh-triggers.json"

// responseSchema describes the body returned by the trigger endpoint
const responseSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "triggers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"type": "string"},
          "components": {
            "type": "array",
            "items": {"type": "string"}
          }
        }
      }
    }
  }
}`

func compileResponseSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(responseSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse trigger response schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(responseSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add trigger response schema: %w", err)
	}

	schema, err := compiler.Compile(responseSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile trigger response schema: %w", err)
	}
	return schema, nil
}

func validateResponse(schema *jsonschema.Schema, body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("malformed trigger response: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("invalid trigger response: %w", err)
	}
	return nil
}
