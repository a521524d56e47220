package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const requestSchema = `{
  "type": "object",
  "required": ["query"],
  "properties": {
    "query": {"type": "string", "minLength": 1, "maxLength": 1024},
    "intent": {
      "type": "string",
      "enum": ["", "discovery", "symbol-lookup", "impact-analysis", "historical-context", "debug"]
    },
    "search_type": {
      "type": "string",
      "enum": ["", "hybrid", "semantic", "structural", "literal"]
    },
    "scope": {"type": "string", "maxLength": 512},
    "channels": {
      "type": "array",
      "items": {"type": "string", "minLength": 1, "maxLength": 128},
      "maxItems": 16
    },
    "limit": {"type": "integer", "minimum": 0, "maximum": 500},
    "max_depth": {"type": "integer", "minimum": 0, "maximum": 10}
  },
  "additionalProperties": false
}`

var requestSchemaLoader = gojsonschema.NewStringLoader(requestSchema)

// ValidateRequest checks a request against the query schema. A valid
// request returns nil; anything else returns a ValidationError listing
// every problem, not just the first.
func ValidateRequest(req Request) error {
	doc, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	result, err := gojsonschema.Validate(requestSchemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate request: %w", err)
	}
	if result.Valid() && strings.TrimSpace(req.Query) != "" {
		return nil
	}

	verr := &ValidationError{}
	for _, problem := range result.Errors() {
		verr.Problems = append(verr.Problems, problem.String())
	}
	if strings.TrimSpace(req.Query) == "" && len(verr.Problems) == 0 {
		verr.Problems = append(verr.Problems, "query: must not be blank")
	}
	return verr
}
