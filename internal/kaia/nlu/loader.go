package nlu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// librarySchema is the schema every external pattern-library document must
// satisfy before it replaces the built-in table. Catching a malformed
// document here yields a precise path-qualified error instead of a confusing
// classifier misfire at request time.
const librarySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "intents"],
  "properties": {
    "version": {"const": 1},
    "intents": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "responses"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "patterns": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["expr", "weight"],
              "properties": {
                "id": {"type": "string"},
                "expr": {"type": "string", "minLength": 1},
                "weight": {"type": "number", "exclusiveMinimum": 0, "maximum": 1}
              },
              "additionalProperties": false
            }
          },
          "responses": {
            "type": "array",
            "minItems": 1,
            "items": {"type": "string", "minLength": 1}
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var compiledLibrarySchema = jsonschema.MustCompileString("library.schema.json", librarySchema)

// libraryDoc mirrors the YAML document shape.
type libraryDoc struct {
	Version int `yaml:"version"`
	Intents []struct {
		Name     string `yaml:"name"`
		Patterns []struct {
			ID     string  `yaml:"id"`
			Expr   string  `yaml:"expr"`
			Weight float64 `yaml:"weight"`
		} `yaml:"patterns"`
		Responses []string `yaml:"responses"`
	} `yaml:"intents"`
}

// LoadLibrary parses a YAML pattern-library document, validates it against
// the embedded schema, and compiles it into a Library. It is the canonical
// entry point for deployments that override the built-in table.
//
// The document must define responses for the "unknown" intent so the terminal
// fallback always has something to say.
func LoadLibrary(data []byte) (*Library, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("nlu: parse library document: %w", err)
	}
	// The validator wants JSON-decoded values (string-keyed maps, float64
	// numbers), so round-trip the YAML value through encoding/json.
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("nlu: normalize library document: %w", err)
	}
	var normalized any
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	if err := dec.Decode(&normalized); err != nil {
		return nil, fmt.Errorf("nlu: normalize library document: %w", err)
	}
	if err := compiledLibrarySchema.Validate(normalized); err != nil {
		return nil, fmt.Errorf("nlu: invalid library document: %w", err)
	}

	var doc libraryDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("nlu: decode library document: %w", err)
	}

	var patterns []Pattern
	responses := make(map[Intent][]string, len(doc.Intents))
	for _, in := range doc.Intents {
		intent := Intent(in.Name)
		responses[intent] = in.Responses
		for _, p := range in.Patterns {
			patterns = append(patterns, Pattern{
				ID:     p.ID,
				Intent: intent,
				Expr:   p.Expr,
				Weight: p.Weight,
			})
		}
	}
	return NewLibrary(patterns, responses)
}

// LoadLibraryFile reads and compiles a pattern-library YAML file from disk.
func LoadLibraryFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nlu: read library file: %w", err)
	}
	return LoadLibrary(data)
}
