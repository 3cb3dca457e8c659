package compiler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/sieve/internal/dto"
)

// ErrInvalidDocument is returned when a schema document cannot be decoded.
var ErrInvalidDocument = errors.New("invalid schema document")

// Parser is responsible for converting raw bytes into a Document.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a JSON or YAML schema document.
// Content starting with '{' is read as JSON, anything else as YAML.
func (p *Parser) Parse(data []byte) (*dto.Document, error) {
	raw := make(map[string]any)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	} else if err := yaml.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	doc, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("%w: document missing name", ErrInvalidDocument)
	}
	return doc, nil
}

// decode maps a generic document tree onto a Document. Unknown keys are
// rejected so that typos surface instead of being ignored.
func decode(raw map[string]any) (*dto.Document, error) {
	var doc dto.Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &doc, nil
}
