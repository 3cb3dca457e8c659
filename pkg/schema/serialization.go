package schema

import (
	"encoding/json"
)

// Summary is a serializable view of a Descriptor. Rule clauses are code and
// are only counted.
type Summary struct {
	Name   string         `json:"name"`
	Fields []FieldSummary `json:"fields"`
}

// FieldSummary describes one field in a Summary.
type FieldSummary struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Many     bool     `json:"many,omitempty"`
	Nulls    string   `json:"nulls,omitempty"`
	Default  any      `json:"default,omitempty"`
	Rules    int      `json:"rules,omitempty"`
	Embed    *Summary `json:"embed,omitempty"`
}

// Summary returns the serializable view of the descriptor.
func (d *Descriptor) Summary() Summary {
	s := Summary{Name: d.name, Fields: make([]FieldSummary, 0, len(d.fields))}
	for _, f := range d.fields {
		fs := FieldSummary{
			Name:     f.Name,
			Type:     f.TypeName(),
			Required: d.required[f.Name],
			Many:     f.Many,
			Default:  f.Default,
			Rules:    len(d.rules[f.Name]),
		}
		if f.Nulls != NullAsValue {
			fs.Nulls = f.Nulls.String()
		}
		if f.Embed != nil {
			nested := f.Embed.Summary()
			fs.Embed = &nested
		}
		s.Fields = append(s.Fields, fs)
	}
	return s
}

// MarshalJSON serializes the descriptor summary.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d.Summary())
}
