package dto

// Document is the on-disk form of a schema, written in YAML or JSON.
// It uses "mapstructure" tags so both formats decode through the same path.
type Document struct {
	Name        string          `json:"name" mapstructure:"name"`
	Description string          `json:"description,omitempty" mapstructure:"description"`
	Fields      []FieldDocument `json:"fields" mapstructure:"fields"`
}

// FieldDocument declares one field of a Document.
type FieldDocument struct {
	Name     string         `json:"name" mapstructure:"name"`
	Type     string         `json:"type,omitempty" mapstructure:"type"`
	Required bool           `json:"required,omitempty" mapstructure:"required"`
	Default  any            `json:"default,omitempty" mapstructure:"default"`
	Nulls    string         `json:"nulls,omitempty" mapstructure:"nulls"`
	Trim     bool           `json:"trim,omitempty" mapstructure:"trim"`
	NFC      bool           `json:"nfc,omitempty" mapstructure:"nfc"`
	Rules    []RuleDocument `json:"rules,omitempty" mapstructure:"rules"`

	// Embed and EmbedMany hold either the name of another schema or an
	// inline document.
	Embed     any `json:"embed,omitempty" mapstructure:"embed"`
	EmbedMany any `json:"embed_many,omitempty" mapstructure:"embed_many"`
}

// RuleDocument names a registered rule and its arguments.
type RuleDocument struct {
	Check   string `json:"check" mapstructure:"check"`
	Args    []any  `json:"args,omitempty" mapstructure:"args"`
	Message string `json:"message,omitempty" mapstructure:"message"`
}
