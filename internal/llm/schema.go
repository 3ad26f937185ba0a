package llm

import (
	"fmt"
	"strings"
)

// FieldKind is the closed set of field types a response schema may use.
type FieldKind string

const (
	KindString   FieldKind = "string"
	KindNumber   FieldKind = "number"
	KindMapping  FieldKind = "mapping"
	KindEnum     FieldKind = "enum"
	KindOptional FieldKind = "optional"
)

// Field is one named slot in a response schema.
type Field struct {
	Name    string
	Kind    FieldKind
	Options []string // enum values, first one is the fallback default
}

// Schema describes the JSON object an aggregation agent expects back from
// the model. It drives prompt instructions, response validation and the
// synthesized default when every attempt fails.
type Schema struct {
	Name   string
	Fields []Field
}

// Default synthesizes a fully populated value: empty string, zero, empty
// mapping, first enum option, or null for optional fields.
func (s *Schema) Default() map[string]any {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		switch f.Kind {
		case KindString:
			out[f.Name] = ""
		case KindNumber:
			out[f.Name] = 0.0
		case KindMapping:
			out[f.Name] = map[string]any{}
		case KindEnum:
			if len(f.Options) > 0 {
				out[f.Name] = f.Options[0]
			} else {
				out[f.Name] = ""
			}
		default:
			out[f.Name] = nil
		}
	}
	return out
}

// Validate checks a parsed response against the schema. Optional fields may
// be missing or null; everything else must be present with the right shape.
func (s *Schema) Validate(value map[string]any) error {
	for _, f := range s.Fields {
		v, ok := value[f.Name]
		if !ok || v == nil {
			if f.Kind == KindOptional {
				continue
			}
			return fmt.Errorf("%s: missing required field %q", s.Name, f.Name)
		}
		switch f.Kind {
		case KindString:
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%s: field %q must be a string", s.Name, f.Name)
			}
		case KindNumber:
			if _, ok := v.(float64); !ok {
				return fmt.Errorf("%s: field %q must be a number", s.Name, f.Name)
			}
		case KindMapping:
			if _, ok := v.(map[string]any); !ok {
				return fmt.Errorf("%s: field %q must be an object", s.Name, f.Name)
			}
		case KindEnum:
			sv, ok := v.(string)
			if !ok {
				return fmt.Errorf("%s: field %q must be a string", s.Name, f.Name)
			}
			valid := false
			for _, opt := range f.Options {
				if sv == opt {
					valid = true
					break
				}
			}
			if !valid {
				return fmt.Errorf("%s: field %q value %q not in %v", s.Name, f.Name, sv, f.Options)
			}
		}
	}
	return nil
}

// Instruction renders the schema as a prompt fragment telling the model
// what JSON object to return.
func (s *Schema) Instruction() string {
	var b strings.Builder
	b.WriteString("Respond with a JSON object containing exactly these fields:\n")
	for _, f := range s.Fields {
		switch f.Kind {
		case KindEnum:
			fmt.Fprintf(&b, "- %q: one of %s\n", f.Name, strings.Join(f.Options, " | "))
		case KindMapping:
			fmt.Fprintf(&b, "- %q: a JSON object\n", f.Name)
		case KindOptional:
			fmt.Fprintf(&b, "- %q: optional, may be null\n", f.Name)
		default:
			fmt.Fprintf(&b, "- %q: a %s\n", f.Name, f.Kind)
		}
	}
	b.WriteString("Do not include any other text outside the JSON object.")
	return b.String()
}
