// Package schema declares the attribute set of a stored entity and
// validates records against it.
package schema

import (
	"fmt"
	"reflect"
)

// IDField is the reserved identifier attribute. It is always a string
// and is never declared in a Definition.
const IDField = "id"

// Type is the declared type of an entity attribute.
type Type string

const (
	String  Type = "string"
	Number  Type = "number"
	Integer Type = "integer"
	Boolean Type = "boolean"
)

// Field declares one attribute of the entity.
type Field struct {
	Name     string
	Type     Type
	Required bool

	// Optional constraints for string fields. Zero values mean
	// "unconstrained".
	Enum      []string
	MinLength int
	MaxLength int
}

// Definition is the fixed attribute set of one entity type. Records may
// only carry the declared attributes plus the implicit identifier.
type Definition struct {
	Entity string
	Fields []Field
}

// Validate checks a record against the definition: required attributes
// must be present, values must match their declared types, and no
// undeclared attributes are allowed. A nil Definition validates nothing.
// An attribute set to nil counts as absent.
func (d *Definition) Validate(doc map[string]any) error {
	if d == nil {
		return nil
	}

	declared := make(map[string]Field, len(d.Fields))
	for _, f := range d.Fields {
		declared[f.Name] = f
	}

	for _, f := range d.Fields {
		v, ok := doc[f.Name]
		if !ok || v == nil {
			if f.Required {
				return fmt.Errorf("missing required field %q", f.Name)
			}
			continue
		}
		if err := checkField(f, v); err != nil {
			return err
		}
	}

	for name, v := range doc {
		if name == IDField {
			if v == nil {
				continue
			}
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%s: expected type %q, got %q", IDField, String, valueType(v))
			}
			continue
		}
		if _, ok := declared[name]; !ok {
			return fmt.Errorf("unknown field %q", name)
		}
	}

	return nil
}

func checkField(f Field, v any) error {
	actual := valueType(v)

	switch f.Type {
	case Integer:
		// Accept float64 values that are whole numbers, since JSON
		// decoding produces float64 for all numbers.
		if n, ok := v.(float64); ok && n == float64(int64(n)) {
			break
		}
		if actual != Integer {
			return fmt.Errorf("%s: expected type %q, got %q", f.Name, f.Type, actual)
		}
	case Number:
		if actual != Number && actual != Integer {
			return fmt.Errorf("%s: expected type %q, got %q", f.Name, f.Type, actual)
		}
	default:
		if actual != f.Type {
			return fmt.Errorf("%s: expected type %q, got %q", f.Name, f.Type, actual)
		}
	}

	if f.Type == String {
		s := v.(string)
		if f.MinLength > 0 && len(s) < f.MinLength {
			return fmt.Errorf("%s: string length %d is less than minLength %d", f.Name, len(s), f.MinLength)
		}
		if f.MaxLength > 0 && len(s) > f.MaxLength {
			return fmt.Errorf("%s: string length %d is greater than maxLength %d", f.Name, len(s), f.MaxLength)
		}
		if len(f.Enum) > 0 {
			ok := false
			for _, a := range f.Enum {
				if a == s {
					ok = true
					break
				}
			}
			if !ok {
				return fmt.Errorf("%s: value %q not in enum %v", f.Name, s, f.Enum)
			}
		}
	}

	return nil
}

func valueType(v any) Type {
	switch v.(type) {
	case string:
		return String
	case bool:
		return Boolean
	case float64:
		return Number
	case int, int32, int64:
		return Integer
	default:
		return Type(reflect.TypeOf(v).String())
	}
}
