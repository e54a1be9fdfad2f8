package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// FieldType enumerates the JSON types the argument schema can require.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeBoolean FieldType = "boolean"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
)

// Field declares the constraint for one argument.
type Field struct {
	Name  string
	Type  FieldType
	Items FieldType // element type when Type is TypeArray
	Enum  []string  // allowed values when Type is TypeString, empty = any
}

// Schema is the declarative constraint over a tool's args object. Fields is
// ordered, so validation reports the same first violation for the same input
// every time.
type Schema struct {
	Required []string
	Fields   []Field
}

// Violation describes the first failing constraint.
type Violation struct {
	Path     string // field path, e.g. "roles[2]"
	Expected string
	Actual   string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("field %q: expected %s, got %s", v.Path, v.Expected, v.Actual)
}

// Validate checks args against the schema and returns the first violation,
// or nil. Required fields are checked in declared order first, then each
// declared field's type, then array item types and enum membership, then
// undeclared keys (in sorted order). The schema advertises
// additionalProperties:false, so undeclared keys are rejected.
func (s Schema) Validate(args map[string]any) *Violation {
	for _, name := range s.Required {
		if _, ok := args[name]; !ok {
			return &Violation{Path: name, Expected: "required field", Actual: "missing"}
		}
	}

	for _, f := range s.Fields {
		v, ok := args[f.Name]
		if !ok {
			continue
		}
		if viol := checkField(f, v); viol != nil {
			return viol
		}
	}

	declared := make(map[string]bool, len(s.Fields)+len(s.Required))
	for _, f := range s.Fields {
		declared[f.Name] = true
	}
	for _, name := range s.Required {
		declared[name] = true
	}
	var unknown []string
	for name := range args {
		if !declared[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &Violation{Path: unknown[0], Expected: "no undeclared fields", Actual: "present"}
	}

	return nil
}

func checkField(f Field, v any) *Violation {
	actual := jsonTypeName(v)

	switch f.Type {
	case TypeString:
		str, ok := v.(string)
		if !ok {
			return &Violation{Path: f.Name, Expected: string(TypeString), Actual: actual}
		}
		if len(f.Enum) > 0 && !containsString(f.Enum, str) {
			return &Violation{Path: f.Name, Expected: fmt.Sprintf("one of %v", f.Enum), Actual: fmt.Sprintf("%q", str)}
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return &Violation{Path: f.Name, Expected: string(TypeBoolean), Actual: actual}
		}
	case TypeNumber:
		if _, ok := v.(float64); !ok {
			return &Violation{Path: f.Name, Expected: string(TypeNumber), Actual: actual}
		}
	case TypeInteger:
		n, ok := v.(float64)
		if !ok || n != math.Trunc(n) {
			return &Violation{Path: f.Name, Expected: string(TypeInteger), Actual: actual}
		}
	case TypeObject:
		if _, ok := v.(map[string]any); !ok {
			return &Violation{Path: f.Name, Expected: string(TypeObject), Actual: actual}
		}
	case TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return &Violation{Path: f.Name, Expected: string(TypeArray), Actual: actual}
		}
		if f.Items != "" {
			for i, item := range arr {
				if viol := checkField(Field{Name: fmt.Sprintf("%s[%d]", f.Name, i), Type: f.Items}, item); viol != nil {
					return viol
				}
			}
		}
	}

	return nil
}

// JSON renders the schema in JSON-Schema form, used for the model prompt and
// the tools listing endpoint.
func (s Schema) JSON() json.RawMessage {
	props := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		prop := map[string]any{"type": string(f.Type)}
		if f.Type == TypeArray && f.Items != "" {
			prop["items"] = map[string]any{"type": string(f.Items)}
		}
		if len(f.Enum) > 0 {
			prop["enum"] = f.Enum
		}
		props[f.Name] = prop
	}

	required := s.Required
	if required == nil {
		required = []string{}
	}

	raw, err := json.Marshal(map[string]any{
		"type":                 "object",
		"required":             required,
		"properties":           props,
		"additionalProperties": false,
	})
	if err != nil {
		// Schemas are built from plain strings and maps; this cannot fail.
		panic(err)
	}
	return raw
}

// jsonTypeName names v's JSON type for violation messages.
func jsonTypeName(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		if t == math.Trunc(t) {
			return "integer"
		}
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
