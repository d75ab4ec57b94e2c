package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Kind is the type a positional parameter is normalized to.
type Kind int

const (
	KindString Kind = iota
	KindSelector
	KindFilter
	KindDate
)

// Field declares one positional parameter.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Default is used when the position is absent or null. It goes through
	// the same normalization as a caller value.
	Default any
}

// Schema is the ordered list of positional parameters.
type Schema []Field

// Parameter names understood by Normalize.
const (
	FieldName       = "name"
	FieldProperties = "properties"
	FieldFilter     = "filter"
	FieldMinDate    = "mindate"
	FieldMaxDate    = "maxdate"
)

// FullSchema covers every parameter a request can carry.
var FullSchema = Schema{
	{Name: FieldName, Kind: KindString, Required: true},
	{Name: FieldProperties, Kind: KindSelector, Default: WildcardProperty},
	{Name: FieldFilter, Kind: KindFilter, Default: ""},
	{Name: FieldMinDate, Kind: KindDate},
	{Name: FieldMaxDate, Kind: KindDate},
}

// Request is a validated request. It is not modified after Normalize
// returns it.
type Request struct {
	Name       string
	Properties Selector
	Filter     Filter
	MinDate    *Date
	MaxDate    *Date
}

// Decode parses the caller's raw input, which must be a JSON array.
// Numbers are kept as json.Number.
func Decode(input []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, invalid("", "input is not valid JSON: %v", err)
	}
	if dec.More() {
		return nil, invalid("", "unexpected data after the input array")
	}
	values, ok := v.([]any)
	if !ok {
		return nil, invalid("", "input must be a JSON array, got %T", v)
	}
	return values, nil
}

// Normalize maps positional values onto schema and validates them. Positions
// beyond the schema are ignored.
func Normalize(values []any, schema Schema) (*Request, error) {
	req := &Request{Properties: Wildcard(), Filter: Filter{}}
	for i, field := range schema {
		var v any
		if i < len(values) {
			v = values[i]
		}
		if v == nil {
			v = field.Default
		}
		if v == nil {
			if field.Required {
				return nil, invalid(field.Name, "required parameter is missing")
			}
			continue
		}
		if err := req.set(field, v); err != nil {
			return nil, err
		}
	}
	if req.Name == "" {
		return nil, invalid(FieldName, "required parameter is missing")
	}
	return req, nil
}

func (r *Request) set(field Field, v any) error {
	switch field.Kind {
	case KindString:
		s, err := coerceString(field.Name, v)
		if err != nil {
			return err
		}
		if field.Name == FieldName {
			r.Name = strings.TrimSpace(s)
			if r.Name == "" {
				return invalid(field.Name, "must not be empty")
			}
		}
	case KindSelector:
		sel, err := ParseSelector(v)
		if err != nil {
			return err
		}
		r.Properties = sel
	case KindFilter:
		s, err := coerceString(field.Name, v)
		if err != nil {
			return err
		}
		f, err := ParseFilter(s)
		if err != nil {
			return err
		}
		r.Filter = f
	case KindDate:
		d, err := ParseDate(field.Name, v)
		if err != nil {
			return err
		}
		switch field.Name {
		case FieldMinDate:
			r.MinDate = &d
		case FieldMaxDate:
			r.MaxDate = &d
		}
	default:
		return fmt.Errorf("field %s: unsupported kind %d", field.Name, field.Kind)
	}
	return nil
}

// coerceString turns a scalar into a string; lists and objects are rejected.
func coerceString(field string, v any) (string, error) {
	switch t := v.(type) {
	case json.Number:
		return t.String(), nil
	case []any, map[string]any:
		return "", invalid(field, "must be a string, got %T", v)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", invalid(field, "must be a string: %v", err)
	}
	return s, nil
}
