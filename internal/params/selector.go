package params

import (
	"strings"
)

// WildcardProperty selects every column of the first page.
const WildcardProperty = "*"

// Selector is the parsed properties parameter: either the wildcard or an
// ordered list of trimmed, lowercase property names.
type Selector struct {
	wildcard bool
	names    []string
}

// Wildcard returns the selector that expands to the first page's columns.
func Wildcard() Selector {
	return Selector{wildcard: true}
}

// Names returns a selector for an explicit property list. The names are
// normalized the same way ParseSelector normalizes them. It panics when no
// name is left; use ParseSelector for caller input.
func Names(names ...string) Selector {
	s, err := selectorFromSegments(names)
	if err != nil {
		panic(err)
	}
	return s
}

// IsWildcard reports whether the selector is the wildcard.
func (s Selector) IsWildcard() bool {
	return s.wildcard
}

// Properties returns the requested names; ["*"] for the wildcard.
func (s Selector) Properties() []string {
	if s.wildcard {
		return []string{WildcardProperty}
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Resolve returns the header for a page with the given columns: the columns
// themselves for the wildcard, the requested names otherwise.
func (s Selector) Resolve(columns []string) []string {
	if s.wildcard {
		out := make([]string, len(columns))
		copy(out, columns)
		return out
	}
	return s.Properties()
}

// String renders the selector as a comma-separated list.
func (s Selector) String() string {
	return strings.Join(s.Properties(), ",")
}

// ParseSelector accepts a comma-separated string or a (possibly nested) list
// of strings. Segments are trimmed and lowercased and empty segments dropped.
// A result of exactly "*" is the wildcard.
func ParseSelector(v any) (Selector, error) {
	var segments []string
	switch t := v.(type) {
	case string:
		segments = strings.Split(t, ",")
	case []string:
		segments = t
	case []any:
		flat, err := flattenStrings(t)
		if err != nil {
			return Selector{}, err
		}
		segments = flat
	default:
		return Selector{}, invalid("properties", "must be a string or a list of strings, got %T", v)
	}
	return selectorFromSegments(segments)
}

func selectorFromSegments(segments []string) (Selector, error) {
	names := make([]string, 0, len(segments))
	for _, seg := range segments {
		name := strings.ToLower(strings.TrimSpace(seg))
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return Selector{}, invalid("properties", "no property names given")
	}
	if len(names) == 1 && names[0] == WildcardProperty {
		return Wildcard(), nil
	}
	return Selector{names: names}, nil
}

func flattenStrings(values []any) ([]string, error) {
	var out []string
	for _, v := range values {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case []any:
			nested, err := flattenStrings(t)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		default:
			return nil, invalid("properties", "must be a list with only string values, got %T", v)
		}
	}
	return out, nil
}
