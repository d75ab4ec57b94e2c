// Package projection maps upstream rows onto the caller's property list.
//
// A Projector is bound to one pagination session. The first page it sees
// fixes the header: the requested names, or the page's own columns when the
// wildcard was requested. Every row of every page is then emitted in header
// order, with "" in place of missing or falsy values.
package projection

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"

	"quandlfetcher/internal/params"
)

// Empty is the value emitted for a property the row does not carry.
const Empty = ""

// NormalizeColumns trims and lowercases server column names.
func NormalizeColumns(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}

// Projector projects rows for one session.
type Projector struct {
	selector params.Selector
	header   []string
	resolved bool
}

// New creates a projector for the given selector.
func New(selector params.Selector) *Projector {
	return &Projector{selector: selector}
}

// Resolve fixes the header from the first page's columns. Later calls return
// the header fixed by the first one.
func (p *Projector) Resolve(columns []string) []string {
	if !p.resolved {
		p.header = p.selector.Resolve(columns)
		p.resolved = true
	}
	return p.header
}

// Header returns the resolved header and whether it has been resolved.
func (p *Projector) Header() ([]string, bool) {
	return p.header, p.resolved
}

// Project maps one row onto the header. Columns pair with row values by
// position; a later duplicate column name wins, and columns past the end of
// the row are absent.
func (p *Projector) Project(columns []string, row []any) []any {
	header := p.Resolve(columns)
	lookup := make(map[string]any, len(columns))
	for i, name := range columns {
		if i >= len(row) {
			break
		}
		lookup[name] = row[i]
	}
	out := make([]any, len(header))
	for i, name := range header {
		v, ok := lookup[name]
		if !ok || IsFalsy(v) {
			out[i] = Empty
			continue
		}
		out[i] = v
	}
	return out
}

// ProjectPage projects every row of a page.
func (p *Projector) ProjectPage(columns []string, rows [][]any) [][]any {
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, p.Project(columns, row))
	}
	return out
}

// IsFalsy reports whether a decoded JSON value counts as empty: null, false,
// zero, the empty string, or an empty list or object.
func IsFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToFloat64(t) == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
