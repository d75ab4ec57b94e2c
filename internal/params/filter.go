package params

import (
	"net/url"
	"strings"
)

// Filter holds the table filter: column name to the accepted values, in the
// order they were given.
type Filter struct {
	keys   []string
	values url.Values
}

// ParseFilter parses a URL-style query string such as
// "ticker=AAPL,MSFT&investorname=VANGUARD GROUP INC". Repeated keys and
// comma-joined values both accumulate into the key's value list.
func ParseFilter(s string) (Filter, error) {
	f := Filter{values: url.Values{}}
	if strings.TrimSpace(s) == "" {
		return f, nil
	}
	parsed, err := url.ParseQuery(s)
	if err != nil {
		return Filter{}, invalid("filter", "malformed query string: %v", err)
	}
	for _, key := range orderedKeys(s) {
		raw, ok := parsed[key]
		if !ok || f.values.Has(key) {
			continue
		}
		for _, v := range raw {
			for _, part := range strings.Split(v, ",") {
				if strings.TrimSpace(part) == "" {
					continue
				}
				f.values[key] = append(f.values[key], part)
			}
		}
		if len(f.values[key]) > 0 {
			f.keys = append(f.keys, key)
		}
	}
	return f, nil
}

// orderedKeys lists the distinct decoded keys of a query string in the order
// they first appear.
func orderedKeys(s string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of filtered columns.
func (f Filter) Len() int {
	return len(f.keys)
}

// Keys returns the filtered columns in first-seen order.
func (f Filter) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Values returns the accepted values for key.
func (f Filter) Values(key string) []string {
	vs := f.values[key]
	out := make([]string, len(vs))
	copy(out, vs)
	return out
}

// Query collapses the filter into upstream query parameters: one
// comma-joined value per key.
func (f Filter) Query() url.Values {
	q := make(url.Values, len(f.keys))
	for _, key := range f.keys {
		q.Set(key, strings.Join(f.values[key], ","))
	}
	return q
}

// String re-flattens the filter, keeping the key order, without escaping.
func (f Filter) String() string {
	parts := make([]string, 0, len(f.keys))
	for _, key := range f.keys {
		parts = append(parts, key+"="+strings.Join(f.values[key], ","))
	}
	return strings.Join(parts, "&")
}
