package quandl

import (
	"fmt"
	"sort"

	"quandlfetcher/internal/params"
)

// Endpoint is the upstream endpoint family a variant reads from.
type Endpoint int

const (
	// EndpointDatasets returns one fixed page of a dataset or time series.
	EndpointDatasets Endpoint = iota
	// EndpointDatatables returns cursor-paginated table pages.
	EndpointDatatables
)

// MissingKeyPolicy is what a variant does when no API key is configured.
type MissingKeyPolicy int

const (
	// MissingKeySentinel answers with the [[""]] grid.
	MissingKeySentinel MissingKeyPolicy = iota
	// MissingKeyFail rejects the invocation as invalid input.
	MissingKeyFail
)

// Variant is one caller-facing entry point.
type Variant struct {
	Name       string
	Endpoint   Endpoint
	Schema     params.Schema
	MissingKey MissingKeyPolicy
}

// List returns the contents of a dataset.
var List = Variant{
	Name:     "list",
	Endpoint: EndpointDatasets,
	Schema: params.Schema{
		{Name: params.FieldName, Kind: params.KindString, Required: true},
		{Name: params.FieldProperties, Kind: params.KindSelector, Default: params.WildcardProperty},
	},
	MissingKey: MissingKeySentinel,
}

// Series returns a time series between two dates.
var Series = Variant{
	Name:     "series",
	Endpoint: EndpointDatasets,
	Schema: params.Schema{
		{Name: params.FieldName, Kind: params.KindString, Required: true},
		{Name: params.FieldProperties, Kind: params.KindSelector, Default: params.WildcardProperty},
		{Name: params.FieldMinDate, Kind: params.KindDate, Default: "1900-01-01"},
		{Name: params.FieldMaxDate, Kind: params.KindDate, Default: "2099-12-31"},
	},
	MissingKey: MissingKeyFail,
}

// Table returns the rows of a datatable matching a filter.
var Table = Variant{
	Name:     "table",
	Endpoint: EndpointDatatables,
	Schema: params.Schema{
		{Name: params.FieldName, Kind: params.KindString, Required: true},
		{Name: params.FieldProperties, Kind: params.KindSelector, Default: params.WildcardProperty},
		{Name: params.FieldFilter, Kind: params.KindFilter, Default: ""},
	},
	MissingKey: MissingKeySentinel,
}

var variants = map[string]Variant{
	List.Name:   List,
	Series.Name: Series,
	Table.Name:  Table,
}

// Lookup finds a variant by name.
func Lookup(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("unknown variant %q (known: %v)", name, VariantNames())
	}
	return v, nil
}

// VariantNames lists the known variant names, sorted.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
